package assembler

import (
	"context"
	"log"
	"time"
)

// ApproxTokens is the local fallback estimate: one token per four
// characters.
func ApproxTokens(text string) int {
	return len(text) / 4
}

// countTokens prefers one exact tokenizer call per assembly for the
// final total; the call is time-bounded and any failure falls back to
// the approximation.
func (a *Assembler) countTokens(ctx context.Context, text string) int {
	if text == "" {
		return 0
	}
	if a.Counter == nil {
		return ApproxTokens(text)
	}

	timeout := time.Duration(a.Config.TokenCountTimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	countCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := a.Counter.CountTokens(countCtx, text)
	if err != nil {
		log.Printf("Exact token count failed, using approximation: %v", err)
		return ApproxTokens(text)
	}
	return n
}
