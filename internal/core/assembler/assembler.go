package assembler

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/agenthands/cortex/internal/config"
	"github.com/agenthands/cortex/internal/llm"
)

// Request describes one context-assembly call.
type Request struct {
	Query       string `json:"query"`
	UserID      int64  `json:"user_id"`
	SessionID   string `json:"session_id,omitempty"`
	Intent      string `json:"intent,omitempty"`
	TokenBudget int    `json:"token_budget,omitempty"`

	IncludeConversation bool `json:"include_conversation"`
	IncludeFacts        bool `json:"include_facts"`
	IncludeGraph        bool `json:"include_graph"`
	IncludeCrossApp     bool `json:"include_cross_app"`
	IncludeTemporal     bool `json:"include_temporal"`
	IncludeInsights     bool `json:"include_insights"`
}

// AssembledContext is the bounded, prompt-ready result. The zero value
// (with TokenCount 0) is the total-failure result.
type AssembledContext struct {
	Conversation []Item `json:"conversation,omitempty"`
	Facts        []Item `json:"semantic_facts,omitempty"`
	Graph        []Item `json:"graph_context,omitempty"`
	CrossApp     []Item `json:"cross_app,omitempty"`
	Temporal     []Item `json:"temporal,omitempty"`
	Insights     []Item `json:"insights,omitempty"`

	TokenCount int    `json:"token_count"`
	Rendered   string `json:"rendered,omitempty"`
}

func (a AssembledContext) HasContext() bool {
	return len(a.Conversation) > 0 || len(a.Facts) > 0 || len(a.Graph) > 0 ||
		len(a.CrossApp) > 0 || len(a.Temporal) > 0 || len(a.Insights) > 0
}

// Assembler fans out to every enabled memory source, prunes the union,
// and packs it into the token budget.
type Assembler struct {
	Sources Sources
	Config  config.AssemblerConfig
	Counter llm.TokenCounter // optional exact tokenizer
}

func NewAssembler(sources Sources, cfg config.AssemblerConfig, counter llm.TokenCounter) *Assembler {
	return &Assembler{Sources: sources, Config: cfg, Counter: counter}
}

// fetchOutcome tags one source's result for the collection phase.
type fetchOutcome struct {
	source string
	items  []Item
}

// AssembleContext never fails: every source fetch runs under its own
// panic/error boundary and timeout, and a total failure yields an empty
// AssembledContext.
func (a *Assembler) AssembleContext(ctx context.Context, req Request) AssembledContext {
	if req.TokenBudget <= 0 {
		req.TokenBudget = a.Config.DefaultTokenBudget
	}

	fetches := a.plan(req)
	results := make(map[string][]Item, len(fetches))

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, fetch := range fetches {
		wg.Add(1)
		go func(name string, fetch func(context.Context) ([]Item, error)) {
			defer wg.Done()
			items := a.fetchIsolated(ctx, name, fetch)
			mu.Lock()
			results[name] = items
			mu.Unlock()
		}(name, fetch)
	}
	// No short-circuit: pruning needs every source's contribution (or
	// its failure converted to an empty one).
	wg.Wait()

	assembled := AssembledContext{
		Conversation: results["conversation"],
		Facts:        results["facts"],
		Graph:        results["graph"],
		CrossApp:     results["cross_app"],
		Temporal:     results["temporal"],
		Insights:     results["insights"],
	}

	assembled = a.prune(assembled, req)
	assembled.Rendered = Render(assembled)
	assembled.TokenCount = a.countTokens(ctx, assembled.Rendered)

	return assembled
}

// plan selects the enabled, available sources for this request.
func (a *Assembler) plan(req Request) map[string]func(context.Context) ([]Item, error) {
	fetches := make(map[string]func(context.Context) ([]Item, error))

	if req.IncludeConversation && a.Sources.Conversation != nil {
		fetches["conversation"] = func(ctx context.Context) ([]Item, error) {
			return a.Sources.Conversation.RecentTurns(ctx, req.UserID, req.SessionID, 10)
		}
	}
	if req.IncludeFacts && a.Sources.Facts != nil {
		fetches["facts"] = func(ctx context.Context) ([]Item, error) {
			return a.Sources.Facts.RelevantFacts(ctx, req.UserID, req.Query, 10)
		}
	}
	if req.IncludeInsights && a.Sources.Insights != nil {
		fetches["insights"] = func(ctx context.Context) ([]Item, error) {
			return a.Sources.Insights.UrgentInsights(ctx, req.UserID)
		}
	}
	if req.IncludeGraph && a.Sources.Graph != nil {
		fetches["graph"] = func(ctx context.Context) ([]Item, error) {
			return a.Sources.Graph.GraphContext(ctx, req.Query, req.UserID)
		}
	}
	if req.IncludeCrossApp && a.Sources.CrossApp != nil {
		fetches["cross_app"] = func(ctx context.Context) ([]Item, error) {
			return a.Sources.CrossApp.CrossAppContext(ctx, req.Query, req.UserID)
		}
	}
	if req.IncludeTemporal && a.Sources.Temporal != nil && HasTemporalPhrase(req.Query) {
		fetches["temporal"] = func(ctx context.Context) ([]Item, error) {
			return a.Sources.Temporal.TemporalContext(ctx, req.Query, req.UserID)
		}
	}

	return fetches
}

// fetchIsolated converts a source's panic, error, or timeout into an
// empty contribution; sibling fetches are never aborted.
func (a *Assembler) fetchIsolated(ctx context.Context, name string, fetch func(context.Context) ([]Item, error)) (items []Item) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Context source %s panicked: %v", name, r)
			items = nil
		}
	}()

	timeout := a.Config.SourceTimeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	items, err := fetch(fetchCtx)
	if err != nil {
		log.Printf("Context source %s failed: %v", name, err)
		return nil
	}
	return items
}

var temporalPhrases = []string{
	"yesterday", "today", "tomorrow", "last week", "this week", "next week",
	"last month", "this month", "last year", "recently", "when ", "when?",
	"schedule", "calendar", "morning", "afternoon", "evening", "tonight",
}

// HasTemporalPhrase reports whether the query contains a time cue worth
// a temporal-context fetch.
func HasTemporalPhrase(query string) bool {
	lower := strings.ToLower(query)
	for _, phrase := range temporalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return strings.HasPrefix(lower, "when")
}
