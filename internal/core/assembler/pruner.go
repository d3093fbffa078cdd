package assembler

import (
	"sort"

	"github.com/agenthands/cortex/internal/core/common"
)

// Source-type weights; conversation is the anchor.
var baseWeights = map[string]float64{
	"conversation": 1.0,
	"facts":        0.9,
	"insights":     0.9,
	"graph":        0.8,
	"temporal":     0.7,
	"cross_app":    0.6,
}

// intentWeights overrides base weights per query intent.
var intentWeights = map[string]map[string]float64{
	"scheduling": {
		"temporal": 1.2,
		"graph":    0.9,
	},
	"recall": {
		"facts": 1.1,
		"graph": 1.0,
	},
	"relationship": {
		"graph":     1.1,
		"cross_app": 0.8,
	},
	"catch_up": {
		"insights": 1.1,
		"temporal": 0.9,
	},
}

func weightFor(source, intent string) float64 {
	if overrides, ok := intentWeights[intent]; ok {
		if w, ok := overrides[source]; ok {
			return w
		}
	}
	return baseWeights[source]
}

// positionalDecay discounts lower-ranked items within one source: full
// weight for the first, -5% for the second, -10% from the third on.
func positionalDecay(rank int) float64 {
	switch {
	case rank == 0:
		return 1.0
	case rank == 1:
		return 0.95
	default:
		return 0.90
	}
}

const dedupeOverlapThreshold = 0.5

// itemRenderTokens is an item's cost as Render emits it: the bullet and
// trailing newline, not just the bare content.
func itemRenderTokens(content string) int {
	return ApproxTokens("- " + content + "\n")
}

func sectionHeaderTokens(header string) int {
	return ApproxTokens("\n## " + header + "\n")
}

// sectionFor maps a packed source to the Render section it lands in;
// graph and cross_app share one section, so its header is charged once.
var sectionFor = map[string]string{
	"facts":     sectionFacts,
	"graph":     sectionKnowledge,
	"cross_app": sectionKnowledge,
	"temporal":  sectionTemporal,
}

type scoredItem struct {
	item   Item
	source string
	score  float64
	tokens int
}

// prune deduplicates against the conversation anchor, scores every
// remaining item, and greedily packs the budget on top of the always-kept
// base (conversation + insights).
func (a *Assembler) prune(in AssembledContext, req Request) AssembledContext {
	// Dedupe: conversation is the fixed anchor; facts then graph are
	// checked against all previously accepted word sets.
	var accepted []map[string]bool
	for _, turn := range in.Conversation {
		accepted = append(accepted, common.WordSet(turn.Content))
	}

	in.Facts, accepted = dedupe(in.Facts, accepted)
	in.Graph, _ = dedupe(in.Graph, accepted)

	// Base block is kept regardless of budget.
	base := baseTokens(in)

	var candidates []scoredItem
	collect := func(items []Item, source string) {
		for rank, item := range items {
			candidates = append(candidates, scoredItem{
				item:   item,
				source: source,
				score:  weightFor(source, req.Intent) * positionalDecay(rank),
				tokens: itemRenderTokens(item.Content),
			})
		}
	}
	collect(in.Facts, "facts")
	collect(in.Graph, "graph")
	collect(in.CrossApp, "cross_app")
	collect(in.Temporal, "temporal")

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	// Greedy pack: overflowing items are skipped, not reordered later.
	out := AssembledContext{
		Conversation: in.Conversation,
		Insights:     in.Insights,
	}
	running := base
	opened := make(map[string]bool)
	for _, cand := range candidates {
		cost := cand.tokens
		header := sectionFor[cand.source]
		if !opened[header] {
			cost += sectionHeaderTokens(header)
		}
		if running+cost > req.TokenBudget {
			continue
		}
		running += cost
		opened[header] = true
		switch cand.source {
		case "facts":
			out.Facts = append(out.Facts, cand.item)
		case "graph":
			out.Graph = append(out.Graph, cand.item)
		case "cross_app":
			out.CrossApp = append(out.CrossApp, cand.item)
		case "temporal":
			out.Temporal = append(out.Temporal, cand.item)
		}
	}
	return out
}

// dedupe drops items whose stop-word-filtered word set overlaps any
// previously accepted set at >= 0.5, accumulating accepted sets in order.
func dedupe(items []Item, accepted []map[string]bool) ([]Item, []map[string]bool) {
	var kept []Item
	for _, item := range items {
		words := common.WordSet(item.Content)
		dup := false
		for _, prior := range accepted {
			if common.OverlapCoefficient(words, prior) >= dedupeOverlapThreshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, item)
		accepted = append(accepted, words)
	}
	return kept, accepted
}

// baseTokens is the rendered cost of the always-kept base block
// (conversation + insights), headers and bullets included.
func baseTokens(in AssembledContext) int {
	total := 0
	if len(in.Conversation) > 0 {
		total += sectionHeaderTokens(sectionConversation)
	}
	for _, item := range in.Conversation {
		total += itemRenderTokens(item.Content)
	}
	if len(in.Insights) > 0 {
		total += sectionHeaderTokens(sectionInsights)
	}
	for _, item := range in.Insights {
		total += itemRenderTokens(item.Content)
	}
	return total
}
