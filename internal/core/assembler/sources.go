package assembler

import (
	"context"
)

// Item is one unit of retrieved memory from any source. Content is the
// only required field; Score is the source's own relevance estimate when
// it has one.
type Item struct {
	Content  string                 `json:"content"`
	Source   string                 `json:"source,omitempty"`
	Score    float64                `json:"score,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Collaborator contracts. Each is an async "get recent/relevant items"
// call; implementations live outside this package (conversation store,
// fact store, insight service are external, graph/cross-app/temporal are
// provided by the engine).

type ConversationSource interface {
	RecentTurns(ctx context.Context, userID int64, sessionID string, limit int) ([]Item, error)
}

type FactSource interface {
	RelevantFacts(ctx context.Context, userID int64, query string, limit int) ([]Item, error)
}

type InsightSource interface {
	UrgentInsights(ctx context.Context, userID int64) ([]Item, error)
}

type GraphSource interface {
	GraphContext(ctx context.Context, query string, userID int64) ([]Item, error)
}

type CrossAppSource interface {
	CrossAppContext(ctx context.Context, query string, userID int64) ([]Item, error)
}

type TemporalSource interface {
	TemporalContext(ctx context.Context, query string, userID int64) ([]Item, error)
}

// Sources bundles whatever collaborators are available; nil fields are
// simply not fetched.
type Sources struct {
	Conversation ConversationSource
	Facts        FactSource
	Insights     InsightSource
	Graph        GraphSource
	CrossApp     CrossAppSource
	Temporal     TemporalSource
}
