package vector

import (
	"context"
	"time"

	"github.com/agenthands/cortex/internal/core/model"
)

// Hit is one similarity-search result. Metadata carries the originating
// application and a back-reference to the graph node.
type Hit struct {
	NodeUUID   string         `json:"node_uuid"`
	Type       model.NodeType `json:"type"`
	Content    string         `json:"content"`
	Score      float64        `json:"score"`
	Source     string         `json:"source"`
	OwnerEmail string         `json:"owner_email,omitempty"`
	Timestamp  time.Time      `json:"timestamp,omitempty"`
}

type Filters struct {
	UserID      int64
	ExcludeUUID string
	Types       []model.NodeType
}

// Index is the similarity-search contract the engine consumes. The
// shipped implementation is GraphIndex; a remote vector service can be
// swapped in behind the same interface.
type Index interface {
	IndexNode(ctx context.Context, node model.ContentNode) error
	Search(ctx context.Context, query string, k int, f Filters) ([]Hit, error)
}
