package vector

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/driver"
	"github.com/agenthands/cortex/internal/llm"
)

// GraphIndex stores embeddings as node properties and scores candidates
// by cosine similarity in-process. Adequate for per-user corpora; the
// Index interface leaves room for a dedicated vector store later.
type GraphIndex struct {
	Driver   driver.GraphDriver
	Embedder llm.EmbedderClient
}

func NewGraphIndex(d driver.GraphDriver, embedder llm.EmbedderClient) *GraphIndex {
	return &GraphIndex{Driver: d, Embedder: embedder}
}

func (g *GraphIndex) IndexNode(ctx context.Context, node model.ContentNode) error {
	if g.Embedder == nil {
		return fmt.Errorf("no embedder configured")
	}
	text := node.SearchableText()
	if text == "" {
		return nil
	}

	vec, err := g.Embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed node %s: %w", node.UUID, err)
	}

	_, err = g.Driver.ExecuteQuery(ctx, driver.SetContentEmbeddingQuery, map[string]interface{}{
		"uuid":      node.UUID,
		"embedding": vec,
	})
	return err
}

func (g *GraphIndex) Search(ctx context.Context, query string, k int, f Filters) ([]Hit, error) {
	if g.Embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	if f.UserID == 0 {
		// Unscoped similarity search would cross user boundaries.
		return nil, fmt.Errorf("search requires a user_id filter")
	}

	queryVec, err := g.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	res, err := g.Driver.ExecuteQuery(ctx, driver.ContentCandidatesQuery, map[string]interface{}{
		"user_id":      f.UserID,
		"exclude_uuid": f.ExcludeUUID,
	})
	if err != nil {
		return nil, err
	}

	typeFilter := make(map[model.NodeType]bool, len(f.Types))
	for _, t := range f.Types {
		typeFilter[t] = true
	}

	var hits []Hit
	for _, rec := range res.Records {
		nodeType := model.NodeType(driver.RowString(rec, "type"))
		if len(typeFilter) > 0 && !typeFilter[nodeType] {
			continue
		}

		emb := driver.RowFloats(rec, "embedding")
		score := Cosine(queryVec, emb)
		if score <= 0 {
			continue
		}

		content := driver.RowString(rec, "title")
		if body := driver.RowString(rec, "content"); body != "" {
			if content != "" {
				content += "\n"
			}
			content += body
		}

		ts, _ := driver.RowTime(rec, "timestamp")
		hits = append(hits, Hit{
			NodeUUID:   driver.RowString(rec, "uuid"),
			Type:       nodeType,
			Content:    content,
			Score:      score,
			Source:     driver.RowString(rec, "source"),
			OwnerEmail: driver.RowString(rec, "owner_email"),
			Timestamp:  ts,
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Cosine returns the cosine similarity of two vectors, 0 for mismatched
// or empty inputs.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
