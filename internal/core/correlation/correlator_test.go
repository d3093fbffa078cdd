package correlation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cortex/internal/config"
	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/vector"
)

func testNode() model.ContentNode {
	return model.ContentNode{
		UUID:    "email-1",
		Type:    model.NodeEmail,
		Title:   "Q3 budget discussion",
		Content: "Reviewing budget allocations for the third quarter roadmap.",
		Source:  "gmail",
		UserID:  7,
	}
}

func TestCorrelateOnIndex(t *testing.T) {
	index := &MockIndex{Hits: []vector.Hit{
		{NodeUUID: "doc-1", Source: "notion", Score: 0.9, Content: "Q3 budget draft"},
		// Same source as the new node: skipped
		{NodeUUID: "email-2", Source: "gmail", Score: 0.95, Content: "Re: Q3 budget"},
		// Below threshold: skipped
		{NodeUUID: "task-1", Source: "asana", Score: 0.4, Content: "Buy groceries"},
		{NodeUUID: "msg-1", Source: "slack", Score: 0.7, Content: "budget thread"},
	}}
	mock := &MockDriver{Handler: nodesExist}
	c := NewCorrelator(mock, index, config.Default().Correlation)

	correlations := c.CorrelateOnIndex(context.Background(), testNode(), true)

	require.Len(t, correlations, 2)
	assert.Equal(t, "doc-1", correlations[0].TargetID)
	assert.Equal(t, "notion", correlations[0].TargetSource)
	assert.Equal(t, "RELATED_TO", correlations[0].EdgeType)
	assert.Equal(t, "msg-1", correlations[1].TargetID)

	// The search excludes the node itself and stays in the user's scope
	assert.Equal(t, "email-1", index.LastFilter.ExcludeUUID)
	assert.Equal(t, int64(7), index.LastFilter.UserID)

	// Two edges persisted
	inserts := 0
	for _, q := range mock.Queries {
		if strings.Contains(q, "MERGE") && strings.Contains(q, "RELATED_TO") {
			inserts++
		}
	}
	assert.Equal(t, 2, inserts)
}

func TestCorrelateOnIndexFollowUpReclassification(t *testing.T) {
	index := &MockIndex{Hits: []vector.Hit{
		{NodeUUID: "email-9", Source: "slack", Score: 0.85, Content: "Follow up on the budget meeting from Tuesday"},
	}}
	c := NewCorrelator(&MockDriver{Handler: nodesExist}, index, config.Default().Correlation)

	correlations := c.CorrelateOnIndex(context.Background(), testNode(), false)

	require.Len(t, correlations, 1)
	assert.Equal(t, "FOLLOWS", correlations[0].EdgeType)
}

func TestCorrelateOnIndexCapsResults(t *testing.T) {
	var hits []vector.Hit
	for i := 0; i < 12; i++ {
		hits = append(hits, vector.Hit{
			NodeUUID: fmt.Sprintf("doc-%d", i), Source: "notion", Score: 0.9, Content: "related doc",
		})
	}
	c := NewCorrelator(&MockDriver{Handler: nodesExist}, &MockIndex{Hits: hits}, config.Default().Correlation)

	correlations := c.CorrelateOnIndex(context.Background(), testNode(), false)
	assert.Len(t, correlations, config.Default().Correlation.MaxCorrelations)
}

func TestCorrelateOnIndexShortContent(t *testing.T) {
	index := &MockIndex{}
	c := NewCorrelator(&MockDriver{}, index, config.Default().Correlation)

	node := model.ContentNode{UUID: "m1", Type: model.NodeMessage, Content: "ok", Source: "slack", UserID: 7}
	assert.Nil(t, c.CorrelateOnIndex(context.Background(), node, true))
	assert.Empty(t, index.LastQuery)
}

func TestCorrelateOnIndexSearchFailure(t *testing.T) {
	index := &MockIndex{Err: fmt.Errorf("index unavailable")}
	c := NewCorrelator(&MockDriver{}, index, config.Default().Correlation)

	// Failures surface as an empty result, never as a panic or error
	assert.Nil(t, c.CorrelateOnIndex(context.Background(), testNode(), true))
}

func TestFindRelatedDocumentsForMeeting(t *testing.T) {
	index := &MockIndex{Hits: []vector.Hit{
		// Attendee-owned: 0.55 * 1.3 = 0.715, above threshold and cutoff
		{NodeUUID: "doc-1", Source: "drive", Score: 0.55, OwnerEmail: "alice@x.com", Content: "Budget plan"},
		// Not attendee-owned, same base score: stays below threshold
		{NodeUUID: "doc-2", Source: "drive", Score: 0.55, OwnerEmail: "stranger@x.com", Content: "Budget notes"},
		// Boost is capped at 1.0
		{NodeUUID: "doc-3", Source: "drive", Score: 0.9, OwnerEmail: "alice@x.com", Content: "Agenda"},
	}}
	mock := &MockDriver{Handler: nodesExist}
	c := NewCorrelator(mock, index, config.Default().Correlation)

	docs := c.FindRelatedDocumentsForMeeting(context.Background(),
		"evt-1", "Quarterly budget sync", "Review allocations with finance",
		[]string{"Alice@X.com"}, 7, 5)

	require.Len(t, docs, 2)
	assert.Equal(t, "doc-1", docs[0].TargetID)
	assert.InDelta(t, 0.715, docs[0].Similarity, 0.0001)
	assert.Equal(t, "doc-3", docs[1].TargetID)
	assert.Equal(t, 1.0, docs[1].Similarity)

	// Only Document nodes are candidates
	assert.Equal(t, []model.NodeType{model.NodeDocument}, index.LastFilter.Types)
}

func TestGetCrossAppContext(t *testing.T) {
	index := &MockIndex{Hits: []vector.Hit{
		{NodeUUID: "n1", Source: "slack", Score: 0.9},
		{NodeUUID: "n2", Source: "slack", Score: 0.85},
		{NodeUUID: "n3", Source: "slack", Score: 0.8},
		{NodeUUID: "n4", Source: "notion", Score: 0.7},
		// Primary source: excluded entirely
		{NodeUUID: "n5", Source: "gmail", Score: 0.99},
		// Below threshold
		{NodeUUID: "n6", Source: "asana", Score: 0.2},
	}}
	c := NewCorrelator(&MockDriver{}, index, config.Default().Correlation)

	grouped := c.GetCrossAppContext(context.Background(), "budget", 7, "gmail", 2)

	assert.Len(t, grouped["slack"], 2) // capped per app
	assert.Len(t, grouped["notion"], 1)
	assert.NotContains(t, grouped, "gmail")
	assert.NotContains(t, grouped, "asana")
}
