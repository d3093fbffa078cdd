package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cortex/internal/config"
	"github.com/agenthands/cortex/internal/core/assembler"
	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/driver"
)

func assemblerRequest(query string) assembler.Request {
	return assembler.Request{
		Query:        query,
		UserID:       7,
		TokenBudget:  4000,
		IncludeGraph: true,
	}
}

func newTestEngine(mock *MockDriver) *Engine {
	e := NewEngine(mock, nil, nil, config.Default())
	e.UUIDGenerator = func() string { return "fixed-uuid" }
	return e
}

func TestSaveEntity(t *testing.T) {
	mock := &MockDriver{}
	e := newTestEngine(mock)

	entity, err := e.SaveEntity(context.Background(), model.Entity{
		Type:   model.NodePerson,
		Name:   "Sarah Chen",
		Email:  "sarah@x.com",
		Source: "gmail",
		UserID: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed-uuid", entity.UUID)
	assert.False(t, entity.CreatedAt.IsZero())

	// First query is the MERGE of the Person node itself
	assert.Contains(t, mock.Queries[0], ":Person")
	assert.Equal(t, "fixed-uuid", mock.Params[0]["uuid"])
}

func TestSaveEntityRejectsContentTypes(t *testing.T) {
	e := newTestEngine(&MockDriver{})
	_, err := e.SaveEntity(context.Background(), model.Entity{Type: model.NodeEmail, Name: "x"})
	assert.Error(t, err)
}

func TestSaveEntityRunsImmediateResolution(t *testing.T) {
	existing := &neo4j.Record{
		Keys: []string{"uuid", "type", "name", "email", "source", "user_id", "created_at", "props"},
		Values: []interface{}{
			"u1", "User", "Sarah Chen", "sarah@x.com", "internal", int64(7),
			time.Now().UTC(), map[string]interface{}{},
		},
	}
	mock := &MockDriver{
		Handler: func(query string, params map[string]interface{}) (neo4j.EagerResult, error) {
			if strings.Contains(query, "MATCH (n:User)") {
				return neo4j.EagerResult{Records: []*neo4j.Record{existing}}, nil
			}
			return neo4j.EagerResult{}, nil
		},
	}
	e := newTestEngine(mock)

	_, err := e.SaveEntity(context.Background(), model.Entity{
		Type: model.NodePerson, Name: "S. Chen", Email: "sarah@x.com", UserID: 7,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, mock.countQuery(driver.CreateSameAsQuery))
}

func TestIndexContentRejectsEntityTypes(t *testing.T) {
	e := newTestEngine(&MockDriver{})
	_, _, err := e.IndexContent(context.Background(), model.ContentNode{Type: model.NodePerson})
	assert.Error(t, err)
}

func TestIndexContentAnchorsTimeBlocks(t *testing.T) {
	mock := &MockDriver{}
	e := newTestEngine(mock)

	node, correlations, err := e.IndexContent(context.Background(), model.ContentNode{
		Type:    model.NodeEmail,
		Title:   "Q3 budget",
		Content: "Reviewing budget allocations for next quarter.",
		Source:  "gmail",
		UserID:  7,
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed-uuid", node.UUID)
	assert.False(t, node.Timestamp.IsZero())

	// No embedder configured: no vector indexing, no correlations
	assert.Nil(t, correlations)

	// Hour and day buckets are both ensured
	assert.Equal(t, 2, mock.countQuery(driver.MergeTimeBlockQuery))
}

func TestIndexContentReinforcesParticipants(t *testing.T) {
	person := &neo4j.Record{
		Keys: []string{"uuid", "type", "name", "email", "source", "user_id", "created_at", "props"},
		Values: []interface{}{
			"p1", "Person", "Sarah Chen", "sarah@x.com", "gmail", int64(7),
			time.Now().UTC(), map[string]interface{}{},
		},
	}
	mock := &MockDriver{
		Handler: func(query string, params map[string]interface{}) (neo4j.EagerResult, error) {
			if strings.Contains(query, "MATCH (n:Person)") {
				return neo4j.EagerResult{Records: []*neo4j.Record{person}}, nil
			}
			return neo4j.EagerResult{}, nil
		},
	}
	e := newTestEngine(mock)

	_, _, err := e.IndexContent(context.Background(), model.ContentNode{
		Type:         model.NodeEmail,
		Title:        "Sync notes",
		Content:      "Notes from the weekly sync with the finance team.",
		Source:       "gmail",
		UserID:       7,
		Participants: []string{"sarah@x.com"},
	})
	require.NoError(t, err)

	reinforced := false
	for _, q := range mock.Queries {
		if strings.Contains(q, "MENTIONS") && strings.Contains(q, "interaction_count") {
			reinforced = true
		}
	}
	assert.True(t, reinforced, "participant edge must be reinforced")
}

func TestAssembleContextViaEngineGraphSource(t *testing.T) {
	person := &neo4j.Record{
		Keys: []string{"uuid", "type", "name", "email", "source", "user_id", "created_at", "props"},
		Values: []interface{}{
			"p1", "Person", "Sarah Chen", "sarah@x.com", "gmail", int64(7),
			time.Now().UTC(), map[string]interface{}{},
		},
	}
	edge := &neo4j.Record{
		Keys: []string{"from_uuid", "to_uuid", "type", "strength", "interaction_count", "first_seen", "last_interaction"},
		Values: []interface{}{
			"p1", "c9", "MENTIONS", 0.8, int64(12),
			time.Now().UTC(), time.Now().UTC(),
		},
	}
	mock := &MockDriver{
		Handler: func(query string, params map[string]interface{}) (neo4j.EagerResult, error) {
			switch {
			case strings.Contains(query, "MATCH (n:Person)"):
				return neo4j.EagerResult{Records: []*neo4j.Record{person}}, nil
			case query == driver.StrongestRelationshipsQuery:
				return neo4j.EagerResult{Records: []*neo4j.Record{edge}}, nil
			}
			return neo4j.EagerResult{}, nil
		},
	}
	e := newTestEngine(mock)

	result := e.AssembleContext(context.Background(), assemblerRequest("what is Sarah working on?"))

	require.Len(t, result.Graph, 1)
	assert.Contains(t, result.Graph[0].Content, "Sarah Chen")
	assert.Contains(t, result.Graph[0].Content, "MENTIONS")
	assert.Greater(t, result.TokenCount, 0)
}

func TestAssembleContextNoMatchingEntities(t *testing.T) {
	e := newTestEngine(&MockDriver{})
	result := e.AssembleContext(context.Background(), assemblerRequest("completely unrelated question"))
	assert.False(t, result.HasContext())
}
