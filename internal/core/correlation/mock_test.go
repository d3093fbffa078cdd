package correlation

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/vector"
)

type MockDriver struct {
	Queries []string
	Params  []map[string]interface{}
	Handler func(query string, params map[string]interface{}) (neo4j.EagerResult, error)
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Queries = append(m.Queries, query)
	m.Params = append(m.Params, params)
	if m.Handler != nil {
		return m.Handler(query, params)
	}
	return neo4j.EagerResult{}, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

// nodesExist makes GetNodeQuery report every uuid as present so
// createEdge proceeds to the insert.
func nodesExist(query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	if params["uuid"] != nil {
		return neo4j.EagerResult{Records: []*neo4j.Record{
			{Keys: []string{"uuid"}, Values: []interface{}{params["uuid"]}},
		}}, nil
	}
	return neo4j.EagerResult{}, nil
}

type MockIndex struct {
	Hits       []vector.Hit
	Err        error
	LastQuery  string
	LastK      int
	LastFilter vector.Filters
}

func (m *MockIndex) IndexNode(ctx context.Context, node model.ContentNode) error {
	return nil
}

func (m *MockIndex) Search(ctx context.Context, query string, k int, filters vector.Filters) ([]vector.Hit, error) {
	m.LastQuery = query
	m.LastK = k
	m.LastFilter = filters
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Hits, nil
}
