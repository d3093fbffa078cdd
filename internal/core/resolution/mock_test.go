package resolution

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/driver"
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

// createdEdges returns the params of every SAME_AS or RELATED_TO insert.
func (m *MockDriver) createdEdges(query string) []map[string]interface{} {
	var out []map[string]interface{}
	for i, q := range m.Queries {
		if q == query {
			out = append(out, m.Params[i])
		}
	}
	return out
}

func entityRecord(e model.Entity) *neo4j.Record {
	props := map[string]interface{}{}
	for k, v := range e.Attributes {
		props[k] = v
	}
	return &neo4j.Record{
		Keys: []string{"uuid", "type", "name", "email", "source", "user_id", "created_at", "props"},
		Values: []interface{}{
			e.UUID, string(e.Type), e.Name, e.Email, e.Source, e.UserID,
			time.Now().UTC(), props,
		},
	}
}

func contentRecord(n model.ContentNode) *neo4j.Record {
	participants := make([]interface{}, 0, len(n.Participants))
	for _, p := range n.Participants {
		participants = append(participants, p)
	}
	keywords := make([]interface{}, 0, len(n.Keywords))
	for _, k := range n.Keywords {
		keywords = append(keywords, k)
	}
	return &neo4j.Record{
		Keys: []string{"uuid", "type", "title", "content", "source", "user_id", "participants", "keywords", "timestamp", "created_at"},
		Values: []interface{}{
			n.UUID, string(n.Type), n.Title, n.Content, n.Source, n.UserID,
			participants, keywords, time.Now().UTC(), time.Now().UTC(),
		},
	}
}

// graphFixture routes the per-label fetch queries to canned node sets and
// leaves every other query (existence checks, inserts) empty.
func graphFixture(entities []model.Entity, content []model.ContentNode) func(string, map[string]interface{}) (neo4j.EagerResult, error) {
	return func(query string, params map[string]interface{}) (neo4j.EagerResult, error) {
		for _, label := range []model.NodeType{model.NodePerson, model.NodeContact, model.NodeUser} {
			if query != fmt.Sprintf(driver.GetEntitiesByLabelQuery, label) {
				continue
			}
			var records []*neo4j.Record
			for _, e := range entities {
				if e.Type == label {
					records = append(records, entityRecord(e))
				}
			}
			return neo4j.EagerResult{Records: records}, nil
		}
		for _, label := range model.ContentNodeTypes {
			if query != fmt.Sprintf(driver.GetContentByLabelQuery, label) {
				continue
			}
			var records []*neo4j.Record
			for _, n := range content {
				if n.Type == label {
					records = append(records, contentRecord(n))
				}
			}
			return neo4j.EagerResult{Records: records}, nil
		}
		return neo4j.EagerResult{}, nil
	}
}
