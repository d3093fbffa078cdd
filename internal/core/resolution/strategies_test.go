package resolution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cortex/internal/config"
	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/driver"
)

func newTestService(mock *MockDriver) *Service {
	return NewService(mock, config.Default().Resolution)
}

func TestRunEmailExact(t *testing.T) {
	mock := &MockDriver{
		Handler: graphFixture([]model.Entity{
			{UUID: "p1", Type: model.NodePerson, Name: "Sarah Chen", Email: "Sarah.Chen@Example.com", UserID: 7},
			{UUID: "c1", Type: model.NodeContact, Name: "S. Chen", Email: "sarah.chen@example.com", UserID: 7},
			{UUID: "c2", Type: model.NodeContact, Name: "Unrelated", Email: "other@example.com", UserID: 7},
			// Same email but a different user: never linked
			{UUID: "c3", Type: model.NodeContact, Name: "Other Sarah", Email: "sarah.chen@example.com", UserID: 9},
		}, nil),
	}
	s := newTestService(mock)

	created, err := s.runEmailExact(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	edges := mock.createdEdges(driver.CreateSameAsQuery)
	require.Len(t, edges, 1)
	assert.Equal(t, "p1", edges[0]["from_uuid"])
	assert.Equal(t, "c1", edges[0]["to_uuid"])
	assert.Equal(t, 1.0, edges[0]["confidence"])
	assert.Equal(t, "email_exact", edges[0]["method"])
}

func TestRunProfileEmail(t *testing.T) {
	mock := &MockDriver{
		Handler: graphFixture([]model.Entity{
			{UUID: "p1", Type: model.NodePerson, Name: "Sarah Chen", UserID: 7,
				Attributes: map[string]interface{}{"slack_email": "schen@example.com"}},
			{UUID: "c1", Type: model.NodeContact, Name: "Sarah", Email: "schen@example.com", UserID: 7},
		}, nil),
	}
	s := newTestService(mock)

	created, err := s.runProfileEmail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	edges := mock.createdEdges(driver.CreateSameAsQuery)
	require.Len(t, edges, 1)
	assert.Equal(t, 0.95, edges[0]["confidence"])
	assert.Equal(t, "profile_email", edges[0]["method"])
}

func TestRunFuzzyNameBands(t *testing.T) {
	mock := &MockDriver{
		Handler: graphFixture([]model.Entity{
			{UUID: "p1", Type: model.NodePerson, Name: "Jon Smith", UserID: 7},
			// ratio 0.9 -> high band
			{UUID: "c1", Type: model.NodeContact, Name: "John Smith", UserID: 7},
			// far off -> no link
			{UUID: "c2", Type: model.NodeContact, Name: "David Lee", UserID: 7},
		}, nil),
	}
	s := newTestService(mock)

	created, err := s.runFuzzyName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	edges := mock.createdEdges(driver.CreateSameAsQuery)
	require.Len(t, edges, 1)
	assert.Equal(t, 0.80, edges[0]["confidence"])
	assert.Equal(t, "fuzzy_name", edges[0]["method"])
}

func TestRunFuzzyNameMidBand(t *testing.T) {
	mock := &MockDriver{
		Handler: graphFixture([]model.Entity{
			{UUID: "p1", Type: model.NodePerson, Name: "Jonathan Smith", UserID: 7},
			// two edits over fourteen characters: ratio ~0.857
			{UUID: "c1", Type: model.NodeContact, Name: "Jonathen Smyth", UserID: 7},
		}, nil),
	}
	s := newTestService(mock)

	created, err := s.runFuzzyName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	edges := mock.createdEdges(driver.CreateSameAsQuery)
	require.Len(t, edges, 1)
	assert.Equal(t, 0.65, edges[0]["confidence"])
}

func TestRunNicknameLastNameRule(t *testing.T) {
	mock := &MockDriver{
		Handler: graphFixture([]model.Entity{
			{UUID: "p1", Type: model.NodePerson, Name: "Robert Smith", UserID: 7},
			// nickname + same last name: linked
			{UUID: "c1", Type: model.NodeContact, Name: "Bob Smith", UserID: 7},
			// nickname but conflicting last name: not linked
			{UUID: "c2", Type: model.NodeContact, Name: "Bob Jones", UserID: 7},
			// nickname with no last name at all: linked
			{UUID: "c3", Type: model.NodeContact, Name: "Bobby", UserID: 7},
		}, nil),
	}
	s := newTestService(mock)

	created, err := s.runNickname(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	edges := mock.createdEdges(driver.CreateSameAsQuery)
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, 0.75, e["confidence"])
		assert.Equal(t, "nickname_match", e["method"])
		assert.NotEqual(t, "c2", e["to_uuid"])
	}
}

func TestRunTaskEventTitleMatch(t *testing.T) {
	mock := &MockDriver{
		Handler: graphFixture(nil, []model.ContentNode{
			{UUID: "t1", Type: model.NodeActionItem, Title: "Prepare Q3 budget review", UserID: 7},
			{UUID: "e1", Type: model.NodeCalendarEvent, Title: "Prepare Q3 budget review", Source: "gcal", UserID: 7},
			{UUID: "e2", Type: model.NodeCalendarEvent, Title: "Dentist appointment", Source: "gcal", UserID: 7},
		}),
	}
	s := newTestService(mock)

	created, err := s.runTaskEvent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	edges := mock.createdEdges(driver.CreateRelatedToQuery)
	require.Len(t, edges, 1)
	assert.Equal(t, "t1", edges[0]["from_uuid"])
	assert.Equal(t, "e1", edges[0]["to_uuid"])
	assert.Equal(t, 1.0, edges[0]["confidence"])
	assert.Equal(t, "task_event_title", edges[0]["correlation_type"])
	assert.Equal(t, true, edges[0]["cross_app"])
	assert.Equal(t, "gcal", edges[0]["target_source"])
}

func TestRunMessageEmail(t *testing.T) {
	mock := &MockDriver{
		Handler: graphFixture(nil, []model.ContentNode{
			{UUID: "m1", Type: model.NodeMessage, UserID: 7,
				Participants: []string{"a@x.com", "b@x.com"},
				Keywords:     []string{"roadmap", "budget", "q3"}},
			// one shared participant, two shared keywords: linked
			{UUID: "e1", Type: model.NodeEmail, Source: "gmail", UserID: 7,
				Participants: []string{"a@x.com", "c@x.com"},
				Keywords:     []string{"budget", "q3", "launch"}},
			// one shared participant, one shared keyword: below both floors
			{UUID: "e2", Type: model.NodeEmail, Source: "gmail", UserID: 7,
				Participants: []string{"b@x.com"},
				Keywords:     []string{"roadmap"}},
			// no shared participants at all: never a candidate
			{UUID: "e3", Type: model.NodeEmail, Source: "gmail", UserID: 7,
				Participants: []string{"z@x.com"},
				Keywords:     []string{"roadmap", "budget", "q3"}},
		}),
	}
	s := newTestService(mock)

	created, err := s.runMessageEmail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	edges := mock.createdEdges(driver.CreateRelatedToQuery)
	require.Len(t, edges, 1)
	assert.Equal(t, "e1", edges[0]["to_uuid"])
	// 0.4 + 0.1*2 keywords + 0.15*1 participant
	assert.InDelta(t, 0.75, edges[0]["confidence"].(float64), 0.0001)
}

func TestRunMessageEmailConfidenceCap(t *testing.T) {
	mock := &MockDriver{
		Handler: graphFixture(nil, []model.ContentNode{
			{UUID: "m1", Type: model.NodeMessage, UserID: 7,
				Participants: []string{"a@x.com", "b@x.com", "c@x.com"},
				Keywords:     []string{"roadmap", "budget", "q3"}},
			{UUID: "e1", Type: model.NodeEmail, Source: "gmail", UserID: 7,
				Participants: []string{"a@x.com", "b@x.com", "c@x.com"},
				Keywords:     []string{"roadmap", "budget", "q3"}},
		}),
	}
	s := newTestService(mock)

	created, err := s.runMessageEmail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	edges := mock.createdEdges(driver.CreateRelatedToQuery)
	require.Len(t, edges, 1)
	assert.Equal(t, 0.8, edges[0]["confidence"])
}
