package resolution

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/agenthands/cortex/internal/config"
	"github.com/agenthands/cortex/internal/core/common"
	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/driver"
)

// Stats summarizes one resolution cycle. Strategy counts are edges
// created, not pairs considered.
type Stats struct {
	EmailExact   int `json:"email_exact"`
	ProfileEmail int `json:"profile_email"`
	FuzzyName    int `json:"fuzzy_name"`
	Nickname     int `json:"nickname"`
	TaskEvent    int `json:"task_event"`
	MessageEmail int `json:"message_email"`

	HighConfidence int `json:"high_confidence"`
	LowConfidence  int `json:"low_confidence"`
	Errors         int `json:"errors"`
}

func (s Stats) Total() int {
	return s.EmailExact + s.ProfileEmail + s.FuzzyName + s.Nickname + s.TaskEvent + s.MessageEmail
}

// Service links duplicate or related entities across ingestion sources.
// A background loop runs the full strategy set on an interval; ingestion
// calls ResolveImmediately for the cheap exact checks.
type Service struct {
	Driver driver.GraphDriver
	Config config.ResolutionConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewService(d driver.GraphDriver, cfg config.ResolutionConfig) *Service {
	return &Service{Driver: d, Config: cfg}
}

type strategy struct {
	name  string
	run   func(ctx context.Context) (int, error)
	tally func(st *Stats, created int)
}

// RunResolutionCycle runs every strategy once, in fixed priority order.
// It never returns an error: a strategy failure is counted and logged,
// and the remaining strategies still run.
func (s *Service) RunResolutionCycle(ctx context.Context) Stats {
	var stats Stats

	strategies := []strategy{
		{"email_exact", s.runEmailExact, func(st *Stats, n int) { st.EmailExact = n; st.HighConfidence += n }},
		{"profile_email", s.runProfileEmail, func(st *Stats, n int) { st.ProfileEmail = n; st.HighConfidence += n }},
		{"fuzzy_name", s.runFuzzyName, func(st *Stats, n int) { st.FuzzyName = n }},
		{"nickname", s.runNickname, func(st *Stats, n int) { st.Nickname = n }},
		{"task_event", s.runTaskEvent, func(st *Stats, n int) { st.TaskEvent = n }},
		{"message_email", s.runMessageEmail, func(st *Stats, n int) { st.MessageEmail = n }},
	}

	for _, strat := range strategies {
		created, err := s.runIsolated(ctx, strat)
		if err != nil {
			log.Printf("Resolution strategy %s failed: %v", strat.name, err)
			stats.Errors++
			continue
		}
		strat.tally(&stats, created)
	}

	// Fuzzy low-band and nickname links land below 0.8.
	stats.LowConfidence = stats.FuzzyName + stats.Nickname

	return stats
}

// runIsolated keeps a panicking strategy from taking down the cycle.
func (s *Service) runIsolated(ctx context.Context, strat strategy) (created int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", strat.name, r)
		}
	}()
	return strat.run(ctx)
}

// Start launches the background resolution loop. Calling Start on a
// running service is a no-op.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done

	interval := s.Config.Interval()
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		defer close(done)
		log.Printf("Entity resolution loop started (interval %s)", interval)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			stats := s.RunResolutionCycle(ctx)
			if stats.Total() > 0 || stats.Errors > 0 {
				log.Printf("Resolution cycle: %d edges created, %d errors", stats.Total(), stats.Errors)
			}

			select {
			case <-ctx.Done():
				log.Println("Entity resolution loop stopped")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop signals the loop and waits for the in-flight cycle to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// ResolveImmediately runs only the email-exact and exact-name checks for
// one freshly created Person/Contact so ingestion does not wait for the
// next cycle. It is time-bounded and never returns an error to the
// ingestion path.
func (s *Service) ResolveImmediately(node model.Entity) int {
	if node.Type != model.NodePerson && node.Type != model.NodeContact {
		return 0
	}

	timeout := s.Config.ImmediateTimeout()
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	created := 0
	for _, label := range []model.NodeType{model.NodePerson, model.NodeContact, model.NodeUser} {
		candidates, err := s.fetchEntities(ctx, label, node.UserID)
		if err != nil {
			log.Printf("Immediate resolution fetch failed for %s: %v", label, err)
			return created
		}

		for _, cand := range candidates {
			if cand.UUID == node.UUID {
				continue
			}

			if node.Email != "" && cand.Email != "" && common.NormalizeName(node.Email) == common.NormalizeName(cand.Email) {
				if s.createSameAs(ctx, node.UUID, cand.UUID, 1.0, "email_exact") {
					created++
				}
				continue
			}

			if node.Name != "" && cand.Name != "" && common.NormalizeName(node.Name) == common.NormalizeName(cand.Name) {
				if s.createSameAs(ctx, node.UUID, cand.UUID, 0.9, "name_exact") {
					created++
				}
			}
		}
	}
	return created
}

// fetchEntities loads all person-like nodes of one label. userID 0 means
// unscoped (used by the cycle, which pairs within user scope itself).
func (s *Service) fetchEntities(ctx context.Context, label model.NodeType, userID int64) ([]model.Entity, error) {
	query := fmt.Sprintf(driver.GetEntitiesByLabelQuery, label)
	res, err := s.Driver.ExecuteQuery(ctx, query, map[string]interface{}{"user_id": userID})
	if err != nil {
		return nil, err
	}

	entities := make([]model.Entity, 0, len(res.Records))
	for _, rec := range res.Records {
		created, _ := driver.RowTime(rec, "created_at")
		entities = append(entities, model.Entity{
			UUID:       driver.RowString(rec, "uuid"),
			Type:       model.NodeType(driver.RowString(rec, "type")),
			Name:       driver.RowString(rec, "name"),
			Email:      driver.RowString(rec, "email"),
			Source:     driver.RowString(rec, "source"),
			UserID:     driver.RowInt(rec, "user_id"),
			CreatedAt:  created,
			Attributes: driver.RowMap(rec, "props"),
		})
	}
	return entities, nil
}

func (s *Service) fetchContent(ctx context.Context, label model.NodeType) ([]model.ContentNode, error) {
	query := fmt.Sprintf(driver.GetContentByLabelQuery, label)
	res, err := s.Driver.ExecuteQuery(ctx, query, map[string]interface{}{"user_id": int64(0)})
	if err != nil {
		return nil, err
	}

	nodes := make([]model.ContentNode, 0, len(res.Records))
	for _, rec := range res.Records {
		ts, _ := driver.RowTime(rec, "timestamp")
		created, _ := driver.RowTime(rec, "created_at")
		nodes = append(nodes, model.ContentNode{
			UUID:         driver.RowString(rec, "uuid"),
			Type:         model.NodeType(driver.RowString(rec, "type")),
			Title:        driver.RowString(rec, "title"),
			Content:      driver.RowString(rec, "content"),
			Source:       driver.RowString(rec, "source"),
			UserID:       driver.RowInt(rec, "user_id"),
			Participants: driver.RowStrings(rec, "participants"),
			Keywords:     driver.RowStrings(rec, "keywords"),
			Timestamp:    ts,
			CreatedAt:    created,
		})
	}
	return nodes, nil
}

// sameAsExists is the direction-agnostic existence check run before every
// SAME_AS insert.
func (s *Service) sameAsExists(ctx context.Context, a, b string) (bool, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.CheckSameAsExistsQuery, map[string]interface{}{
		"a": a, "b": b,
	})
	if err != nil {
		return false, err
	}
	if len(res.Records) == 0 {
		return false, nil
	}
	return driver.RowInt(res.Records[0], "cnt") > 0, nil
}

func (s *Service) relatedExists(ctx context.Context, a, b string) (bool, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.CheckRelatedExistsQuery, map[string]interface{}{
		"a": a, "b": b,
	})
	if err != nil {
		return false, err
	}
	if len(res.Records) == 0 {
		return false, nil
	}
	return driver.RowInt(res.Records[0], "cnt") > 0, nil
}

// createSameAs checks for an existing link and inserts one if absent.
// Returns true only when an edge was actually created.
func (s *Service) createSameAs(ctx context.Context, from, to string, confidence float64, method string) bool {
	if from == to {
		return false
	}
	exists, err := s.sameAsExists(ctx, from, to)
	if err != nil {
		log.Printf("SAME_AS existence check failed (%s, %s): %v", from, to, err)
		return false
	}
	if exists {
		return false
	}

	_, err = s.Driver.ExecuteQuery(ctx, driver.CreateSameAsQuery, map[string]interface{}{
		"from_uuid":        from,
		"to_uuid":          to,
		"confidence":       confidence,
		"method":           method,
		"is_auto_resolved": true,
		"created_at":       time.Now().UTC(),
	})
	if err != nil {
		log.Printf("Failed to create SAME_AS (%s, %s): %v", from, to, err)
		return false
	}
	return true
}

func (s *Service) createRelatedTo(ctx context.Context, from, to string, confidence float64, correlationType, context_ string, crossApp bool, targetSource string) bool {
	if from == to {
		return false
	}
	exists, err := s.relatedExists(ctx, from, to)
	if err != nil {
		log.Printf("RELATED_TO existence check failed (%s, %s): %v", from, to, err)
		return false
	}
	if exists {
		return false
	}

	_, err = s.Driver.ExecuteQuery(ctx, driver.CreateRelatedToQuery, map[string]interface{}{
		"from_uuid":        from,
		"to_uuid":          to,
		"confidence":       confidence,
		"correlation_type": correlationType,
		"context":          context_,
		"discovered_at":    time.Now().UTC(),
		"cross_app":        crossApp,
		"target_source":    targetSource,
	})
	if err != nil {
		log.Printf("Failed to create RELATED_TO (%s, %s): %v", from, to, err)
		return false
	}
	return true
}
