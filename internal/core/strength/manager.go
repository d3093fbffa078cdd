package strength

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/agenthands/cortex/internal/config"
	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/driver"
)

// DecayStats summarizes one decay pass.
type DecayStats struct {
	Processed int `json:"processed"`
	Decayed   int `json:"decayed"`
	Pruned    int `json:"pruned"`
	Skipped   int `json:"skipped"`
}

// Manager maintains the [0,1] strength score on interaction edges:
// reinforcement grows it logarithmically, inactivity past the grace
// period shrinks it, and edges that fall under the floor are marked
// pruned with strength 0 (never deleted).
type Manager struct {
	Driver driver.GraphDriver
	Config config.StrengthConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(d driver.GraphDriver, cfg config.StrengthConfig) *Manager {
	return &Manager{Driver: d, Config: cfg}
}

func interactionTypeStrings() []interface{} {
	out := make([]interface{}, 0, len(model.InteractionEdgeTypes))
	for _, t := range model.InteractionEdgeTypes {
		out = append(out, string(t))
	}
	return out
}

// Reinforce records one interaction on the (from, to, type) edge. Each
// successive interaction adds less: increment = base*weight/ln(n+1+e).
func (m *Manager) Reinforce(ctx context.Context, fromUUID, toUUID string, edgeType model.EdgeType, weight float64) (*model.InteractionEdge, error) {
	if !model.IsInteractionType(edgeType) {
		return nil, fmt.Errorf("'%s' is not an interaction edge type", edgeType)
	}
	if weight <= 0 {
		weight = 1.0
	}

	now := time.Now().UTC()
	edge := model.InteractionEdge{
		FromUUID:  fromUUID,
		ToUUID:    toUUID,
		Type:      edgeType,
		Strength:  m.Config.Default,
		FirstSeen: now,
	}

	res, err := m.Driver.ExecuteQuery(ctx, driver.GetInteractionEdgeQuery, map[string]interface{}{
		"from_uuid": fromUUID,
		"to_uuid":   toUUID,
		"type":      string(edgeType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read edge: %w", err)
	}
	if len(res.Records) > 0 {
		rec := res.Records[0]
		if s, ok := driver.RowFloat(rec, "strength"); ok {
			edge.Strength = s
		}
		edge.InteractionCount = driver.RowInt(rec, "interaction_count")
		if fs, ok := driver.RowTime(rec, "first_seen"); ok {
			edge.FirstSeen = fs
		}
	}

	edge.InteractionCount++
	increment := m.Config.BaseIncrement * weight / math.Log(float64(edge.InteractionCount)+1+math.E)
	edge.Strength = math.Min(m.Config.Max, edge.Strength+increment)
	edge.LastInteraction = now

	_, err = m.Driver.ExecuteQuery(ctx, driver.CreateInteractionEdgeQuery(string(edgeType)), map[string]interface{}{
		"from_uuid":         fromUUID,
		"to_uuid":           toUUID,
		"strength":          edge.Strength,
		"interaction_count": edge.InteractionCount,
		"first_seen":        edge.FirstSeen,
		"last_interaction":  edge.LastInteraction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist edge: %w", err)
	}
	return &edge, nil
}

// ApplyDecayAll decays every interaction edge whose last interaction is
// older than the grace period. Edges with malformed timestamps are
// skipped and logged, never abort the batch.
func (m *Manager) ApplyDecayAll(ctx context.Context) (DecayStats, error) {
	var stats DecayStats

	res, err := m.Driver.ExecuteQuery(ctx, driver.GetStaleInteractionEdgesQuery, map[string]interface{}{
		"types": interactionTypeStrings(),
	})
	if err != nil {
		return stats, fmt.Errorf("failed to list interaction edges: %w", err)
	}

	now := time.Now().UTC()
	grace := float64(m.Config.GracePeriodDays)

	for _, rec := range res.Records {
		stats.Processed++

		lastInteraction, ok := driver.RowTime(rec, "last_interaction")
		if !ok {
			log.Printf("Skipping edge %s->%s: missing or malformed last_interaction",
				driver.RowString(rec, "from_uuid"), driver.RowString(rec, "to_uuid"))
			stats.Skipped++
			continue
		}
		strengthVal, ok := driver.RowFloat(rec, "strength")
		if !ok {
			stats.Skipped++
			continue
		}

		daysSince := now.Sub(lastInteraction).Hours() / 24
		if daysSince <= grace {
			continue
		}

		daysOver := daysSince - grace
		newStrength := strengthVal * math.Pow(1-m.Config.DecayRate, daysOver)

		pruned := false
		if newStrength < m.Config.Min {
			newStrength = 0
			pruned = true
		}

		_, err := m.Driver.ExecuteQuery(ctx, driver.UpdateEdgeStrengthQuery, map[string]interface{}{
			"from_uuid": driver.RowString(rec, "from_uuid"),
			"to_uuid":   driver.RowString(rec, "to_uuid"),
			"type":      driver.RowString(rec, "type"),
			"strength":  newStrength,
			"pruned":    pruned,
		})
		if err != nil {
			log.Printf("Failed to persist decay for %s->%s: %v",
				driver.RowString(rec, "from_uuid"), driver.RowString(rec, "to_uuid"), err)
			stats.Skipped++
			continue
		}

		if pruned {
			stats.Pruned++
		} else {
			stats.Decayed++
		}
	}

	return stats, nil
}

// GetStrongestRelationships returns unpruned edges touching the node
// with strength >= minStrength, strongest first.
func (m *Manager) GetStrongestRelationships(ctx context.Context, nodeUUID string, limit int, minStrength float64, types []model.EdgeType) ([]model.InteractionEdge, error) {
	if limit <= 0 {
		limit = 10
	}

	var typeParams []interface{}
	if len(types) > 0 {
		for _, t := range types {
			if model.IsInteractionType(t) {
				typeParams = append(typeParams, string(t))
			}
		}
	} else {
		typeParams = interactionTypeStrings()
	}

	res, err := m.Driver.ExecuteQuery(ctx, driver.StrongestRelationshipsQuery, map[string]interface{}{
		"uuid":         nodeUUID,
		"types":        typeParams,
		"min_strength": minStrength,
		"limit":        int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}

	edges := make([]model.InteractionEdge, 0, len(res.Records))
	for _, rec := range res.Records {
		strengthVal, _ := driver.RowFloat(rec, "strength")
		firstSeen, _ := driver.RowTime(rec, "first_seen")
		lastInteraction, _ := driver.RowTime(rec, "last_interaction")
		edges = append(edges, model.InteractionEdge{
			FromUUID:         driver.RowString(rec, "from_uuid"),
			ToUUID:           driver.RowString(rec, "to_uuid"),
			Type:             model.EdgeType(driver.RowString(rec, "type")),
			Strength:         strengthVal,
			InteractionCount: driver.RowInt(rec, "interaction_count"),
			FirstSeen:        firstSeen,
			LastInteraction:  lastInteraction,
		})
	}
	return edges, nil
}

// Start launches the daily decay loop. A crashed pass restarts after a
// fixed one-hour backoff instead of killing the loop.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done

	go func() {
		defer close(done)
		log.Println("Relationship decay loop started (daily)")

		for {
			wait := 24 * time.Hour
			if !m.runDecayPass(ctx) {
				wait = time.Hour // crash backoff
			}

			select {
			case <-ctx.Done():
				log.Println("Relationship decay loop stopped")
				return
			case <-time.After(wait):
			}
		}
	}()
}

// runDecayPass returns false when the pass panicked or errored, which
// triggers the backoff schedule.
func (m *Manager) runDecayPass(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Decay pass panicked: %v", r)
			ok = false
		}
	}()

	stats, err := m.ApplyDecayAll(ctx)
	if err != nil {
		log.Printf("Decay pass failed: %v", err)
		return false
	}
	if stats.Decayed > 0 || stats.Pruned > 0 {
		log.Printf("Decay pass: %d processed, %d decayed, %d pruned, %d skipped",
			stats.Processed, stats.Decayed, stats.Pruned, stats.Skipped)
	}
	return true
}

func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
