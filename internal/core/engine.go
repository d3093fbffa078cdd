package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/cortex/internal/config"
	"github.com/agenthands/cortex/internal/core/assembler"
	"github.com/agenthands/cortex/internal/core/correlation"
	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/core/resolution"
	"github.com/agenthands/cortex/internal/core/strength"
	"github.com/agenthands/cortex/internal/core/temporal"
	"github.com/agenthands/cortex/internal/core/topics"
	"github.com/agenthands/cortex/internal/driver"
	"github.com/agenthands/cortex/internal/llm"
	"github.com/agenthands/cortex/internal/vector"
)

// Engine wires the graph driver, LLM clients and every memory component
// behind the operations the rest of the application consumes.
type Engine struct {
	Driver   driver.GraphDriver
	LLM      llm.LLMClient
	Embedder llm.EmbedderClient
	Index    vector.Index

	Resolution *resolution.Service
	Strength   *strength.Manager
	Temporal   *temporal.Indexer
	Topics     *topics.Service
	Correlator *correlation.Correlator
	Assembler  *assembler.Assembler

	Config *config.Config

	// UUIDGenerator is swappable for deterministic tests.
	UUIDGenerator func() string
}

func NewEngine(d driver.GraphDriver, llmClient llm.LLMClient, embedderClient llm.EmbedderClient, cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}

	index := vector.NewGraphIndex(d, embedderClient)
	e := &Engine{
		Driver:        d,
		LLM:           llmClient,
		Embedder:      embedderClient,
		Index:         index,
		Resolution:    resolution.NewService(d, cfg.Resolution),
		Strength:      strength.NewManager(d, cfg.Strength),
		Temporal:      temporal.NewIndexer(d, cfg.Temporal),
		Topics:        topics.NewService(d, llmClient, cfg.Topics),
		Correlator:    correlation.NewCorrelator(d, index, cfg.Correlation),
		Config:        cfg,
		UUIDGenerator: func() string { return uuid.New().String() },
	}

	var counter llm.TokenCounter
	if llmClient != nil {
		counter, _ = llm.AsTokenCounter(llmClient)
	}
	e.Assembler = assembler.NewAssembler(assembler.Sources{
		Graph:    engineGraphSource{e},
		CrossApp: engineCrossAppSource{e},
		Temporal: engineTemporalSource{e},
	}, cfg.Assembler, counter)

	return e
}

func (e *Engine) BuildIndices(ctx context.Context) error {
	return e.Driver.BuildIndices(ctx)
}

// SetExternalSources attaches the out-of-process memory collaborators.
// Nil sources stay disabled.
func (e *Engine) SetExternalSources(conv assembler.ConversationSource, facts assembler.FactSource, insights assembler.InsightSource) {
	e.Assembler.Sources.Conversation = conv
	e.Assembler.Sources.Facts = facts
	e.Assembler.Sources.Insights = insights
}

// StartBackground launches the resolution and decay loops.
func (e *Engine) StartBackground() {
	e.Resolution.Start()
	e.Strength.Start()
}

func (e *Engine) StopBackground() {
	e.Resolution.Stop()
	e.Strength.Stop()
}

// SaveEntity persists a person-like node and immediately runs the cheap
// exact resolution checks against existing nodes.
func (e *Engine) SaveEntity(ctx context.Context, entity model.Entity) (*model.Entity, error) {
	switch entity.Type {
	case model.NodePerson, model.NodeContact, model.NodeUser:
	default:
		return nil, fmt.Errorf("'%s' is not an entity node type", entity.Type)
	}

	if entity.UUID == "" {
		entity.UUID = e.UUIDGenerator()
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC()
	}

	props := map[string]interface{}{}
	for k, v := range entity.Attributes {
		props[k] = v
	}

	_, err := e.Driver.ExecuteQuery(ctx, driver.SaveEntityNodeQuery(string(entity.Type)), map[string]interface{}{
		"uuid":       entity.UUID,
		"name":       entity.Name,
		"email":      entity.Email,
		"source":     entity.Source,
		"user_id":    entity.UserID,
		"created_at": entity.CreatedAt,
		"props":      props,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", entity.Type, err)
	}

	if created := e.Resolution.ResolveImmediately(entity); created > 0 {
		log.Printf("Immediate resolution linked %s to %d existing nodes", entity.UUID, created)
	}
	return &entity, nil
}

// IndexContent persists a content node and runs the full reaction chain:
// time anchoring, topic tagging, vector indexing, cross-app correlation,
// and participant reinforcement. Reaction failures are logged; the node
// itself is already durable.
func (e *Engine) IndexContent(ctx context.Context, node model.ContentNode) (*model.ContentNode, []correlation.Correlation, error) {
	if !model.IsContentType(node.Type) {
		return nil, nil, fmt.Errorf("'%s' is not a content node type", node.Type)
	}

	if node.UUID == "" {
		node.UUID = e.UUIDGenerator()
	}
	now := time.Now().UTC()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	if node.Timestamp.IsZero() {
		node.Timestamp = now
	}

	_, err := e.Driver.ExecuteQuery(ctx, driver.SaveContentNodeQuery(string(node.Type)), map[string]interface{}{
		"uuid":         node.UUID,
		"title":        node.Title,
		"content":      node.Content,
		"source":       node.Source,
		"user_id":      node.UserID,
		"participants": node.Participants,
		"keywords":     node.Keywords,
		"timestamp":    node.Timestamp,
		"created_at":   node.CreatedAt,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save %s: %w", node.Type, err)
	}

	// Anchor in the hour and day buckets.
	for _, g := range []model.Granularity{model.GranularityHour, model.GranularityDay} {
		e.Temporal.LinkEventToTimeBlock(ctx, node.UUID, node.Timestamp, g, node.UserID, model.EdgeOccurredDuring)
	}

	if e.LLM != nil {
		e.Topics.TagContent(ctx, node)
	}

	var correlations []correlation.Correlation
	if e.Embedder != nil {
		if err := e.Index.IndexNode(ctx, node); err != nil {
			log.Printf("Failed to index content %s: %v", node.UUID, err)
		} else {
			correlations = e.Correlator.CorrelateOnIndex(ctx, node, true)
		}
	}

	e.reinforceParticipants(ctx, node)

	return &node, correlations, nil
}

// reinforceParticipants bumps MENTIONS edges from the content node to
// each participant entity it names.
func (e *Engine) reinforceParticipants(ctx context.Context, node model.ContentNode) {
	for _, participant := range node.Participants {
		entityUUID, err := e.findEntityByEmail(ctx, participant, node.UserID)
		if err != nil || entityUUID == "" {
			continue
		}
		if _, err := e.Strength.Reinforce(ctx, node.UUID, entityUUID, model.EdgeMentions, 1.0); err != nil {
			log.Printf("Failed to reinforce %s MENTIONS %s: %v", node.UUID, entityUUID, err)
		}
	}
}

func (e *Engine) findEntityByEmail(ctx context.Context, email string, userID int64) (string, error) {
	for _, label := range []model.NodeType{model.NodePerson, model.NodeContact} {
		query := fmt.Sprintf(driver.GetEntitiesByLabelQuery, label)
		res, err := e.Driver.ExecuteQuery(ctx, query, map[string]interface{}{"user_id": userID})
		if err != nil {
			return "", err
		}
		for _, rec := range res.Records {
			if strings.EqualFold(driver.RowString(rec, "email"), email) {
				return driver.RowString(rec, "uuid"), nil
			}
		}
	}
	return "", nil
}

// engineGraphSource feeds graph multi-hop context into the assembler:
// entities named in the query, expanded through their strongest
// relationships.
type engineGraphSource struct{ e *Engine }

func (s engineGraphSource) GraphContext(ctx context.Context, query string, userID int64) ([]assembler.Item, error) {
	queryWords := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(query)) {
		queryWords[strings.Trim(w, ".,?!'\"")] = true
	}

	var items []assembler.Item
	for _, label := range []model.NodeType{model.NodePerson, model.NodeContact} {
		q := fmt.Sprintf(driver.GetEntitiesByLabelQuery, label)
		res, err := s.e.Driver.ExecuteQuery(ctx, q, map[string]interface{}{"user_id": userID})
		if err != nil {
			return nil, err
		}

		for _, rec := range res.Records {
			name := driver.RowString(rec, "name")
			if name == "" || !mentionsName(queryWords, name) {
				continue
			}
			entityUUID := driver.RowString(rec, "uuid")
			edges, err := s.e.Strength.GetStrongestRelationships(ctx, entityUUID, 5, 0.3, nil)
			if err != nil {
				continue
			}
			for _, edge := range edges {
				items = append(items, assembler.Item{
					Content: fmt.Sprintf("%s has a %s relationship (strength %.2f, %d interactions)",
						name, edge.Type, edge.Strength, edge.InteractionCount),
					Source: "graph",
					Score:  edge.Strength,
				})
			}
		}
	}
	return items, nil
}

func mentionsName(queryWords map[string]bool, name string) bool {
	for _, part := range strings.Fields(strings.ToLower(name)) {
		if queryWords[part] {
			return true
		}
	}
	return false
}

type engineCrossAppSource struct{ e *Engine }

func (s engineCrossAppSource) CrossAppContext(ctx context.Context, query string, userID int64) ([]assembler.Item, error) {
	grouped := s.e.Correlator.GetCrossAppContext(ctx, query, userID, "", 3)

	var items []assembler.Item
	for app, hits := range grouped {
		for _, hit := range hits {
			items = append(items, assembler.Item{
				Content: hit.Content,
				Source:  app,
				Score:   hit.Score,
			})
		}
	}
	return items, nil
}

type engineTemporalSource struct{ e *Engine }

func (s engineTemporalSource) TemporalContext(ctx context.Context, query string, userID int64) ([]assembler.Item, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -7)

	timeline, err := s.e.Temporal.GetTimeline(ctx, userID, start, end, model.GranularityDay)
	if err != nil {
		return nil, err
	}

	var items []assembler.Item
	for _, bucket := range timeline {
		if bucket.EventCount == 0 {
			continue
		}
		items = append(items, assembler.Item{
			Content: fmt.Sprintf("%s: %d events (%s)", bucket.Label, bucket.EventCount,
				strings.Join(bucket.EventTypes, ", ")),
			Source: "temporal",
		})
	}
	return items, nil
}

// AssembleContext produces the bounded context package for one query.
func (e *Engine) AssembleContext(ctx context.Context, req assembler.Request) assembler.AssembledContext {
	return e.Assembler.AssembleContext(ctx, req)
}
