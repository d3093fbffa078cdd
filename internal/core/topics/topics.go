package topics

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/cortex/internal/config"
	"github.com/agenthands/cortex/internal/core/common"
	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/driver"
	"github.com/agenthands/cortex/internal/llm"
)

// Candidate is one topic proposed by the extractor for a piece of content.
type Candidate struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Keywords   []string `json:"keywords"`
	Confidence float64  `json:"confidence"`
}

type extractionResult struct {
	Topics []Candidate `json:"topics"`
}

const extractPrompt = `Extract up to 3 topics from the following content.
A topic is a project, subject area, or recurring theme, not a person or date.

Content:
%s

Return a JSON object:
{
  "topics": [
    {"name": "...", "category": "work|personal|project|other", "keywords": ["...", "..."], "confidence": 0.0}
  ]
}`

const equivalencePrompt = `Are these two topics the same subject?

Topic A: %s (keywords: %s)
Topic B: %s (keywords: %s)

Answer with a single word: yes or no.`

// Service extracts topics from content and resolves them against the
// graph so equivalent topics reuse one node. The name cache is only a
// best-effort shortcut; the MERGE on (name, user_id) is what actually
// keeps concurrent creation from duplicating nodes.
type Service struct {
	Driver driver.GraphDriver
	LLM    llm.LLMClient
	Config config.TopicsConfig

	mu    sync.Mutex
	cache map[string]string // normalized name + user -> topic uuid
}

func NewService(d driver.GraphDriver, llmClient llm.LLMClient, cfg config.TopicsConfig) *Service {
	return &Service{
		Driver: d,
		LLM:    llmClient,
		Config: cfg,
		cache:  make(map[string]string),
	}
}

// Extract asks the model for topic candidates in the given content.
func (s *Service) Extract(ctx context.Context, content string) ([]Candidate, error) {
	if s.LLM == nil {
		return nil, fmt.Errorf("no llm client configured")
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	response, err := s.LLM.Generate(ctx, fmt.Sprintf(extractPrompt, content))
	if err != nil {
		return nil, fmt.Errorf("failed to generate topics: %w", err)
	}

	result, err := common.ParseJSON[extractionResult](response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse topics: %w", err)
	}

	var out []Candidate
	for _, c := range result.Topics {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		if c.Confidence < 0 {
			c.Confidence = 0
		}
		if c.Confidence > 1 {
			c.Confidence = 1
		}
		out = append(out, c)
	}
	return out, nil
}

// Resolve returns the uuid of an existing equivalent topic, or creates a
// new Topic node. Equivalence is name similarity, then keyword overlap,
// then a model yes/no adjudication for near-miss names.
func (s *Service) Resolve(ctx context.Context, cand Candidate, userID int64, app string) (string, error) {
	key := common.NormalizeName(cand.Name) + "|" + fmt.Sprint(userID)

	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		if err := s.touch(ctx, cached, app); err != nil {
			log.Printf("Failed to touch cached topic %s: %v", cached, err)
		}
		return cached, nil
	}

	existing, err := s.list(ctx, userID)
	if err != nil {
		return "", err
	}

	for _, t := range existing {
		if s.equivalent(ctx, cand, t) {
			s.remember(key, t.UUID)
			if err := s.touch(ctx, t.UUID, app); err != nil {
				log.Printf("Failed to touch topic %s: %v", t.UUID, err)
			}
			return t.UUID, nil
		}
	}

	newUUID := uuid.New().String()
	now := time.Now().UTC()
	relatedApps := []string{}
	if app != "" {
		relatedApps = append(relatedApps, app)
	}

	res, err := s.Driver.ExecuteQuery(ctx, driver.MergeTopicQuery, map[string]interface{}{
		"uuid":           newUUID,
		"name":           cand.Name,
		"user_id":        userID,
		"category":       cand.Category,
		"keywords":       cand.Keywords,
		"confidence":     cand.Confidence,
		"related_apps":   relatedApps,
		"created_at":     now,
		"last_mentioned": now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create topic '%s': %w", cand.Name, err)
	}

	// MERGE may have returned an existing node created by a concurrent
	// caller; trust the uuid from the store, not the one we generated.
	resolved := newUUID
	if len(res.Records) > 0 {
		if got := driver.RowString(res.Records[0], "uuid"); got != "" {
			resolved = got
		}
	}
	s.remember(key, resolved)
	return resolved, nil
}

// TagContent extracts topics from the node and links it to each resolved
// topic via DISCUSSES. Extraction failure is logged and yields no tags.
func (s *Service) TagContent(ctx context.Context, node model.ContentNode) []string {
	cands, err := s.Extract(ctx, node.SearchableText())
	if err != nil {
		log.Printf("Topic extraction failed for %s: %v", node.UUID, err)
		return nil
	}

	var tagged []string
	now := time.Now().UTC()
	for _, cand := range cands {
		topicUUID, err := s.Resolve(ctx, cand, node.UserID, node.Source)
		if err != nil {
			log.Printf("Topic resolution failed for '%s': %v", cand.Name, err)
			continue
		}

		_, err = s.Driver.ExecuteQuery(ctx, driver.LinkDiscussesQuery, map[string]interface{}{
			"event_uuid": node.UUID,
			"topic_uuid": topicUUID,
			"source":     node.Source,
			"first_seen": now,
		})
		if err != nil {
			log.Printf("Failed to link %s DISCUSSES %s: %v", node.UUID, topicUUID, err)
			continue
		}
		tagged = append(tagged, topicUUID)
	}
	return tagged
}

func (s *Service) equivalent(ctx context.Context, cand Candidate, existing model.Topic) bool {
	nameSim := common.SimilarityRatio(cand.Name, existing.Name)
	if nameSim >= s.Config.NameSimilarity {
		return true
	}
	if common.Jaccard(cand.Keywords, existing.Keywords) >= s.Config.KeywordJaccard {
		return true
	}

	// Only burn a model call on plausible near-misses.
	if s.LLM == nil || nameSim < 0.5 {
		return false
	}
	prompt := fmt.Sprintf(equivalencePrompt,
		cand.Name, strings.Join(cand.Keywords, ", "),
		existing.Name, strings.Join(existing.Keywords, ", "))
	response, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		log.Printf("Topic equivalence check failed: %v", err)
		return false
	}
	return common.ParseYesNo(response)
}

func (s *Service) list(ctx context.Context, userID int64) ([]model.Topic, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.ListTopicsQuery, map[string]interface{}{
		"user_id": userID,
	})
	if err != nil {
		return nil, err
	}

	topics := make([]model.Topic, 0, len(res.Records))
	for _, rec := range res.Records {
		conf, _ := driver.RowFloat(rec, "confidence")
		lm, _ := driver.RowTime(rec, "last_mentioned")
		topics = append(topics, model.Topic{
			UUID:          driver.RowString(rec, "uuid"),
			Name:          driver.RowString(rec, "name"),
			Category:      driver.RowString(rec, "category"),
			Keywords:      driver.RowStrings(rec, "keywords"),
			Confidence:    conf,
			RelatedApps:   driver.RowStrings(rec, "related_apps"),
			EntityCount:   driver.RowInt(rec, "entity_count"),
			LastMentioned: lm,
			UserID:        driver.RowInt(rec, "user_id"),
		})
	}
	return topics, nil
}

func (s *Service) touch(ctx context.Context, topicUUID, app string) error {
	_, err := s.Driver.ExecuteQuery(ctx, driver.TouchTopicQuery, map[string]interface{}{
		"uuid":           topicUUID,
		"app":            app,
		"last_mentioned": time.Now().UTC(),
	})
	return err
}

func (s *Service) remember(key, topicUUID string) {
	s.mu.Lock()
	s.cache[key] = topicUUID
	s.mu.Unlock()
}
