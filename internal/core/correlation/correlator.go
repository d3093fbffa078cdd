package correlation

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/agenthands/cortex/internal/config"
	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/driver"
	"github.com/agenthands/cortex/internal/vector"
)

// Correlation is a discovered cross-application semantic link.
type Correlation struct {
	SourceID     string    `json:"source_id"`
	TargetID     string    `json:"target_id"`
	TargetSource string    `json:"target_source"`
	Similarity   float64   `json:"similarity"`
	Preview      string    `json:"preview"`
	DiscoveredAt time.Time `json:"discovered_at"`
	EdgeType     string    `json:"edge_type,omitempty"`
}

// Correlator links semantically similar content across source
// applications. Every public method catches and logs its own failures
// and returns an empty result instead of propagating.
type Correlator struct {
	Driver driver.GraphDriver
	Index  vector.Index
	Config config.CorrelationConfig
}

func NewCorrelator(d driver.GraphDriver, index vector.Index, cfg config.CorrelationConfig) *Correlator {
	return &Correlator{Driver: d, Index: index, Config: cfg}
}

var followUpCues = []string{"follow up", "follow-up", "followup", "continuation"}

func hasFollowUpCue(text string) bool {
	lower := strings.ToLower(text)
	for _, cue := range followUpCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}

// CorrelateOnIndex finds content from other applications similar to the
// freshly indexed node and, when createRelationships is set, persists a
// graph edge per correlation.
func (c *Correlator) CorrelateOnIndex(ctx context.Context, node model.ContentNode, createRelationships bool) []Correlation {
	if !model.IsContentType(node.Type) {
		return nil
	}
	text := node.SearchableText()
	if len(text) < c.Config.MinContentLength {
		return nil
	}

	hits, err := c.Index.Search(ctx, text, c.Config.MaxCorrelations*4, vector.Filters{
		UserID:      node.UserID,
		ExcludeUUID: node.UUID,
	})
	if err != nil {
		log.Printf("Correlation search failed for %s: %v", node.UUID, err)
		return nil
	}

	var correlations []Correlation
	now := time.Now().UTC()
	for _, hit := range hits {
		if len(correlations) >= c.Config.MaxCorrelations {
			break
		}
		if hit.Source == node.Source || hit.Score < c.Config.Threshold {
			continue
		}

		corr := Correlation{
			SourceID:     node.UUID,
			TargetID:     hit.NodeUUID,
			TargetSource: hit.Source,
			Similarity:   hit.Score,
			Preview:      preview(hit.Content),
			DiscoveredAt: now,
		}

		edgeType := model.EdgeRelatedTo
		correlationType := "semantic"
		context_ := ""
		if hit.Score > 0.8 && hasFollowUpCue(corr.Preview) {
			edgeType = model.EdgeFollows
			correlationType = "semantic"
			context_ = "follow_up"
		}
		corr.EdgeType = string(edgeType)

		if createRelationships {
			c.createEdge(ctx, corr, edgeType, correlationType, context_)
		}
		correlations = append(correlations, corr)
	}
	return correlations
}

// createEdge persists one correlation edge. A missing endpoint skips the
// edge without retrying; the correlation itself is still reported.
func (c *Correlator) createEdge(ctx context.Context, corr Correlation, edgeType model.EdgeType, correlationType, context_ string) {
	for _, uuid_ := range []string{corr.SourceID, corr.TargetID} {
		res, err := c.Driver.ExecuteQuery(ctx, driver.GetNodeQuery, map[string]interface{}{"uuid": uuid_})
		if err != nil || len(res.Records) == 0 {
			log.Printf("Skipping correlation edge: node %s not found", uuid_)
			return
		}
	}

	_, err := c.Driver.ExecuteQuery(ctx, driver.CreateCorrelationEdgeQuery(string(edgeType)), map[string]interface{}{
		"from_uuid":        corr.SourceID,
		"to_uuid":          corr.TargetID,
		"confidence":       corr.Similarity,
		"correlation_type": correlationType,
		"context":          context_,
		"discovered_at":    corr.DiscoveredAt,
		"cross_app":        true,
		"target_source":    corr.TargetSource,
	})
	if err != nil {
		log.Printf("Failed to create correlation edge %s -> %s: %v", corr.SourceID, corr.TargetID, err)
	}
}

// FindRelatedDocumentsForMeeting surfaces documents relevant to an
// upcoming meeting. A document owned by an attendee gets a 1.3x
// similarity boost (capped at 1.0); links above the persistence cutoff
// are stored as meeting_prep relationships.
func (c *Correlator) FindRelatedDocumentsForMeeting(ctx context.Context, eventUUID, title, description string, attendeeEmails []string, userID int64, maxDocs int) []Correlation {
	if maxDocs <= 0 {
		maxDocs = 5
	}
	query := strings.TrimSpace(title + "\n" + description)
	if len(query) < c.Config.MinContentLength {
		return nil
	}

	hits, err := c.Index.Search(ctx, query, maxDocs*4, vector.Filters{
		UserID:      userID,
		ExcludeUUID: eventUUID,
		Types:       []model.NodeType{model.NodeDocument},
	})
	if err != nil {
		log.Printf("Meeting document search failed for %s: %v", eventUUID, err)
		return nil
	}

	attendees := make(map[string]bool, len(attendeeEmails))
	for _, email := range attendeeEmails {
		attendees[strings.ToLower(email)] = true
	}

	var docs []Correlation
	now := time.Now().UTC()
	for _, hit := range hits {
		if len(docs) >= maxDocs {
			break
		}

		score := hit.Score
		if hit.OwnerEmail != "" && attendees[strings.ToLower(hit.OwnerEmail)] {
			score *= 1.3
			if score > 1.0 {
				score = 1.0
			}
		}
		if score < c.Config.Threshold {
			continue
		}

		corr := Correlation{
			SourceID:     eventUUID,
			TargetID:     hit.NodeUUID,
			TargetSource: hit.Source,
			Similarity:   score,
			Preview:      preview(hit.Content),
			DiscoveredAt: now,
			EdgeType:     string(model.EdgeRelatedTo),
		}
		if score >= c.Config.MeetingPrepCutoff {
			c.createEdge(ctx, corr, model.EdgeRelatedTo, "meeting_prep", "")
		}
		docs = append(docs, corr)
	}
	return docs
}

// GetCrossAppContext runs one similarity search and groups the hits by
// source application, capped per application. The primary source is
// excluded; the caller already has that context.
func (c *Correlator) GetCrossAppContext(ctx context.Context, query string, userID int64, primarySource string, maxPerApp int) map[string][]vector.Hit {
	if maxPerApp <= 0 {
		maxPerApp = 3
	}

	hits, err := c.Index.Search(ctx, query, maxPerApp*8, vector.Filters{UserID: userID})
	if err != nil {
		log.Printf("Cross-app context search failed: %v", err)
		return map[string][]vector.Hit{}
	}

	grouped := make(map[string][]vector.Hit)
	for _, hit := range hits {
		if hit.Source == "" || hit.Source == primarySource {
			continue
		}
		if hit.Score < c.Config.Threshold {
			continue
		}
		if len(grouped[hit.Source]) >= maxPerApp {
			continue
		}
		grouped[hit.Source] = append(grouped[hit.Source], hit)
	}
	return grouped
}
