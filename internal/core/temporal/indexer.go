package temporal

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/agenthands/cortex/internal/config"
	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/driver"
)

// Indexer anchors events in the time-bucket hierarchy and mines episodes
// of correlated activity out of it.
type Indexer struct {
	Driver driver.GraphDriver
	Config config.TemporalConfig
}

func NewIndexer(d driver.GraphDriver, cfg config.TemporalConfig) *Indexer {
	return &Indexer{Driver: d, Config: cfg}
}

// EnsureTimeBlockExists creates the bucket containing ts if absent and
// returns its deterministic id. The new bucket is linked to its immediate
// predecessor when that predecessor already exists; earlier buckets are
// not backfilled.
func (ix *Indexer) EnsureTimeBlockExists(ctx context.Context, ts time.Time, g model.Granularity, userID int64) (string, error) {
	start, end, err := BucketFor(ts, g)
	if err != nil {
		return "", err
	}

	id := BlockID(g, start, userID)
	_, err = ix.Driver.ExecuteQuery(ctx, driver.MergeTimeBlockQuery, map[string]interface{}{
		"id":          id,
		"start_time":  start,
		"end_time":    end,
		"granularity": string(g),
		"label":       BlockLabel(g, start),
		"user_id":     userID,
		"created_at":  time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to ensure timeblock %s: %w", id, err)
	}

	ix.linkPredecessor(ctx, id, g, start, userID)
	return id, nil
}

// linkPredecessor wires PRECEDED/FOLLOWS to the adjacent earlier bucket,
// best effort.
func (ix *Indexer) linkPredecessor(ctx context.Context, id string, g model.Granularity, start time.Time, userID int64) {
	prevID := BlockID(g, PreviousBucketStart(start, g), userID)

	res, err := ix.Driver.ExecuteQuery(ctx, driver.GetTimeBlockQuery, map[string]interface{}{"id": prevID})
	if err != nil || len(res.Records) == 0 {
		return
	}

	_, err = ix.Driver.ExecuteQuery(ctx, driver.LinkAdjacentTimeBlocksQuery, map[string]interface{}{
		"prev_id": prevID,
		"curr_id": id,
	})
	if err != nil {
		log.Printf("Failed to link timeblocks %s -> %s: %v", prevID, id, err)
	}
}

// LinkEventToTimeBlock ensures the bucket and attaches the event to it.
// Returns false (and logs) on any graph error; never raises to ingestion.
func (ix *Indexer) LinkEventToTimeBlock(ctx context.Context, eventUUID string, ts time.Time, g model.Granularity, userID int64, relType model.EdgeType) bool {
	if relType == "" {
		relType = model.EdgeOccurredDuring
	}
	if relType != model.EdgeOccurredDuring && relType != model.EdgeScheduledFor {
		log.Printf("Refusing to link event %s with relationship '%s'", eventUUID, relType)
		return false
	}

	blockID, err := ix.EnsureTimeBlockExists(ctx, ts, g, userID)
	if err != nil {
		log.Printf("Failed to ensure timeblock for event %s: %v", eventUUID, err)
		return false
	}

	_, err = ix.Driver.ExecuteQuery(ctx, driver.LinkEventToTimeBlockQuery(string(relType)), map[string]interface{}{
		"event_uuid":   eventUUID,
		"timeblock_id": blockID,
		"created_at":   time.Now().UTC(),
	})
	if err != nil {
		log.Printf("Failed to link event %s to timeblock %s: %v", eventUUID, blockID, err)
		return false
	}
	return true
}

// Event is one row of a time-range query, decoded at the boundary.
type Event struct {
	UUID        string         `json:"uuid"`
	Type        model.NodeType `json:"type"`
	Title       string         `json:"title,omitempty"`
	Source      string         `json:"source,omitempty"`
	UserID      int64          `json:"user_id,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	TimeBlockID string         `json:"timeblock_id"`
}

// GetEventsInTimeBlock returns events anchored in buckets of the given
// granularity inside [start, end], optionally filtered by node type.
func (ix *Indexer) GetEventsInTimeBlock(ctx context.Context, start, end time.Time, g model.Granularity, types []model.NodeType, userID int64) ([]Event, error) {
	res, err := ix.Driver.ExecuteQuery(ctx, driver.EventsInRangeQuery, map[string]interface{}{
		"granularity": string(g),
		"start":       start.UTC(),
		"end":         end.UTC(),
		"user_id":     userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	typeFilter := make(map[model.NodeType]bool, len(types))
	for _, t := range types {
		typeFilter[t] = true
	}

	events := make([]Event, 0, len(res.Records))
	for _, rec := range res.Records {
		nodeType := model.NodeType(driver.RowString(rec, "type"))
		if len(typeFilter) > 0 && !typeFilter[nodeType] {
			continue
		}
		ts, _ := driver.RowTime(rec, "timestamp")
		events = append(events, Event{
			UUID:        driver.RowString(rec, "uuid"),
			Type:        nodeType,
			Title:       driver.RowString(rec, "title"),
			Source:      driver.RowString(rec, "source"),
			UserID:      driver.RowInt(rec, "user_id"),
			Timestamp:   ts,
			TimeBlockID: driver.RowString(rec, "timeblock_id"),
		})
	}
	return events, nil
}

// TimelineBucket is one bucket of a timeline with its activity summary.
type TimelineBucket struct {
	ID         string    `json:"id"`
	StartTime  time.Time `json:"start_time"`
	Label      string    `json:"label"`
	EventCount int64     `json:"event_count"`
	EventTypes []string  `json:"event_types,omitempty"`
}

// GetTimeline returns per-bucket event counts plus a truncated sample of
// event types, ordered by bucket start. This is the input episode
// detection walks over.
func (ix *Indexer) GetTimeline(ctx context.Context, userID int64, start, end time.Time, g model.Granularity) ([]TimelineBucket, error) {
	res, err := ix.Driver.ExecuteQuery(ctx, driver.TimelineQuery, map[string]interface{}{
		"granularity": string(g),
		"start":       start.UTC(),
		"end":         end.UTC(),
		"user_id":     userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}

	buckets := make([]TimelineBucket, 0, len(res.Records))
	for _, rec := range res.Records {
		st, _ := driver.RowTime(rec, "start_time")
		buckets = append(buckets, TimelineBucket{
			ID:         driver.RowString(rec, "id"),
			StartTime:  st,
			Label:      driver.RowString(rec, "label"),
			EventCount: driver.RowInt(rec, "event_count"),
			EventTypes: driver.RowStrings(rec, "event_types"),
		})
	}
	return buckets, nil
}
