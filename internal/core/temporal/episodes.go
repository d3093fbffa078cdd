package temporal

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/cortex/internal/core/common"
	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/driver"
)

// dayActivity is one day of the detection walk: its bucket, event count
// and dominant topic (empty uuid when none could be determined).
type dayActivity struct {
	bucket      TimelineBucket
	topicUUID   string
	topicName   string
	topicCounts map[string]topicCount
}

type topicCount struct {
	name     string
	mentions int64
}

// episodeRun is an open run of consecutive, topic-coherent days.
type episodeRun struct {
	days        []dayActivity
	topicUUID   string
	topicName   string
	totalEvents int64
}

// DetectEpisodes walks the day timeline for [start, end] and materializes
// an Episode node for every contiguous, topic-coherent stretch that is
// long (>= MinEpisodeDays) or busy (> MinEpisodeEvents events). A topic
// query failure for one day reads as "no dominant topic" for that day.
func (ix *Indexer) DetectEpisodes(ctx context.Context, userID int64, start, end time.Time) ([]model.Episode, error) {
	if userID == 0 {
		// Episodes are per-user derived state; an unscoped walk would mix users.
		return nil, fmt.Errorf("episode detection requires a user_id")
	}

	timeline, err := ix.GetTimeline(ctx, userID, start, end, model.GranularityDay)
	if err != nil {
		return nil, err
	}

	var days []dayActivity
	for _, bucket := range timeline {
		if bucket.EventCount == 0 {
			continue
		}
		day := dayActivity{bucket: bucket}
		day.topicUUID, day.topicName, day.topicCounts = ix.dominantTopic(ctx, bucket.ID)
		days = append(days, day)
	}

	var episodes []model.Episode
	var run *episodeRun

	flush := func() {
		if run == nil {
			return
		}
		if ep := ix.materializeRun(ctx, userID, run); ep != nil {
			episodes = append(episodes, *ep)
		}
		run = nil
	}

	for _, day := range days {
		switch {
		case run == nil:
			run = newRun(day)
		case ix.extendsRun(run, day):
			run.days = append(run.days, day)
			run.totalEvents += day.bucket.EventCount
		default:
			flush()
			run = newRun(day)
		}
	}
	flush()

	return episodes, nil
}

func newRun(day dayActivity) *episodeRun {
	return &episodeRun{
		days:        []dayActivity{day},
		topicUUID:   day.topicUUID,
		topicName:   day.topicName,
		totalEvents: day.bucket.EventCount,
	}
}

// extendsRun: same (or equivalent) dominant topic and a day gap <= the
// configured maximum.
func (ix *Indexer) extendsRun(run *episodeRun, day dayActivity) bool {
	last := run.days[len(run.days)-1]
	gapDays := day.bucket.StartTime.Sub(last.bucket.StartTime).Hours() / 24
	maxGap := float64(ix.Config.MaxEpisodeGap)
	if maxGap <= 0 {
		maxGap = 2
	}
	if gapDays > maxGap {
		return false
	}

	if run.topicUUID == "" || day.topicUUID == "" {
		return false
	}
	if run.topicUUID == day.topicUUID {
		return true
	}
	// Topic nodes are deduplicated at creation, but near-equal names can
	// still coexist; treat them as the same theme.
	return common.SimilarityRatio(run.topicName, day.topicName) >= 0.85
}

// materializeRun persists a closed run as an Episode when it passes the
// noise gate, and links its top topics via ACTIVE_DURING.
func (ix *Indexer) materializeRun(ctx context.Context, userID int64, run *episodeRun) *model.Episode {
	minDays := ix.Config.MinEpisodeDays
	if minDays <= 0 {
		minDays = 3
	}
	minEvents := int64(ix.Config.MinEpisodeEvents)
	if minEvents <= 0 {
		minEvents = 20
	}
	if len(run.days) < minDays && run.totalEvents <= minEvents {
		return nil
	}

	first := run.days[0].bucket
	last := run.days[len(run.days)-1].bucket
	endTime := last.StartTime.AddDate(0, 0, 1)

	name := run.topicName
	if name == "" {
		name = "Activity burst"
	}
	ep := model.Episode{
		UUID:        uuid.New().String(),
		Name:        fmt.Sprintf("%s (%s to %s)", name, first.Label, last.Label),
		Description: fmt.Sprintf("%d events across %d days centered on %s", run.totalEvents, len(run.days), name),
		StartTime:   first.StartTime,
		EndTime:     endTime,
		EventCount:  run.totalEvents,
		UserID:      userID,
	}
	ep.Significance = runSignificance(run)

	_, err := ix.Driver.ExecuteQuery(ctx, driver.CreateEpisodeQuery, map[string]interface{}{
		"uuid":         ep.UUID,
		"name":         ep.Name,
		"description":  ep.Description,
		"start_time":   ep.StartTime,
		"end_time":     ep.EndTime,
		"significance": ep.Significance,
		"event_count":  ep.EventCount,
		"user_id":      ep.UserID,
		"created_at":   time.Now().UTC(),
	})
	if err != nil {
		log.Printf("Failed to create episode '%s': %v", ep.Name, err)
		return nil
	}

	for _, tc := range topTopics(run, 3) {
		_, err := ix.Driver.ExecuteQuery(ctx, driver.LinkEpisodeTopicQuery, map[string]interface{}{
			"episode_uuid": ep.UUID,
			"topic_uuid":   tc.uuid,
			"weight":       tc.mentions,
		})
		if err != nil {
			log.Printf("Failed to link episode %s to topic %s: %v", ep.UUID, tc.uuid, err)
		}
	}

	return &ep
}

// runSignificance scores how far the run's daily activity stands above
// the materialization floor, in [0,1].
func runSignificance(run *episodeRun) float64 {
	perDay := float64(run.totalEvents) / float64(len(run.days))
	sig := perDay / 50.0
	if sig > 1 {
		sig = 1
	}
	return sig
}

type rankedTopic struct {
	uuid     string
	name     string
	mentions int64
}

func topTopics(run *episodeRun, n int) []rankedTopic {
	totals := make(map[string]*rankedTopic)
	for _, day := range run.days {
		for uuid_, tc := range day.topicCounts {
			if agg, ok := totals[uuid_]; ok {
				agg.mentions += tc.mentions
			} else {
				totals[uuid_] = &rankedTopic{uuid: uuid_, name: tc.name, mentions: tc.mentions}
			}
		}
	}

	ranked := make([]rankedTopic, 0, len(totals))
	for _, rt := range totals {
		ranked = append(ranked, *rt)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].mentions != ranked[j].mentions {
			return ranked[i].mentions > ranked[j].mentions
		}
		return ranked[i].uuid < ranked[j].uuid
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// dominantTopic returns the most-discussed topic in the bucket, plus the
// full top-3 counts for ACTIVE_DURING weighting. Failures collapse to
// "no dominant topic".
func (ix *Indexer) dominantTopic(ctx context.Context, bucketID string) (string, string, map[string]topicCount) {
	res, err := ix.Driver.ExecuteQuery(ctx, driver.DominantTopicForBlockQuery, map[string]interface{}{
		"timeblock_id": bucketID,
	})
	if err != nil {
		log.Printf("Dominant topic query failed for %s: %v", bucketID, err)
		return "", "", nil
	}
	if len(res.Records) == 0 {
		return "", "", nil
	}

	counts := make(map[string]topicCount, len(res.Records))
	for _, rec := range res.Records {
		counts[driver.RowString(rec, "uuid")] = topicCount{
			name:     driver.RowString(rec, "name"),
			mentions: driver.RowInt(rec, "mentions"),
		}
	}

	first := res.Records[0]
	return driver.RowString(first, "uuid"), driver.RowString(first, "name"), counts
}

// CalculateEpisodeImportance scores an episode deterministically: up to
// 0.3 from event volume (saturating at 100 events), up to 0.2 from
// duration (saturating at 30 days), up to 0.3 from recency (linear
// falloff over 100 days since end), plus 0.2 weighted significance.
// Pure function; now is injected for testability.
func CalculateEpisodeImportance(ep model.Episode, now time.Time) float64 {
	eventScore := 0.3 * math.Min(1, float64(ep.EventCount)/100.0)

	durationDays := ep.EndTime.Sub(ep.StartTime).Hours() / 24
	durationScore := 0.2 * math.Min(1, durationDays/30.0)

	// An end time in the future would push the falloff factor above 1
	daysSinceEnd := now.Sub(ep.EndTime).Hours() / 24
	recencyScore := 0.3 * math.Min(1, math.Max(0, 1-daysSinceEnd/100.0))

	return eventScore + durationScore + recencyScore + 0.2*ep.Significance
}
