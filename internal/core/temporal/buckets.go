package temporal

import (
	"fmt"
	"time"

	"github.com/agenthands/cortex/internal/core/model"
)

// BucketFor computes the canonical [start, end) boundaries of the bucket
// containing ts for the granularity. All arithmetic is in UTC; weeks are
// Monday-aligned, quarters start in January, April, July, October.
func BucketFor(ts time.Time, g model.Granularity) (time.Time, time.Time, error) {
	t := ts.UTC()
	switch g {
	case model.GranularityHour:
		start := t.Truncate(time.Hour)
		return start, start.Add(time.Hour), nil

	case model.GranularityDay:
		start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1), nil

	case model.GranularityWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// Monday = 1 ... Sunday = 0 in Go's Weekday; shift Sunday back 6.
		offset := int(day.Weekday()) - 1
		if offset < 0 {
			offset = 6
		}
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil

	case model.GranularityMonth:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil

	case model.GranularityQuarter:
		quarterMonth := time.Month(((int(t.Month())-1)/3)*3 + 1)
		start := time.Date(t.Year(), quarterMonth, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, 0), nil

	case model.GranularityYear:
		start := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown granularity '%s'", g)
}

// PreviousBucketStart returns the start of the bucket immediately before
// the one starting at start.
func PreviousBucketStart(start time.Time, g model.Granularity) time.Time {
	switch g {
	case model.GranularityHour:
		return start.Add(-time.Hour)
	case model.GranularityDay:
		return start.AddDate(0, 0, -1)
	case model.GranularityWeek:
		return start.AddDate(0, 0, -7)
	case model.GranularityMonth:
		return start.AddDate(0, -1, 0)
	case model.GranularityQuarter:
		return start.AddDate(0, -3, 0)
	case model.GranularityYear:
		return start.AddDate(-1, 0, 0)
	}
	return start
}

// BlockID is deterministic from (granularity, bucket start, user) so that
// concurrent ensures MERGE onto the same node.
func BlockID(g model.Granularity, start time.Time, userID int64) string {
	if userID != 0 {
		return fmt.Sprintf("tb_%s_%d_u%d", g, start.Unix(), userID)
	}
	return fmt.Sprintf("tb_%s_%d", g, start.Unix())
}

// BlockLabel renders a human-readable bucket name.
func BlockLabel(g model.Granularity, start time.Time) string {
	switch g {
	case model.GranularityHour:
		return start.Format("2006-01-02 15:00")
	case model.GranularityDay:
		return start.Format("2006-01-02")
	case model.GranularityWeek:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case model.GranularityMonth:
		return start.Format("2006-01")
	case model.GranularityQuarter:
		return fmt.Sprintf("%d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
	case model.GranularityYear:
		return start.Format("2006")
	}
	return start.Format(time.RFC3339)
}
