package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/cortex/internal/driver"
)

// Heatmap aggregates event timestamps into day-of-week x hour-of-day
// buckets. Weekday 0 is Sunday, matching time.Weekday.
type Heatmap struct {
	UserID      int64            `json:"user_id"`
	Days        int              `json:"days"`
	TotalEvents int64            `json:"total_events"`
	Buckets     [7][24]int64     `json:"buckets"`
	ByType      map[string]int64 `json:"by_type"`
	PeakDay     time.Weekday     `json:"peak_day"`
	PeakHour    int              `json:"peak_hour"`
}

// GetUserActivityHeatmap aggregates the user's events over the trailing
// window of the given number of days.
func (ix *Indexer) GetUserActivityHeatmap(ctx context.Context, userID int64, days int) (*Heatmap, error) {
	if userID == 0 {
		return nil, fmt.Errorf("heatmap requires a user_id")
	}
	if days <= 0 {
		days = 30
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	res, err := ix.Driver.ExecuteQuery(ctx, driver.HeatmapEventsQuery, map[string]interface{}{
		"user_id": userID,
		"since":   since,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query heatmap events: %w", err)
	}

	hm := &Heatmap{
		UserID: userID,
		Days:   days,
		ByType: make(map[string]int64),
	}

	for _, rec := range res.Records {
		ts, ok := driver.RowTime(rec, "timestamp")
		if !ok {
			continue
		}
		ts = ts.UTC()
		hm.Buckets[int(ts.Weekday())][ts.Hour()]++
		hm.TotalEvents++
		if t := driver.RowString(rec, "type"); t != "" {
			hm.ByType[t]++
		}
	}

	var dayTotals [7]int64
	var hourTotals [24]int64
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			dayTotals[d] += hm.Buckets[d][h]
			hourTotals[h] += hm.Buckets[d][h]
		}
	}
	for d := 1; d < 7; d++ {
		if dayTotals[d] > dayTotals[hm.PeakDay] {
			hm.PeakDay = time.Weekday(d)
		}
	}
	for h := 1; h < 24; h++ {
		if hourTotals[h] > hourTotals[hm.PeakHour] {
			hm.PeakHour = h
		}
	}

	return hm, nil
}
