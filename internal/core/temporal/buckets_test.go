package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/cortex/internal/core/model"
)

func TestBucketForHour(t *testing.T) {
	ts := time.Date(2025, 6, 4, 14, 37, 12, 0, time.UTC)
	start, end, err := BucketFor(ts, model.GranularityHour)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 4, 14, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 4, 15, 0, 0, 0, time.UTC), end)
}

func TestBucketForWeekMondayAligned(t *testing.T) {
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	// Wednesday and the following Sunday fall in the same week
	for _, ts := range []time.Time{
		time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 8, 23, 59, 0, 0, time.UTC),
		monday,
	} {
		start, end, err := BucketFor(ts, model.GranularityWeek)
		assert.NoError(t, err)
		assert.Equal(t, monday, start, "ts=%s", ts)
		assert.Equal(t, monday.AddDate(0, 0, 7), end)
	}
}

func TestBucketForQuarter(t *testing.T) {
	ts := time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC)
	start, end, err := BucketFor(ts, model.GranularityQuarter)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestBucketForUnknownGranularity(t *testing.T) {
	_, _, err := BucketFor(time.Now(), model.Granularity("fortnight"))
	assert.Error(t, err)
}

func TestBlockIDDeterministic(t *testing.T) {
	utc := time.Date(2025, 6, 4, 12, 30, 0, 0, time.UTC)
	zoned := utc.In(time.FixedZone("CEST", 2*3600))

	startA, _, _ := BucketFor(utc, model.GranularityDay)
	startB, _, _ := BucketFor(zoned, model.GranularityDay)

	// Same instant in different zones lands in the same bucket node
	assert.Equal(t, BlockID(model.GranularityDay, startA, 42), BlockID(model.GranularityDay, startB, 42))

	assert.Equal(t, "tb_day_1748995200_u42", BlockID(model.GranularityDay, startA, 42))
	assert.Equal(t, "tb_day_1748995200", BlockID(model.GranularityDay, startA, 0))
}

func TestPreviousBucketStart(t *testing.T) {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), PreviousBucketStart(start, model.GranularityQuarter))
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), PreviousBucketStart(start, model.GranularityDay))
}

func TestBlockLabel(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday, ISO week 1
	assert.Equal(t, "2024-W01", BlockLabel(model.GranularityWeek, start))
	assert.Equal(t, "2024-01-01", BlockLabel(model.GranularityDay, start))
	assert.Equal(t, "2024-Q1", BlockLabel(model.GranularityQuarter, start))
}
