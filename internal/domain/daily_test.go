package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDailyAggregate(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 2, 0, 5, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	day := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	readings := []Reading{
		makeReading(day.Add(6*time.Hour), 8.5, 60, 40, 1005),
		makeReading(day.Add(12*time.Hour), 14.2, 55, 55, 1003),
		makeReading(day.Add(18*time.Hour), 11.3, 58, 45, 1004),
	}

	agg, ok := ComputeDailyAggregate(day, readings, 2)
	require.True(t, ok)

	assert.Equal(t, "2024-06-01", agg.Date)
	assert.Equal(t, "daily-2024-06-01", agg.ID)
	assert.InDelta(t, 11.3, agg.AvgTemperature, 1e-9) // (8.5+14.2+11.3)/3 = 11.333 rounded
	assert.InDelta(t, 8.5, agg.MinTemperature, 1e-9)
	assert.InDelta(t, 14.2, agg.MaxTemperature, 1e-9)
	assert.InDelta(t, 57.7, agg.AvgHumidity, 1e-9)
	assert.InDelta(t, 46.7, agg.AvgAirQuality, 1e-9)
	assert.InDelta(t, 1004.0, agg.AvgPressure, 1e-9)
	assert.Equal(t, 3, agg.DataPointsCount)
	assert.Equal(t, 2, agg.AnomaliesCount)
	assert.Equal(t, fakeClock.Now().UTC(), agg.CreatedAt)
}

func TestComputeDailyAggregate_Idempotent(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	day := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	readings := []Reading{
		makeReading(day.Add(2*time.Hour), 9.1, 62, 38, 1001),
		makeReading(day.Add(9*time.Hour), 13.7, 51, 61, 999),
	}

	first, ok := ComputeDailyAggregate(day, readings, 1)
	require.True(t, ok)
	second, ok := ComputeDailyAggregate(day, readings, 1)
	require.True(t, ok)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("recomputation not idempotent (-first +second):\n%s", diff)
	}
}

func TestComputeDailyAggregate_EmptyDay(t *testing.T) {
	_, ok := ComputeDailyAggregate(time.Now(), nil, 0)
	assert.False(t, ok)
}

func TestDayBounds(t *testing.T) {
	ts := time.Date(2024, time.June, 1, 17, 42, 9, 0, time.UTC)
	start, end := DayBounds(ts)

	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC), end)
}
