package pipeline_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
)

// countingStore is a goroutine-safe Store for collector tests, where the
// pipeline runs on a background goroutine.
type countingStore struct {
	saved atomic.Int64
}

func (s *countingStore) SaveReading(_ context.Context, _ domain.Reading) error {
	s.saved.Add(1)
	return nil
}

func (s *countingStore) SaveAnomalies(_ context.Context, _ []domain.AnomalyRecord) error {
	return nil
}

func (s *countingStore) UpsertDailyAggregate(_ context.Context, _ domain.DailyAggregate) error {
	return nil
}

func (s *countingStore) ReadingsBetween(_ context.Context, _, _ time.Time) ([]domain.Reading, error) {
	return nil, nil
}

func (s *countingStore) CountAnomaliesBetween(_ context.Context, _, _ time.Time) (int, error) {
	return 0, nil
}

type nopAudit struct{}

func (nopAudit) AppendLog(_ context.Context, _ domain.ProcessingLogEntry) error { return nil }

func newTestCollector(store *countingStore, clock clockwork.Clock) *pipeline.Collector {
	ing := &mockIngestor{reading: normalReading(time.Now().UTC())}
	p := pipeline.NewProcessor(ing, &mockHistory{}, store, nopAudit{}, nil,
		slog.Default(), observability.NewMetricsForTesting(), 24*time.Hour, 100)
	return pipeline.NewCollector(p, "Kyiv", time.Hour, clock,
		slog.Default(), observability.NewMetricsForTesting())
}

func TestCollector_CollectsImmediatelyOnStart(t *testing.T) {
	store := &countingStore{}
	fc := clockwork.NewFakeClock()
	c := newTestCollector(store, fc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return store.saved.Load() == 1 },
		time.Second, time.Millisecond, "expected one run before the first tick")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("collector did not stop on context cancellation")
	}
}

func TestCollector_TickerDrivesRepeatedRuns(t *testing.T) {
	store := &countingStore{}
	fc := clockwork.NewFakeClock()
	c := newTestCollector(store, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	require.Eventually(t, func() bool { return store.saved.Load() == 1 },
		time.Second, time.Millisecond)

	// Wait for the loop to be parked on the ticker before advancing.
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Hour)

	require.Eventually(t, func() bool { return store.saved.Load() == 2 },
		time.Second, time.Millisecond, "expected a second run after the interval elapsed")
}

func TestCollector_ManualTriggerRunsOutOfBand(t *testing.T) {
	store := &countingStore{}
	fc := clockwork.NewFakeClock()
	c := newTestCollector(store, fc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	require.Eventually(t, func() bool { return store.saved.Load() == 1 },
		time.Second, time.Millisecond)

	c.TriggerCollect("Lviv")

	require.Eventually(t, func() bool { return store.saved.Load() == 2 },
		time.Second, time.Millisecond, "expected the manual trigger to run without a tick")
}

func TestCollector_TriggerCoalescesWhileQueued(t *testing.T) {
	store := &countingStore{}
	c := newTestCollector(store, clockwork.NewFakeClock())

	// The collector is not running, so the first trigger fills the queue and
	// the second is dropped instead of blocking the caller.
	done := make(chan struct{})
	go func() {
		c.TriggerCollect("")
		c.TriggerCollect("")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TriggerCollect blocked instead of coalescing")
	}
}
