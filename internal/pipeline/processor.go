package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
)

// Sentinel errors for the two run-fatal failure classes. Classifier and
// aggregation failures are logged and swallowed; these two abort the run.
var (
	// ErrIngestionUnavailable means no reading could be obtained.
	ErrIngestionUnavailable = errors.New("ingestion unavailable")
	// ErrStoreWrite means the primary persistence step failed.
	ErrStoreWrite = errors.New("store write failed")
)

// Ingestor supplies one current reading per invocation for a named location.
// It reports an error on transient provider failure instead of returning a
// partial reading.
type Ingestor interface {
	CurrentReading(ctx context.Context, location string) (domain.Reading, error)
}

// HistoryReader returns previously persisted (already corrected) readings in
// a time window, ordered most recent last. An empty result is valid and
// degrades the statistical and rate classifiers.
type HistoryReader interface {
	RecentReadings(ctx context.Context, since time.Time, limit int) ([]domain.Reading, error)
}

// Store persists the outputs of one pipeline run. Each call may fail
// independently.
type Store interface {
	SaveReading(ctx context.Context, r domain.Reading) error
	SaveAnomalies(ctx context.Context, anomalies []domain.AnomalyRecord) error
	UpsertDailyAggregate(ctx context.Context, agg domain.DailyAggregate) error
	ReadingsBetween(ctx context.Context, start, end time.Time) ([]domain.Reading, error)
	CountAnomaliesBetween(ctx context.Context, start, end time.Time) (int, error)
}

// AuditSink accepts append-only processing log entries. Sink failures never
// fail the calling stage; the processor logs and moves on.
type AuditSink interface {
	AppendLog(ctx context.Context, entry domain.ProcessingLogEntry) error
}

// Publisher pushes one run's outputs to a downstream event stream.
// Optional; a nil Publisher disables publishing.
type Publisher interface {
	PublishRun(ctx context.Context, reading domain.Reading, anomalies []domain.AnomalyRecord) error
}

// Pipeline stage names, used for audit log actions and the run trace.
const (
	stageFetching    = "fetching"
	stageClassifying = "classifying"
	stageCorrecting  = "correcting"
	stagePersisting  = "persisting"
	stageAggregating = "aggregating"
)

// Processor sequences one pipeline run: fetch, classify, correct, persist,
// aggregate, log. It owns no state between runs beyond the readiness flag;
// all history comes from the HistoryReader snapshot taken once per run.
type Processor struct {
	ingestor  Ingestor
	history   HistoryReader
	store     Store
	audit     AuditSink
	publisher Publisher

	detector  *domain.Detector
	corrector *domain.Corrector

	logger  *slog.Logger
	metrics *observability.Metrics

	historyWindow time.Duration
	historyLimit  int

	ready atomic.Bool

	// locks serializes runs per location; concurrent runs racing to correct
	// and persist the same window are undefined behavior.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewProcessor wires a Processor. publisher may be nil.
func NewProcessor(
	ingestor Ingestor,
	history HistoryReader,
	store Store,
	audit AuditSink,
	publisher Publisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
	historyWindow time.Duration,
	historyLimit int,
) *Processor {
	return &Processor{
		ingestor:      ingestor,
		history:       history,
		store:         store,
		audit:         audit,
		publisher:     publisher,
		detector:      domain.NewDetector(logger),
		corrector:     domain.NewCorrector(logger),
		logger:        logger,
		metrics:       metrics,
		historyWindow: historyWindow,
		historyLimit:  historyLimit,
		locks:         make(map[string]*sync.Mutex),
	}
}

// CheckReadiness returns nil once at least one run has persisted a reading.
func (p *Processor) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no reading has been processed yet")
	}
	return nil
}

// ProcessLocation executes one full pipeline run for a location. It returns
// the corrected reading on success. Ingestion and primary persistence
// failures abort the run; everything else degrades with a warning.
func (p *Processor) ProcessLocation(ctx context.Context, location string) (*domain.Reading, error) {
	lock := p.locationLock(location)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	var steps []string

	reading, err := p.fetch(ctx, location)
	if err != nil {
		p.finishRun(ctx, start, steps, err)
		return nil, err
	}
	steps = append(steps, stageFetching)

	history := p.loadHistory(ctx)
	steps = append(steps, fmt.Sprintf("history(%d)", len(history)))

	anomalies := p.detector.Detect(reading, history)
	p.logStage(ctx, stageClassifying, domain.LogSuccess,
		fmt.Sprintf("detected %d anomalies across %d historical readings", len(anomalies), len(history)))
	p.metrics.AnomaliesDetected.Add(float64(len(anomalies)))
	steps = append(steps, stageClassifying)

	corrected, anomalies := p.corrector.Apply(reading, anomalies, history)
	filtered := countFiltered(anomalies)
	p.logStage(ctx, stageCorrecting, domain.LogSuccess,
		fmt.Sprintf("corrected %d of %d anomalous values", filtered, len(anomalies)))
	p.metrics.CorrectionsApplied.Add(float64(filtered))
	steps = append(steps, stageCorrecting)

	if err := p.persist(ctx, corrected, anomalies); err != nil {
		p.finishRun(ctx, start, steps, err)
		return nil, err
	}
	steps = append(steps, stagePersisting)

	p.aggregateDay(ctx, corrected.Timestamp)
	steps = append(steps, stageAggregating)

	p.publish(ctx, corrected, anomalies)

	p.ready.Store(true)
	p.finishRun(ctx, start, steps, nil)
	return &corrected, nil
}

func (p *Processor) fetch(ctx context.Context, location string) (domain.Reading, error) {
	reading, err := p.ingestor.CurrentReading(ctx, location)
	if err != nil {
		p.metrics.IngestFailures.Inc()
		p.logStage(ctx, stageFetching, domain.LogError,
			fmt.Sprintf("no reading obtained for %s: %v", location, err))
		return domain.Reading{}, fmt.Errorf("%w: %v", ErrIngestionUnavailable, err)
	}
	p.logStage(ctx, stageFetching, domain.LogSuccess,
		fmt.Sprintf("fetched current conditions for %s", location))
	return reading, nil
}

// loadHistory takes the read-only history snapshot for this run. A read
// failure degrades to an empty window: the range classifier still runs.
func (p *Processor) loadHistory(ctx context.Context) []domain.Reading {
	since := time.Now().UTC().Add(-p.historyWindow)
	history, err := p.history.RecentReadings(ctx, since, p.historyLimit)
	if err != nil {
		p.logger.Warn("history read failed, classifying without history", "error", err)
		return nil
	}
	return history
}

func (p *Processor) persist(ctx context.Context, reading domain.Reading, anomalies []domain.AnomalyRecord) error {
	if err := p.store.SaveReading(ctx, reading); err != nil {
		p.metrics.StoreErrors.Inc()
		p.logStage(ctx, stagePersisting, domain.LogError, fmt.Sprintf("store reading: %v", err))
		return fmt.Errorf("%w: reading: %v", ErrStoreWrite, err)
	}
	p.metrics.ReadingsStored.Inc()

	if len(anomalies) > 0 {
		if err := p.store.SaveAnomalies(ctx, anomalies); err != nil {
			p.metrics.StoreErrors.Inc()
			p.logStage(ctx, stagePersisting, domain.LogError, fmt.Sprintf("store anomalies: %v", err))
			return fmt.Errorf("%w: anomalies: %v", ErrStoreWrite, err)
		}
	}

	p.logStage(ctx, stagePersisting, domain.LogSuccess,
		fmt.Sprintf("stored reading %s and %d anomalies", reading.ID, len(anomalies)))
	return nil
}

// aggregateDay recomputes the daily aggregate for the reading's calendar
// date. The reading and its anomalies are already durable, so any failure
// here is a warning, not a run failure.
func (p *Processor) aggregateDay(ctx context.Context, ts time.Time) {
	dayStart, dayEnd := domain.DayBounds(ts)

	readings, err := p.store.ReadingsBetween(ctx, dayStart, dayEnd)
	if err != nil {
		p.logStage(ctx, stageAggregating, domain.LogWarning, fmt.Sprintf("read day window: %v", err))
		return
	}
	count, err := p.store.CountAnomaliesBetween(ctx, dayStart, dayEnd)
	if err != nil {
		p.logStage(ctx, stageAggregating, domain.LogWarning, fmt.Sprintf("count anomalies: %v", err))
		return
	}

	agg, ok := domain.ComputeDailyAggregate(dayStart, readings, count)
	if !ok {
		return
	}
	if err := p.store.UpsertDailyAggregate(ctx, agg); err != nil {
		p.logStage(ctx, stageAggregating, domain.LogWarning, fmt.Sprintf("upsert daily aggregate: %v", err))
		return
	}

	p.logStage(ctx, stageAggregating, domain.LogSuccess,
		fmt.Sprintf("daily aggregate for %s over %d readings", agg.Date, agg.DataPointsCount))
}

// publish is a best-effort side channel; downstream consumers replay from
// the store if the stream misses a run.
func (p *Processor) publish(ctx context.Context, reading domain.Reading, anomalies []domain.AnomalyRecord) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishRun(ctx, reading, anomalies); err != nil {
		p.logger.Warn("publish run failed", "error", err, "reading_id", reading.ID)
	}
}

// finishRun emits the run summary entry: elapsed time and the trace of
// completed stage names. This is the primary operational audit trail.
func (p *Processor) finishRun(ctx context.Context, start time.Time, steps []string, runErr error) {
	elapsed := time.Since(start)
	p.metrics.RunDuration.Observe(elapsed.Seconds())

	entry := domain.NewLogEntry("pipeline run", domain.LogSuccess,
		fmt.Sprintf("completed: %s", strings.Join(steps, " -> ")))
	if runErr != nil {
		entry.Status = domain.LogError
		entry.Details = fmt.Sprintf("failed after %s: %v", strings.Join(steps, " -> "), runErr)
		p.metrics.RunsFailed.Inc()
	} else {
		p.metrics.RunsSucceeded.Inc()
		count := 1
		entry.DataCount = &count
	}
	ms := elapsed.Milliseconds()
	entry.DurationMS = &ms

	p.appendLog(ctx, entry)
}

func (p *Processor) logStage(ctx context.Context, action string, status domain.LogStatus, details string) {
	p.appendLog(ctx, domain.NewLogEntry(action, status, details))
}

func (p *Processor) appendLog(ctx context.Context, entry domain.ProcessingLogEntry) {
	if err := p.audit.AppendLog(ctx, entry); err != nil {
		p.logger.Warn("audit log append failed", "action", entry.Action, "error", err)
	}
}

func (p *Processor) locationLock(location string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[location]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[location] = lock
	}
	return lock
}

func countFiltered(anomalies []domain.AnomalyRecord) int {
	n := 0
	for _, a := range anomalies {
		if a.Status == domain.StatusFiltered {
			n++
		}
	}
	return n
}
