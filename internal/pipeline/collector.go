package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/air-quality-etl/internal/observability"
)

// Collector drives the Processor on a fixed interval and accepts out-of-band
// manual triggers. Runs are sequential within the loop; the Processor's
// per-location lock additionally guards against triggers racing a scheduled
// run.
type Collector struct {
	processor *Processor
	location  string
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	trigger   chan string
}

// NewCollector creates a Collector polling location every interval.
func NewCollector(processor *Processor, location string, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Collector {
	return &Collector{
		processor: processor,
		location:  location,
		interval:  interval,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		trigger:   make(chan string, 1),
	}
}

// TriggerCollect requests one out-of-band run. It acknowledges immediately;
// the outcome is observable only through the audit trail and stored data.
// A request arriving while one is already queued is coalesced into it.
func (c *Collector) TriggerCollect(location string) {
	if location == "" {
		location = c.location
	}
	select {
	case c.trigger <- location:
	default:
		c.logger.Warn("manual trigger dropped, one already queued", "location", location)
	}
}

// Run executes one immediate collection and then loops until the context is
// cancelled, waking on the interval timer or a manual trigger.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("collector started", "location", c.location, "interval", c.interval)
	c.metrics.CollectorRunning.Set(1)
	defer c.metrics.CollectorRunning.Set(0)

	c.collect(ctx, c.location)

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("collector stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			c.collect(ctx, c.location)
		case location := <-c.trigger:
			c.collect(ctx, location)
		}
	}
}

func (c *Collector) collect(ctx context.Context, location string) {
	if ctx.Err() != nil {
		return
	}
	reading, err := c.processor.ProcessLocation(ctx, location)
	if err != nil {
		c.logger.Warn("collection run failed", "location", location, "error", err)
		return
	}
	c.logger.Info("collection run complete", "location", location, "reading_id", reading.ID)
}
