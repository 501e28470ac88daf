package domain

import (
	"fmt"
	"log/slog"
	"math"
)

const (
	// zScoreThreshold is the outlier cutoff for the statistical classifier.
	zScoreThreshold = 3.0

	// zScoreConfidenceScale divides the z-score to produce a confidence;
	// inherited calibration heuristic, saturates at z=15.
	zScoreConfidenceScale = 5.0

	// minStatisticalSamples is the smallest history giving a meaningful
	// sample standard deviation.
	minStatisticalSamples = 10
)

// Detector runs the three anomaly classifiers over one reading. A classifier
// that fails internally contributes zero anomalies and a warning; detection
// never aborts a pipeline run.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a Detector logging classifier failures to logger.
func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect classifies one reading against its history window (ordered, most
// recent last). The statistical classifier needs at least
// minStatisticalSamples historical readings; the rate classifier needs at
// least one. Records from different classifiers are concatenated without
// deduplication: each represents an independent detection method, so one
// channel may legitimately appear more than once.
func (d *Detector) Detect(current Reading, history []Reading) []AnomalyRecord {
	var anomalies []AnomalyRecord

	anomalies = append(anomalies, d.run("range", func() []AnomalyRecord {
		return checkRange(current)
	})...)

	if len(history) >= minStatisticalSamples {
		anomalies = append(anomalies, d.run("statistical", func() []AnomalyRecord {
			return checkStatistical(current, history)
		})...)
	}

	if len(history) >= 1 {
		previous := history[len(history)-1]
		anomalies = append(anomalies, d.run("rate_of_change", func() []AnomalyRecord {
			return checkRateOfChange(current, previous)
		})...)
	}

	return anomalies
}

// run executes one classifier, converting any internal panic into "zero
// anomalies from this classifier" with a warning. Partial detection is
// preferred over aborting the run.
func (d *Detector) run(name string, check func() []AnomalyRecord) (records []AnomalyRecord) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("classifier failed, skipping", "classifier", name, "panic", r)
			records = nil
		}
	}()
	return check()
}

// checkRange flags values outside the catalog range. Values exactly at a
// bound are valid. Range violations are physically impossible sensor output,
// so confidence is always 1.0.
func checkRange(r Reading) []AnomalyRecord {
	var anomalies []AnomalyRecord
	for _, c := range Channels() {
		value, ok := r.Value(c)
		if !ok {
			continue
		}
		cr, ok := RangeFor(c)
		if !ok {
			continue
		}
		switch {
		case value < cr.Min:
			reason := fmt.Sprintf("value %.1f %s below minimum threshold %.1f %s", value, cr.Unit, cr.Min, cr.Unit)
			anomalies = append(anomalies, newAnomaly(c, value, reason, 1.0))
		case value > cr.Max:
			reason := fmt.Sprintf("value %.1f %s above maximum threshold %.1f %s", value, cr.Unit, cr.Max, cr.Unit)
			anomalies = append(anomalies, newAnomaly(c, value, reason, 1.0))
		}
	}
	return anomalies
}

// checkStatistical flags z-score outliers per channel. Channels with fewer
// than minStatisticalSamples non-null historical values are skipped, as are
// degenerate distributions (stdev 0) to avoid dividing by zero.
func checkStatistical(current Reading, history []Reading) []AnomalyRecord {
	var anomalies []AnomalyRecord
	for _, c := range Channels() {
		value, ok := current.Value(c)
		if !ok {
			continue
		}
		hist := ChannelValues(history, c)
		if len(hist) < minStatisticalSamples {
			continue
		}

		m := mean(hist)
		sd := sampleStdDev(hist)
		if sd == 0 {
			continue
		}

		z := math.Abs(value-m) / sd
		if z <= zScoreThreshold {
			continue
		}

		cr, _ := RangeFor(c)
		reason := fmt.Sprintf("statistical deviation: z-score %.2f (mean %.1f %s)", z, m, cr.Unit)
		confidence := math.Min(1.0, z/zScoreConfidenceScale)
		anomalies = append(anomalies, newAnomaly(c, value, reason, confidence))
	}
	return anomalies
}

// checkRateOfChange flags channels whose hourly-normalized change since the
// previous reading exceeds the catalog delta threshold. A non-positive time
// difference (clock skew, duplicate timestamp) defaults to one hour rather
// than blowing up the division.
func checkRateOfChange(current, previous Reading) []AnomalyRecord {
	hours := current.Timestamp.Sub(previous.Timestamp).Hours()
	if hours <= 0 {
		hours = 1.0
	}

	var anomalies []AnomalyRecord
	for _, c := range Channels() {
		cr, ok := RangeFor(c)
		if !ok || cr.MaxHourlyDelta == 0 {
			continue
		}
		value, ok := current.Value(c)
		if !ok {
			continue
		}
		prev, ok := previous.Value(c)
		if !ok {
			continue
		}

		rate := math.Abs(value-prev) / hours
		if rate <= cr.MaxHourlyDelta {
			continue
		}

		reason := fmt.Sprintf("rapid change: %.1f %s/h (threshold %.1f %s/h)", rate, cr.Unit, cr.MaxHourlyDelta, cr.Unit)
		confidence := math.Min(1.0, rate/(cr.MaxHourlyDelta*2))
		anomalies = append(anomalies, newAnomaly(c, value, reason, confidence))
	}
	return anomalies
}
