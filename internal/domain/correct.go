package domain

import (
	"fmt"
	"log/slog"
	"math"
)

// minCorrectionSamples is the smallest history the median substitution rule
// will operate on.
const minCorrectionSamples = 5

// Corrector computes replacement values for flagged readings. Correction
// never fails: a value the policy cannot improve is kept and the anomaly is
// marked verified.
type Corrector struct {
	logger *slog.Logger
}

// NewCorrector creates a Corrector logging correction decisions to logger.
func NewCorrector(logger *slog.Logger) *Corrector {
	return &Corrector{logger: logger}
}

// Apply corrects each anomaly against the history window and returns a new
// reading with the replacement values applied. The input reading is never
// mutated. Each anomaly is updated in place: FilteredValue is set, Status
// moves to filtered or verified, and the correction reason is appended.
// Corrections for different channels are independent and order-insensitive.
func (c *Corrector) Apply(reading Reading, anomalies []AnomalyRecord, history []Reading) (Reading, []AnomalyRecord) {
	corrected := reading

	for i := range anomalies {
		a := &anomalies[i]

		hist := ChannelValues(history, a.Channel)
		filtered, reason := filterValue(a.OriginalValue, a.Channel, hist)

		a.FilteredValue = &filtered
		if filtered != a.OriginalValue {
			a.Status = StatusFiltered
			c.logger.Info("corrected anomalous value",
				"channel", a.Channel,
				"original", a.OriginalValue,
				"filtered", filtered,
				"reason", reason,
			)
		} else {
			a.Status = StatusVerified
		}
		a.Reason += " | correction: " + reason

		corrected.SetValue(a.Channel, filtered)
	}

	return corrected, anomalies
}

// filterValue applies the correction policy in priority order: clamp to the
// nearest catalog bound, then median substitution for strong statistical
// outliers, then keep the value.
func filterValue(value float64, c Channel, hist []float64) (float64, string) {
	cr, ok := RangeFor(c)
	if !ok {
		return value, "unknown sensor channel"
	}

	if value < cr.Min {
		return cr.Min, fmt.Sprintf("bounded to minimum %.1f %s", cr.Min, cr.Unit)
	}
	if value > cr.Max {
		return cr.Max, fmt.Sprintf("bounded to maximum %.1f %s", cr.Max, cr.Unit)
	}

	if len(hist) >= minCorrectionSamples {
		m := mean(hist)
		sd := sampleStdDev(hist)
		if sd > 0 && math.Abs(value-m) > 3*sd {
			return median(hist), "replaced with median due to statistical deviation"
		}
	}

	return value, "within normal range"
}
