package domain

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCorrector() *Corrector {
	return NewCorrector(slog.Default())
}

func TestCorrector_ClampsOutOfRangePressure(t *testing.T) {
	c := newTestCorrector()

	reading := makeReading(baseTime, 10, 50, 50, 900)
	anomalies := newTestDetector().Detect(reading, nil)
	require.Len(t, anomalies, 1)

	corrected, anomalies := c.Apply(reading, anomalies, nil)

	assert.Equal(t, 950.0, corrected.Pressure)
	require.NotNil(t, anomalies[0].FilteredValue)
	assert.Equal(t, 950.0, *anomalies[0].FilteredValue)
	assert.Equal(t, StatusFiltered, anomalies[0].Status)
	assert.Contains(t, anomalies[0].Reason, "bounded to minimum 950.0 hPa")

	// Copy-on-write: the original reading keeps its raw value.
	assert.Equal(t, 900.0, reading.Pressure)
}

func TestCorrector_ClampsToMaximum(t *testing.T) {
	c := newTestCorrector()

	reading := makeReading(baseTime, 75, 50, 50, 1000)
	anomalies := newTestDetector().Detect(reading, nil)
	require.Len(t, anomalies, 1)

	corrected, anomalies := c.Apply(reading, anomalies, nil)

	assert.Equal(t, 60.0, corrected.Temperature)
	assert.Equal(t, StatusFiltered, anomalies[0].Status)
	assert.Contains(t, anomalies[0].Reason, "bounded to maximum 60.0 °C")
}

func TestCorrector_VerifiesRateOnlyAnomaly(t *testing.T) {
	c := newTestCorrector()

	// Rate spike within range, with too little history for the median rule:
	// the value is kept and the anomaly verified.
	previous := makeReading(baseTime, 10, 50, 50, 1000)
	current := makeReading(baseTime.Add(time.Hour), 25, 50, 50, 1000)
	history := []Reading{previous}

	anomalies := newTestDetector().Detect(current, history)
	require.Len(t, anomalies, 1)

	corrected, anomalies := c.Apply(current, anomalies, history)

	assert.Equal(t, 25.0, corrected.Temperature)
	require.NotNil(t, anomalies[0].FilteredValue)
	assert.Equal(t, 25.0, *anomalies[0].FilteredValue)
	assert.Equal(t, StatusVerified, anomalies[0].Status)
	assert.Contains(t, anomalies[0].Reason, "within normal range")
}

func TestCorrector_MedianSubstitution(t *testing.T) {
	c := newTestCorrector()

	// Tight 10 °C history, in-range 25 °C outlier: more than 3 stdev from
	// the mean, so the historical median replaces it.
	temps := []float64{9.8, 10.2, 9.9, 10.1, 10.0, 9.7, 10.3, 10.0, 9.9, 10.1}
	history := makeHistory(baseTime, temps)
	current := makeReading(baseTime, 25, 50, 50, 1000)

	anomalies := newTestDetector().Detect(current, history)
	temp := anomaliesFor(anomalies, ChannelTemperature)
	require.NotEmpty(t, temp)

	corrected, applied := c.Apply(current, anomalies, history)

	want := median(temps)
	assert.InEpsilon(t, want, corrected.Temperature, 1e-9)
	for _, a := range applied {
		if a.Channel != ChannelTemperature {
			continue
		}
		assert.Equal(t, StatusFiltered, a.Status)
		assert.Contains(t, a.Reason, "replaced with median")
	}
}

func TestCorrector_IntegerChannelTruncation(t *testing.T) {
	c := newTestCorrector()

	// Air quality history with a fractional median: the corrected reading
	// stores the truncated integer while the anomaly keeps the exact value.
	history := makeHistory(baseTime, []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10})
	for i := range history {
		history[i].AirQuality = 40 + i%2 // alternating 40/41, median 40.5
	}
	current := makeReading(baseTime, 10, 50, 300, 1000)

	anomalies := newTestDetector().Detect(current, history)
	aq := anomaliesFor(anomalies, ChannelAirQuality)
	require.NotEmpty(t, aq)

	corrected, applied := c.Apply(current, anomalies, history)

	assert.Equal(t, 40, corrected.AirQuality)
	for _, a := range applied {
		if a.Channel == ChannelAirQuality {
			require.NotNil(t, a.FilteredValue)
			assert.Equal(t, 40.5, *a.FilteredValue)
		}
	}
}

func TestFilterValue_PolicyOrder(t *testing.T) {
	hist := []float64{10, 10.1, 9.9, 10.2, 9.8, 10, 10.1, 9.9}

	tests := []struct {
		name       string
		value      float64
		channel    Channel
		hist       []float64
		wantValue  float64
		wantReason string
	}{
		{"below min clamps before median", -60, ChannelTemperature, hist, -50, "bounded to minimum"},
		{"above max clamps", 1100, ChannelPressure, hist, 1050, "bounded to maximum"},
		{"outlier replaced with median", 20, ChannelTemperature, hist, median(hist), "replaced with median"},
		{"in range kept", 10.05, ChannelTemperature, hist, 10.05, "within normal range"},
		{"too little history kept", 20, ChannelTemperature, []float64{10, 10, 10, 10}, 20, "within normal range"},
		{"zero stdev kept", 20, ChannelTemperature, []float64{10, 10, 10, 10, 10, 10}, 20, "within normal range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := filterValue(tt.value, tt.channel, tt.hist)
			assert.InDelta(t, tt.wantValue, got, 1e-9)
			assert.Contains(t, reason, tt.wantReason)
		})
	}
}
