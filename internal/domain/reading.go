package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies one measured environmental quantity.
type Channel string

const (
	ChannelTemperature Channel = "temperature"
	ChannelHumidity    Channel = "humidity"
	ChannelAirQuality  Channel = "airQuality"
	ChannelPM25        Channel = "pm25"
	ChannelPM10        Channel = "pm10"
	ChannelCO2         Channel = "co2"
	ChannelPressure    Channel = "pressure"
)

// Channels returns all sensor channels in stable declaration order.
func Channels() []Channel {
	return []Channel{
		ChannelTemperature,
		ChannelHumidity,
		ChannelAirQuality,
		ChannelPM25,
		ChannelPM10,
		ChannelCO2,
		ChannelPressure,
	}
}

// Reading is one timestamped snapshot of all sensor channels for a location.
// pm25, pm10 and co2 may be absent when the upstream provider omits them.
// Wind, UV and visibility fields are carried through untouched; they are not
// subject to anomaly detection.
type Reading struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	AirQuality    int       `json:"airQuality"`
	PM25          *float64  `json:"pm25,omitempty"`
	PM10          *float64  `json:"pm10,omitempty"`
	CO2           *int      `json:"co2,omitempty"`
	Pressure      float64   `json:"pressure"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDirection int       `json:"windDirection"`
	UVIndex       *int      `json:"uvIndex,omitempty"`
	Visibility    *float64  `json:"visibility,omitempty"`
	Location      string    `json:"location,omitempty"`
}

// NewReading creates an empty reading with a fresh ID and the current time.
func NewReading() Reading {
	return Reading{
		ID:        uuid.NewString(),
		Timestamp: Now(),
	}
}

// accessor binds a channel to its reading field, replacing string-keyed
// field dispatch with one table built at init. get reports false when the
// channel value is absent on the reading.
type accessor struct {
	get func(r Reading) (float64, bool)
	set func(r *Reading, v float64)
}

var accessors = map[Channel]accessor{
	ChannelTemperature: {
		get: func(r Reading) (float64, bool) { return r.Temperature, true },
		set: func(r *Reading, v float64) { r.Temperature = v },
	},
	ChannelHumidity: {
		get: func(r Reading) (float64, bool) { return r.Humidity, true },
		set: func(r *Reading, v float64) { r.Humidity = v },
	},
	ChannelAirQuality: {
		get: func(r Reading) (float64, bool) { return float64(r.AirQuality), true },
		set: func(r *Reading, v float64) { r.AirQuality = int(v) },
	},
	ChannelPM25: {
		get: func(r Reading) (float64, bool) {
			if r.PM25 == nil {
				return 0, false
			}
			return *r.PM25, true
		},
		set: func(r *Reading, v float64) { r.PM25 = &v },
	},
	ChannelPM10: {
		get: func(r Reading) (float64, bool) {
			if r.PM10 == nil {
				return 0, false
			}
			return *r.PM10, true
		},
		set: func(r *Reading, v float64) { r.PM10 = &v },
	},
	ChannelCO2: {
		get: func(r Reading) (float64, bool) {
			if r.CO2 == nil {
				return 0, false
			}
			return float64(*r.CO2), true
		},
		set: func(r *Reading, v float64) { c := int(v); r.CO2 = &c },
	},
	ChannelPressure: {
		get: func(r Reading) (float64, bool) { return r.Pressure, true },
		set: func(r *Reading, v float64) { r.Pressure = v },
	},
}

// Value returns the reading's value for a channel, or false when the channel
// is absent on this reading.
func (r Reading) Value(c Channel) (float64, bool) {
	a, ok := accessors[c]
	if !ok {
		return 0, false
	}
	return a.get(r)
}

// SetValue writes a channel value into the reading. Integer channels
// (airQuality, co2) are truncated the way the original deployment stored
// them. Unknown channels are ignored.
func (r *Reading) SetValue(c Channel, v float64) {
	if a, ok := accessors[c]; ok {
		a.set(r, v)
	}
}

// ChannelValues extracts the non-null values for one channel across a slice
// of readings, preserving order.
func ChannelValues(readings []Reading, c Channel) []float64 {
	values := make([]float64, 0, len(readings))
	for _, r := range readings {
		if v, ok := r.Value(c); ok {
			values = append(values, v)
		}
	}
	return values
}

// AnomalyStatus tracks an anomaly record through its lifecycle.
type AnomalyStatus string

const (
	// StatusDetected is the initial state set by a classifier.
	StatusDetected AnomalyStatus = "detected"
	// StatusFiltered means the corrector replaced the value.
	StatusFiltered AnomalyStatus = "filtered"
	// StatusVerified means the corrector examined the value and kept it.
	StatusVerified AnomalyStatus = "verified"
)

// AnomalyRecord describes one suspect channel value on one reading.
// Confidence is in [0,1]. FilteredValue stays nil until the corrector runs.
type AnomalyRecord struct {
	ID            string        `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	Channel       Channel       `json:"sensorType"`
	OriginalValue float64       `json:"originalValue"`
	FilteredValue *float64      `json:"filteredValue,omitempty"`
	Reason        string        `json:"reason"`
	Status        AnomalyStatus `json:"status"`
	Confidence    float64       `json:"confidence"`
}

func newAnomaly(c Channel, value float64, reason string, confidence float64) AnomalyRecord {
	return AnomalyRecord{
		ID:            uuid.NewString(),
		Timestamp:     Now(),
		Channel:       c,
		OriginalValue: value,
		Reason:        reason,
		Status:        StatusDetected,
		Confidence:    confidence,
	}
}

// LogStatus is the outcome level of a processing log entry.
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogWarning LogStatus = "warning"
	LogError   LogStatus = "error"
)

// ProcessingLogEntry is one append-only audit record, emitted per pipeline
// stage plus one summary per full run.
type ProcessingLogEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	Status     LogStatus `json:"status"`
	Details    string    `json:"details"`
	DurationMS *int64    `json:"durationMs,omitempty"`
	DataCount  *int      `json:"dataCount,omitempty"`
}

// NewLogEntry creates a processing log entry stamped with the domain clock.
func NewLogEntry(action string, status LogStatus, details string) ProcessingLogEntry {
	return ProcessingLogEntry{
		ID:        uuid.NewString(),
		Timestamp: Now(),
		Action:    action,
		Status:    status,
		Details:   details,
	}
}
