package domain

import "time"

// DailyAggregate is one rolling summary per calendar date over the accepted
// readings of that day. Keyed uniquely by Date; recomputed in full on every
// update, so the last write for a date wins.
type DailyAggregate struct {
	ID              string    `json:"id"`
	Date            string    `json:"date"` // YYYY-MM-DD
	AvgTemperature  float64   `json:"avgTemperature"`
	MinTemperature  float64   `json:"minTemperature"`
	MaxTemperature  float64   `json:"maxTemperature"`
	AvgHumidity     float64   `json:"avgHumidity"`
	AvgAirQuality   float64   `json:"avgAirQuality"`
	AvgPressure     float64   `json:"avgPressure"`
	DataPointsCount int       `json:"dataPointsCount"`
	AnomaliesCount  int       `json:"anomaliesCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

// DayBounds returns the [00:00, next day 00:00) UTC window for the calendar
// date containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := t.UTC().Truncate(24 * time.Hour)
	return start, start.Add(24 * time.Hour)
}

// ComputeDailyAggregate folds one day's readings and anomaly count into a
// summary record. Values are rounded to one decimal so recomputing over
// unchanged data reproduces the stored record exactly. The ID is derived
// from the date, keeping the computation idempotent. Returns false when the
// day has no readings.
func ComputeDailyAggregate(date time.Time, readings []Reading, anomaliesCount int) (DailyAggregate, bool) {
	if len(readings) == 0 {
		return DailyAggregate{}, false
	}

	temps := ChannelValues(readings, ChannelTemperature)
	humidity := ChannelValues(readings, ChannelHumidity)
	airQuality := ChannelValues(readings, ChannelAirQuality)
	pressure := ChannelValues(readings, ChannelPressure)

	minTemp, maxTemp := temps[0], temps[0]
	for _, v := range temps[1:] {
		if v < minTemp {
			minTemp = v
		}
		if v > maxTemp {
			maxTemp = v
		}
	}

	dateStr := date.UTC().Format("2006-01-02")
	return DailyAggregate{
		ID:              "daily-" + dateStr,
		Date:            dateStr,
		AvgTemperature:  round1(mean(temps)),
		MinTemperature:  round1(minTemp),
		MaxTemperature:  round1(maxTemp),
		AvgHumidity:     round1(mean(humidity)),
		AvgAirQuality:   round1(mean(airQuality)),
		AvgPressure:     round1(mean(pressure)),
		DataPointsCount: len(readings),
		AnomaliesCount:  anomaliesCount,
		CreatedAt:       Now(),
	}, true
}
