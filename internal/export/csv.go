// Package export renders stored data as flat CSV rows with stable column
// ordering for downstream tabular consumers.
package export

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// HourlyCSV renders readings as CSV, one row per reading.
func HourlyCSV(readings []domain.Reading) (string, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	header := []string{
		"Time", "Temperature (°C)", "Humidity (%)", "Air Quality",
		"PM2.5 (μg/m³)", "PM10 (μg/m³)", "CO2 (ppm)", "Pressure (hPa)",
		"Wind Speed (m/s)", "Wind Direction (°)", "Location",
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, r := range readings {
		row := []string{
			r.Timestamp.UTC().Format(timeLayout),
			fmt.Sprintf("%.1f", r.Temperature),
			fmt.Sprintf("%.1f", r.Humidity),
			fmt.Sprintf("%d", r.AirQuality),
			optFloat(r.PM25),
			optFloat(r.PM10),
			optInt(r.CO2),
			fmt.Sprintf("%.1f", r.Pressure),
			fmt.Sprintf("%.1f", r.WindSpeed),
			fmt.Sprintf("%d", r.WindDirection),
			r.Location,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	return buf.String(), w.Error()
}

// DailyCSV renders daily aggregates as CSV, one row per calendar date.
func DailyCSV(aggs []domain.DailyAggregate) (string, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	header := []string{
		"Date", "Avg Temperature (°C)", "Min Temperature (°C)", "Max Temperature (°C)",
		"Avg Humidity (%)", "Avg Air Quality", "Avg Pressure (hPa)",
		"Data Points", "Anomalies",
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, a := range aggs {
		row := []string{
			a.Date,
			fmt.Sprintf("%.1f", a.AvgTemperature),
			fmt.Sprintf("%.1f", a.MinTemperature),
			fmt.Sprintf("%.1f", a.MaxTemperature),
			fmt.Sprintf("%.1f", a.AvgHumidity),
			fmt.Sprintf("%.1f", a.AvgAirQuality),
			fmt.Sprintf("%.1f", a.AvgPressure),
			fmt.Sprintf("%d", a.DataPointsCount),
			fmt.Sprintf("%d", a.AnomaliesCount),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	return buf.String(), w.Error()
}

// AnomaliesCSV renders anomaly records as CSV, one row per record.
func AnomaliesCSV(anomalies []domain.AnomalyRecord) (string, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	header := []string{
		"ID", "Time", "Sensor", "Original Value", "Filtered Value",
		"Reason", "Status", "Confidence",
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, a := range anomalies {
		row := []string{
			a.ID,
			a.Timestamp.UTC().Format(timeLayout),
			string(a.Channel),
			fmt.Sprintf("%.2f", a.OriginalValue),
			optFloat2(a.FilteredValue),
			a.Reason,
			string(a.Status),
			fmt.Sprintf("%.2f", a.Confidence),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	return buf.String(), w.Error()
}

// Filename builds the attachment filename for an export of dataType at now.
func Filename(dataType string, now time.Time) string {
	return fmt.Sprintf("%s_data_%s.csv", dataType, now.UTC().Format("20060102_150405"))
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *v)
}

func optFloat2(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}
