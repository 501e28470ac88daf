package export

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

func parseCSV(t *testing.T, data string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestHourlyCSV(t *testing.T) {
	ts := time.Date(2024, time.June, 1, 12, 30, 0, 0, time.UTC)
	pm25 := 15.3
	co2 := 420
	readings := []domain.Reading{
		{
			Timestamp:     ts,
			Temperature:   18.54,
			Humidity:      62,
			AirQuality:    55,
			PM25:          &pm25,
			CO2:           &co2,
			Pressure:      1012,
			WindSpeed:     5,
			WindDirection: 270,
			Location:      "Kyiv, Ukraine",
		},
		{Timestamp: ts.Add(time.Hour), Temperature: 19, Humidity: 60, AirQuality: 50, Pressure: 1011},
	}

	out, err := HourlyCSV(readings)
	require.NoError(t, err)

	records := parseCSV(t, out)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"Time", "Temperature (°C)", "Humidity (%)", "Air Quality",
		"PM2.5 (μg/m³)", "PM10 (μg/m³)", "CO2 (ppm)", "Pressure (hPa)",
		"Wind Speed (m/s)", "Wind Direction (°)", "Location",
	}, records[0])

	assert.Equal(t, []string{
		"2024-06-01 12:30:00", "18.5", "62.0", "55",
		"15.3", "", "420", "1012.0", "5.0", "270", "Kyiv, Ukraine",
	}, records[1])

	// Absent optional channels render as empty cells, not zeros.
	assert.Equal(t, "", records[2][4])
	assert.Equal(t, "", records[2][6])
	assert.Equal(t, "", records[2][10])
}

func TestDailyCSV(t *testing.T) {
	aggs := []domain.DailyAggregate{
		{
			Date:            "2024-06-01",
			AvgTemperature:  11.3,
			MinTemperature:  8.5,
			MaxTemperature:  14.2,
			AvgHumidity:     57.7,
			AvgAirQuality:   46.7,
			AvgPressure:     1004,
			DataPointsCount: 24,
			AnomaliesCount:  2,
		},
	}

	out, err := DailyCSV(aggs)
	require.NoError(t, err)

	records := parseCSV(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, "Date", records[0][0])
	assert.Equal(t, []string{
		"2024-06-01", "11.3", "8.5", "14.2", "57.7", "46.7", "1004.0", "24", "2",
	}, records[1])
}

func TestAnomaliesCSV(t *testing.T) {
	ts := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	filtered := 950.0
	anomalies := []domain.AnomalyRecord{
		{
			ID:            "a-1",
			Timestamp:     ts,
			Channel:       domain.ChannelPressure,
			OriginalValue: 900,
			FilteredValue: &filtered,
			Reason:        "below minimum",
			Status:        domain.StatusFiltered,
			Confidence:    1,
		},
		{
			ID:            "a-2",
			Timestamp:     ts,
			Channel:       domain.ChannelTemperature,
			OriginalValue: 25,
			Reason:        "rapid change",
			Status:        domain.StatusVerified,
			Confidence:    0.75,
		},
	}

	out, err := AnomaliesCSV(anomalies)
	require.NoError(t, err)

	records := parseCSV(t, out)
	require.Len(t, records, 3)
	assert.Equal(t, []string{
		"a-1", "2024-06-01 12:00:00", "pressure", "900.00", "950.00",
		"below minimum", "filtered", "1.00",
	}, records[1])
	assert.Equal(t, "", records[2][4], "unfiltered anomaly leaves the cell empty")
	assert.Equal(t, "0.75", records[2][7])
}

func TestEmptyExportsKeepHeader(t *testing.T) {
	hourly, err := HourlyCSV(nil)
	require.NoError(t, err)
	assert.Len(t, parseCSV(t, hourly), 1)

	daily, err := DailyCSV(nil)
	require.NoError(t, err)
	assert.Len(t, parseCSV(t, daily), 1)

	anomalies, err := AnomaliesCSV(nil)
	require.NoError(t, err)
	assert.Len(t, parseCSV(t, anomalies), 1)
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 30, 45, 0, time.UTC)
	assert.Equal(t, "hourly_data_20240601_123045.csv", Filename("hourly", now))
	assert.Equal(t, "anomalies_data_20240601_123045.csv", Filename("anomalies", now))
}
