// Package weatherapi fetches current conditions from the WeatherAPI
// current-conditions endpoint and maps them to domain readings.
package weatherapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// Client implements the pipeline's Ingestor contract against WeatherAPI.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a WeatherAPI client. baseURL is the API root, e.g.
// "http://api.weatherapi.com/v1".
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// CurrentReading fetches current conditions for a location. Any provider
// failure (transport error, non-200, malformed body) surfaces as an error
// with no partial reading.
func (c *Client) CurrentReading(ctx context.Context, location string) (domain.Reading, error) {
	params := url.Values{
		"key": {c.apiKey},
		"q":   {location},
		"aqi": {"yes"},
	}
	fullURL := c.baseURL + "/current.json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("current weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Reading{}, fmt.Errorf("weather API error: status %d: %s", resp.StatusCode, body)
	}

	var payload currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Reading{}, fmt.Errorf("decode response: %w", err)
	}

	return toReading(payload), nil
}

// toReading maps the provider payload to a domain reading: wind km/h to m/s,
// CO mg/m³ to approximate ppm, and a simplified AQI derived from PM values.
func toReading(payload currentResponse) domain.Reading {
	cur := payload.Current
	aq := cur.AirQuality

	r := domain.NewReading()
	r.Temperature = cur.TempC
	r.Humidity = cur.Humidity
	r.AirQuality = computeAQI(aq.PM25, aq.PM10)
	r.Pressure = cur.PressureMB
	r.WindSpeed = cur.WindKPH / 3.6
	r.WindDirection = cur.WindDegree

	if aq.PM25 > 0 {
		pm25 := aq.PM25
		r.PM25 = &pm25
	}
	if aq.PM10 > 0 {
		pm10 := aq.PM10
		r.PM10 = &pm10
	}
	if aq.CO > 0 {
		co2 := int(aq.CO * 1000)
		r.CO2 = &co2
	}
	if cur.UV > 0 {
		uv := int(cur.UV)
		r.UVIndex = &uv
	}
	if cur.VisKM > 0 {
		vis := cur.VisKM
		r.Visibility = &vis
	}

	if payload.Location.Name != "" {
		r.Location = fmt.Sprintf("%s, %s", payload.Location.Name, payload.Location.Country)
	}

	return r
}

// WeatherAPI response types (subset of /current.json).

type currentResponse struct {
	Location locationData `json:"location"`
	Current  currentData  `json:"current"`
}

type locationData struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

type currentData struct {
	TempC      float64        `json:"temp_c"`
	Humidity   float64        `json:"humidity"`
	PressureMB float64        `json:"pressure_mb"`
	WindKPH    float64        `json:"wind_kph"`
	WindDegree int            `json:"wind_degree"`
	UV         float64        `json:"uv"`
	VisKM      float64        `json:"vis_km"`
	AirQuality airQualityData `json:"air_quality"`
}

type airQualityData struct {
	CO   float64 `json:"co"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	SO2  float64 `json:"so2"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
}
