package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "test-key", cfg.WeatherAPIKey)
	assert.Equal(t, "http://api.weatherapi.com/v1", cfg.WeatherAPIURL)
	assert.Equal(t, 10*time.Second, cfg.WeatherTimeout)
	assert.Equal(t, "Kyiv", cfg.Location)
	assert.Equal(t, time.Hour, cfg.CollectInterval)
	assert.Equal(t, 24*time.Hour, cfg.HistoryWindow)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, "air-quality.db", cfg.SQLitePath)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "air-quality-events", cfg.KafkaSinkTopic)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "k")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("WEATHER_LOCATION", "Lviv")
	t.Setenv("COLLECT_INTERVAL", "15m")
	t.Setenv("HISTORY_WINDOW", "48h")
	t.Setenv("HISTORY_LIMIT", "250")
	t.Setenv("SQLITE_PATH", "/var/lib/monitor/data.db")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "readings")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "Lviv", cfg.Location)
	assert.Equal(t, 15*time.Minute, cfg.CollectInterval)
	assert.Equal(t, 48*time.Hour, cfg.HistoryWindow)
	assert.Equal(t, 250, cfg.HistoryLimit)
	assert.Equal(t, "/var/lib/monitor/data.db", cfg.SQLitePath)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "readings", cfg.KafkaSinkTopic)
	assert.True(t, cfg.KafkaEnabled, "setting brokers enables publishing")
}

func TestLoad_KafkaDisabledExplicitly(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "k")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092")
	t.Setenv("KAFKA_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEATHER_API_KEY")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad interval", "COLLECT_INTERVAL", "soon"},
		{"negative interval", "COLLECT_INTERVAL", "-5m"},
		{"bad window", "HISTORY_WINDOW", "1 day"},
		{"bad limit", "HISTORY_LIMIT", "many"},
		{"zero limit", "HISTORY_LIMIT", "0"},
		{"bad timeout", "SHUTDOWN_TIMEOUT", "later"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WEATHER_API_KEY", "k")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("WEATHER_API_KEY", "k")
	t.Setenv("KAFKA_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}
