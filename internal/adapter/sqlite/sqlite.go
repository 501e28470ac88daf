// Package sqlite persists readings, anomalies, daily aggregates, and the
// processing audit trail in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// Store is a SQLite-backed implementation of the pipeline's history, store,
// and audit sink contracts, plus the query surface the HTTP API serves.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path and applies the schema.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS readings (
			id             TEXT PRIMARY KEY,
			ts             TEXT NOT NULL,
			temperature    REAL NOT NULL,
			humidity       REAL NOT NULL,
			air_quality    INTEGER NOT NULL,
			pm25           REAL,
			pm10           REAL,
			co2            INTEGER,
			pressure       REAL NOT NULL,
			wind_speed     REAL NOT NULL,
			wind_direction INTEGER NOT NULL,
			uv_index       INTEGER,
			visibility     REAL,
			location       TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(ts);`,
		`CREATE TABLE IF NOT EXISTS anomalies (
			id             TEXT PRIMARY KEY,
			ts             TEXT NOT NULL,
			sensor_type    TEXT NOT NULL,
			original_value REAL NOT NULL,
			filtered_value REAL,
			reason         TEXT NOT NULL,
			status         TEXT NOT NULL,
			confidence     REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_ts ON anomalies(ts);`,
		`CREATE TABLE IF NOT EXISTS daily_stats (
			date              TEXT PRIMARY KEY,
			id                TEXT NOT NULL,
			avg_temperature   REAL NOT NULL,
			min_temperature   REAL NOT NULL,
			max_temperature   REAL NOT NULL,
			avg_humidity      REAL NOT NULL,
			avg_air_quality   REAL NOT NULL,
			avg_pressure      REAL NOT NULL,
			data_points_count INTEGER NOT NULL,
			anomalies_count   INTEGER NOT NULL,
			created_at        TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS processing_logs (
			id          TEXT PRIMARY KEY,
			ts          TEXT NOT NULL,
			action      TEXT NOT NULL,
			status      TEXT NOT NULL,
			details     TEXT NOT NULL,
			duration_ms INTEGER,
			data_count  INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_processing_logs_ts ON processing_logs(ts);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}

// RFC3339Nano in UTC sorts lexicographically, so ts columns can be TEXT and
// still support range scans.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SaveReading inserts one corrected reading.
func (s *Store) SaveReading(ctx context.Context, r domain.Reading) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (
			id, ts, temperature, humidity, air_quality, pm25, pm10, co2,
			pressure, wind_speed, wind_direction, uv_index, visibility, location
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, fmtTime(r.Timestamp), r.Temperature, r.Humidity, r.AirQuality,
		nullFloat(r.PM25), nullFloat(r.PM10), nullInt(r.CO2),
		r.Pressure, r.WindSpeed, r.WindDirection, nullInt(r.UVIndex),
		nullFloat(r.Visibility), r.Location,
	)
	if err != nil {
		return fmt.Errorf("save reading: %w", err)
	}
	return nil
}

// RecentReadings returns readings at or after since, ordered most recent
// last, capped at limit (the most recent entries win when truncating).
func (s *Store) RecentReadings(ctx context.Context, since time.Time, limit int) ([]domain.Reading, error) {
	readings, err := s.queryReadings(ctx, `
		SELECT id, ts, temperature, humidity, air_quality, pm25, pm10, co2,
		       pressure, wind_speed, wind_direction, uv_index, visibility, location
		FROM readings WHERE ts >= ? ORDER BY ts DESC LIMIT ?`,
		fmtTime(since), limit)
	if err != nil {
		return nil, err
	}
	// Reverse to chronological order, most recent last.
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}

// ReadingsSince returns readings at or after since, most recent first.
func (s *Store) ReadingsSince(ctx context.Context, since time.Time, limit int) ([]domain.Reading, error) {
	return s.queryReadings(ctx, `
		SELECT id, ts, temperature, humidity, air_quality, pm25, pm10, co2,
		       pressure, wind_speed, wind_direction, uv_index, visibility, location
		FROM readings WHERE ts >= ? ORDER BY ts DESC LIMIT ?`,
		fmtTime(since), limit)
}

// ReadingsBetween returns readings with start <= ts < end in chronological order.
func (s *Store) ReadingsBetween(ctx context.Context, start, end time.Time) ([]domain.Reading, error) {
	return s.queryReadings(ctx, `
		SELECT id, ts, temperature, humidity, air_quality, pm25, pm10, co2,
		       pressure, wind_speed, wind_direction, uv_index, visibility, location
		FROM readings WHERE ts >= ? AND ts < ? ORDER BY ts ASC`,
		fmtTime(start), fmtTime(end))
}

// LatestReading returns the most recently stored reading, or false when the
// store is empty.
func (s *Store) LatestReading(ctx context.Context) (domain.Reading, bool, error) {
	readings, err := s.queryReadings(ctx, `
		SELECT id, ts, temperature, humidity, air_quality, pm25, pm10, co2,
		       pressure, wind_speed, wind_direction, uv_index, visibility, location
		FROM readings ORDER BY ts DESC LIMIT 1`)
	if err != nil {
		return domain.Reading{}, false, err
	}
	if len(readings) == 0 {
		return domain.Reading{}, false, nil
	}
	return readings[0], true, nil
}

func (s *Store) queryReadings(ctx context.Context, query string, args ...any) ([]domain.Reading, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var readings []domain.Reading
	for rows.Next() {
		var (
			r          domain.Reading
			ts         string
			pm25, pm10 sql.NullFloat64
			co2, uv    sql.NullInt64
			visibility sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &ts, &r.Temperature, &r.Humidity, &r.AirQuality,
			&pm25, &pm10, &co2, &r.Pressure, &r.WindSpeed, &r.WindDirection,
			&uv, &visibility, &r.Location); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.Timestamp = parseTime(ts)
		r.PM25 = floatPtr(pm25)
		r.PM10 = floatPtr(pm10)
		r.CO2 = intPtr(co2)
		r.UVIndex = intPtr(uv)
		r.Visibility = floatPtr(visibility)
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// SaveAnomalies batch-inserts anomaly records in one transaction.
func (s *Store) SaveAnomalies(ctx context.Context, anomalies []domain.AnomalyRecord) error {
	if len(anomalies) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save anomalies: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO anomalies (
			id, ts, sensor_type, original_value, filtered_value, reason, status, confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save anomalies: %w", err)
	}
	defer stmt.Close()

	for _, a := range anomalies {
		_, err = stmt.ExecContext(ctx, a.ID, fmtTime(a.Timestamp), string(a.Channel),
			a.OriginalValue, nullFloat(a.FilteredValue), a.Reason, string(a.Status), a.Confidence)
		if err != nil {
			return fmt.Errorf("save anomaly %s: %w", a.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("save anomalies: %w", err)
	}
	return nil
}

// AnomaliesSince returns anomalies at or after since, most recent first.
func (s *Store) AnomaliesSince(ctx context.Context, since time.Time, limit int) ([]domain.AnomalyRecord, error) {
	return s.queryAnomalies(ctx, `
		SELECT id, ts, sensor_type, original_value, filtered_value, reason, status, confidence
		FROM anomalies WHERE ts >= ? ORDER BY ts DESC LIMIT ?`,
		fmtTime(since), limit)
}

// AnomaliesBetween returns anomalies with start <= ts < end, most recent first.
func (s *Store) AnomaliesBetween(ctx context.Context, start, end time.Time, limit int) ([]domain.AnomalyRecord, error) {
	return s.queryAnomalies(ctx, `
		SELECT id, ts, sensor_type, original_value, filtered_value, reason, status, confidence
		FROM anomalies WHERE ts >= ? AND ts < ? ORDER BY ts DESC LIMIT ?`,
		fmtTime(start), fmtTime(end), limit)
}

// CountAnomaliesBetween counts anomalies with start <= ts < end.
func (s *Store) CountAnomaliesBetween(ctx context.Context, start, end time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM anomalies WHERE ts >= ? AND ts < ?`,
		fmtTime(start), fmtTime(end)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count anomalies: %w", err)
	}
	return n, nil
}

func (s *Store) queryAnomalies(ctx context.Context, query string, args ...any) ([]domain.AnomalyRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	var anomalies []domain.AnomalyRecord
	for rows.Next() {
		var (
			a        domain.AnomalyRecord
			ts       string
			channel  string
			status   string
			filtered sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &ts, &channel, &a.OriginalValue, &filtered,
			&a.Reason, &status, &a.Confidence); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		a.Timestamp = parseTime(ts)
		a.Channel = domain.Channel(channel)
		a.Status = domain.AnomalyStatus(status)
		a.FilteredValue = floatPtr(filtered)
		anomalies = append(anomalies, a)
	}
	return anomalies, rows.Err()
}

// UpsertDailyAggregate writes one summary record per calendar date; the last
// write for a date wins.
func (s *Store) UpsertDailyAggregate(ctx context.Context, agg domain.DailyAggregate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_stats (
			date, id, avg_temperature, min_temperature, max_temperature,
			avg_humidity, avg_air_quality, avg_pressure, data_points_count,
			anomalies_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			id = excluded.id,
			avg_temperature = excluded.avg_temperature,
			min_temperature = excluded.min_temperature,
			max_temperature = excluded.max_temperature,
			avg_humidity = excluded.avg_humidity,
			avg_air_quality = excluded.avg_air_quality,
			avg_pressure = excluded.avg_pressure,
			data_points_count = excluded.data_points_count,
			anomalies_count = excluded.anomalies_count,
			created_at = excluded.created_at`,
		agg.Date, agg.ID, agg.AvgTemperature, agg.MinTemperature, agg.MaxTemperature,
		agg.AvgHumidity, agg.AvgAirQuality, agg.AvgPressure, agg.DataPointsCount,
		agg.AnomaliesCount, fmtTime(agg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert daily aggregate: %w", err)
	}
	return nil
}

// DailyAggregatesSince returns aggregates for dates >= sinceDate (YYYY-MM-DD),
// most recent first.
func (s *Store) DailyAggregatesSince(ctx context.Context, sinceDate string, limit int) ([]domain.DailyAggregate, error) {
	return s.queryAggregates(ctx, `
		SELECT date, id, avg_temperature, min_temperature, max_temperature,
		       avg_humidity, avg_air_quality, avg_pressure, data_points_count,
		       anomalies_count, created_at
		FROM daily_stats WHERE date >= ? ORDER BY date DESC LIMIT ?`,
		sinceDate, limit)
}

// DailyAggregatesBetween returns aggregates with startDate <= date <= endDate,
// most recent first.
func (s *Store) DailyAggregatesBetween(ctx context.Context, startDate, endDate string, limit int) ([]domain.DailyAggregate, error) {
	return s.queryAggregates(ctx, `
		SELECT date, id, avg_temperature, min_temperature, max_temperature,
		       avg_humidity, avg_air_quality, avg_pressure, data_points_count,
		       anomalies_count, created_at
		FROM daily_stats WHERE date >= ? AND date <= ? ORDER BY date DESC LIMIT ?`,
		startDate, endDate, limit)
}

func (s *Store) queryAggregates(ctx context.Context, query string, args ...any) ([]domain.DailyAggregate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []domain.DailyAggregate
	for rows.Next() {
		var (
			a         domain.DailyAggregate
			createdAt string
		)
		if err := rows.Scan(&a.Date, &a.ID, &a.AvgTemperature, &a.MinTemperature,
			&a.MaxTemperature, &a.AvgHumidity, &a.AvgAirQuality, &a.AvgPressure,
			&a.DataPointsCount, &a.AnomaliesCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan daily aggregate: %w", err)
		}
		a.CreatedAt = parseTime(createdAt)
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// AppendLog inserts one processing log entry.
func (s *Store) AppendLog(ctx context.Context, entry domain.ProcessingLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_logs (id, ts, action, status, details, duration_ms, data_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, fmtTime(entry.Timestamp), entry.Action, string(entry.Status),
		entry.Details, nullInt64(entry.DurationMS), nullInt(entry.DataCount),
	)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// LogsSince returns processing log entries at or after since, most recent first.
func (s *Store) LogsSince(ctx context.Context, since time.Time, limit int) ([]domain.ProcessingLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, action, status, details, duration_ms, data_count
		FROM processing_logs WHERE ts >= ? ORDER BY ts DESC LIMIT ?`,
		fmtTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.ProcessingLogEntry
	for rows.Next() {
		var (
			e         domain.ProcessingLogEntry
			ts        string
			status    string
			duration  sql.NullInt64
			dataCount sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &ts, &e.Action, &status, &e.Details, &duration, &dataCount); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		e.Timestamp = parseTime(ts)
		e.Status = domain.LogStatus(status)
		if duration.Valid {
			d := duration.Int64
			e.DurationMS = &d
		}
		e.DataCount = intPtr(dataCount)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// NULL conversion helpers between pointer fields and database/sql.

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
