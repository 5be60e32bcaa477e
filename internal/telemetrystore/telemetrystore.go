// Package telemetrystore stands in for the out-of-scope time-series
// database: an append-only log of readings and published analysis
// results, for offline inspection only. Nothing in the analytic path
// reads it back — the core's own in-memory state (rings, baselines,
// wear, cache) is authoritative for the life of the process, per the
// no-restart-persistence design.
package telemetrystore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fieldmesh/telemetry-core/internal/model"
)

// Sink is the named out-of-scope telemetry-database collaborator.
type Sink interface {
	AppendReading(r model.SensorReading) error
	AppendAnalysisResult(r model.AnalysisResult) error
	Close() error
}

// SQLiteSink is a Sink backed by a local SQLite file.
type SQLiteSink struct {
	db *sql.DB
}

func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteSink{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sensor_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS analysis_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			payload TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply telemetry store migration: %w", err)
		}
	}
	return nil
}

func (s *SQLiteSink) AppendReading(r model.SensorReading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO sensor_readings (device_id, timestamp_ms, payload) VALUES (?, ?, ?)`,
		r.DeviceID, r.TimestampMs, string(payload))
	return err
}

func (s *SQLiteSink) AppendAnalysisResult(r model.AnalysisResult) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO analysis_results (device_id, timestamp_ms, payload) VALUES (?, ?, ?)`,
		r.DeviceID, r.TimestampMs, string(payload))
	return err
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
