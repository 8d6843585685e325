package store

const schema = `
CREATE TABLE IF NOT EXISTS sensors (
	ref          TEXT PRIMARY KEY,
	external_id  TEXT NOT NULL UNIQUE,
	zone         TEXT NOT NULL,
	type         TEXT NOT NULL,
	lat          REAL,
	lon          REAL,
	installed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sensors_zone ON sensors(zone);

CREATE TABLE IF NOT EXISTS readings (
	ref               TEXT PRIMARY KEY,
	sensor_ref        TEXT NOT NULL REFERENCES sensors(ref),
	timestamp         TEXT NOT NULL,
	moisture          REAL,
	temperature       REAL,
	ec                REAL,
	ph                REAL,
	air_temp          REAL,
	is_raining        INTEGER,
	irrigation_active INTEGER
);
CREATE INDEX IF NOT EXISTS idx_readings_sensor_ts ON readings(sensor_ref, timestamp);

CREATE TABLE IF NOT EXISTS trust_results (
	ref                    TEXT PRIMARY KEY,
	sensor_ref             TEXT NOT NULL REFERENCES sensors(ref),
	reading_ref            TEXT,
	score                  REAL NOT NULL,
	status                 TEXT NOT NULL,
	label                  TEXT NOT NULL,
	severity               TEXT NOT NULL,
	per_parameter          TEXT NOT NULL,
	root_causes            TEXT NOT NULL,
	health_trend           TEXT NOT NULL,
	trend_slope            REAL NOT NULL,
	anomaly_rate           REAL NOT NULL,
	irrigation_safe        INTEGER NOT NULL,
	failure_prediction     TEXT,
	confidence_level       REAL NOT NULL,
	zone_reliability       REAL,
	sustainability_insight TEXT,
	alert_tag              TEXT,
	flags                  TEXT NOT NULL,
	evaluated_at           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trust_sensor_evaluated ON trust_results(sensor_ref, evaluated_at);

CREATE TABLE IF NOT EXISTS tickets (
	ref         TEXT PRIMARY KEY,
	sensor_ref  TEXT NOT NULL REFERENCES sensors(ref),
	issue       TEXT NOT NULL,
	severity    TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	resolved_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
CREATE INDEX IF NOT EXISTS idx_tickets_sensor ON tickets(sensor_ref);
`

// initializeIfMissing creates the schema when the database file is fresh,
// mirroring the teacher's db.InitializeIfMissing/SeedDatabase split:
// schema creation happens unconditionally (CREATE TABLE IF NOT EXISTS),
// since sqlite files themselves are created implicitly by the driver.
func (s *SQLiteStore) initializeIfMissing() error {
	_, err := s.db.Exec(schema)
	return err
}
