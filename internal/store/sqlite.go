package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/HashimCodeDev/stve/internal/apperr"
	"github.com/HashimCodeDev/stve/internal/model"
)

const timeLayout = time.RFC3339Nano

// SQLiteStore is the sqlite-backed implementation of Store, grounded on
// the teacher's db package: raw database/sql, no ORM, JSON-encoded
// compound columns the way db/queries.go JSON-encodes zone capabilities.
type SQLiteStore struct {
	db    *sql.DB
	clock Clock
}

// Open connects to (and, if missing, initializes) the sqlite database at
// path, following the teacher's InitializeIfMissing entrypoint.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer connection avoids "database is locked" errors under
	// concurrent ingest; sqlite serializes writes at the file level anyway.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, clock: realClock{}}
	if err := s.initializeIfMissing(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RegisterSensor(externalID, zone, sensorType string, lat, lon *float64) (string, error) {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sensors WHERE external_id = ?`, externalID).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("%w: checking sensor existence: %v", apperr.ErrStoreError, err)
	}
	if exists > 0 {
		return "", apperr.ErrDuplicateID
	}

	ref := uuid.NewString()
	now := s.clock.Now()
	_, err = s.db.Exec(
		`INSERT INTO sensors (ref, external_id, zone, type, lat, lon, installed_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ref, externalID, zone, sensorType, nullableFloat(lat), nullableFloat(lon), now.Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("%w: inserting sensor: %v", apperr.ErrStoreError, err)
	}

	initial := model.TrustResult{
		Ref:             uuid.NewString(),
		SensorRef:       ref,
		Score:           1.0,
		Status:          model.StatusHealthy,
		Label:           "Highly Reliable",
		Severity:        model.SeverityNone,
		PerParameter:    map[model.Parameter]model.ParameterScore{},
		RootCauses:      []model.RootCause{model.CauseNormal},
		HealthTrend:     model.TrendUnknown,
		ConfidenceLevel: 0.9,
		EvaluatedAt:     now,
	}
	if err := s.SaveTrustResult(ref, initial); err != nil {
		return "", fmt.Errorf("failed to persist initial trust result: %w", err)
	}

	return ref, nil
}

func (s *SQLiteStore) GetSensorByRef(sensorRef string) (model.Sensor, error) {
	row := s.db.QueryRow(`SELECT ref, external_id, zone, type, lat, lon, installed_at FROM sensors WHERE ref = ?`, sensorRef)
	return scanSensor(row)
}

func (s *SQLiteStore) GetSensorByExternalID(externalID string) (model.Sensor, error) {
	row := s.db.QueryRow(`SELECT ref, external_id, zone, type, lat, lon, installed_at FROM sensors WHERE external_id = ?`, externalID)
	return scanSensor(row)
}

func (s *SQLiteStore) ListSensors() ([]model.Sensor, error) {
	rows, err := s.db.Query(`SELECT ref, external_id, zone, type, lat, lon, installed_at FROM sensors`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing sensors: %v", apperr.ErrStoreError, err)
	}
	defer rows.Close()

	var sensors []model.Sensor
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, sensor)
	}
	return sensors, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSensor(row rowScanner) (model.Sensor, error) {
	var sensor model.Sensor
	var lat, lon sql.NullFloat64
	var installedAt string

	err := row.Scan(&sensor.Ref, &sensor.ExternalID, &sensor.Zone, &sensor.Type, &lat, &lon, &installedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Sensor{}, apperr.ErrUnknownSensor
	}
	if err != nil {
		return model.Sensor{}, fmt.Errorf("%w: scanning sensor: %v", apperr.ErrStoreError, err)
	}

	sensor.Lat = floatPtr(lat)
	sensor.Lon = floatPtr(lon)
	sensor.InstalledAt, _ = time.Parse(timeLayout, installedAt)
	return sensor, nil
}

func (s *SQLiteStore) sensorExists(sensorRef string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sensors WHERE ref = ?`, sensorRef).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: checking sensor: %v", apperr.ErrStoreError, err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) AppendReading(sensorRef string, reading model.Reading) (string, error) {
	exists, err := s.sensorExists(sensorRef)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", apperr.ErrUnknownSensor
	}

	ref := uuid.NewString()
	ts := reading.Timestamp
	if ts.IsZero() {
		ts = s.clock.Now()
	}

	_, err = s.db.Exec(
		`INSERT INTO readings (ref, sensor_ref, timestamp, moisture, temperature, ec, ph, air_temp, is_raining, irrigation_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref, sensorRef, ts.Format(timeLayout),
		nullableFloat(reading.Moisture), nullableFloat(reading.Temperature),
		nullableFloat(reading.EC), nullableFloat(reading.PH),
		nullableFloat(reading.AirTemp), nullableBool(reading.IsRaining), nullableBool(reading.IrrigationActive),
	)
	if err != nil {
		return "", fmt.Errorf("%w: inserting reading: %v", apperr.ErrStoreError, err)
	}
	return ref, nil
}

func (s *SQLiteStore) RecentReadings(sensorRef string, n int) ([]model.Reading, error) {
	rows, err := s.db.Query(
		`SELECT ref, sensor_ref, timestamp, moisture, temperature, ec, ph, air_temp, is_raining, irrigation_active
		 FROM readings WHERE sensor_ref = ? ORDER BY timestamp DESC LIMIT ?`,
		sensorRef, n,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying recent readings: %v", apperr.ErrStoreError, err)
	}
	defer rows.Close()
	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]model.Reading, error) {
	var out []model.Reading
	for rows.Next() {
		var r model.Reading
		var ts string
		var moisture, temperature, ec, ph, airTemp sql.NullFloat64
		var isRaining, irrigationActive sql.NullBool

		if err := rows.Scan(&r.Ref, &r.SensorRef, &ts, &moisture, &temperature, &ec, &ph, &airTemp, &isRaining, &irrigationActive); err != nil {
			return nil, fmt.Errorf("%w: scanning reading: %v", apperr.ErrStoreError, err)
		}
		r.Timestamp, _ = time.Parse(timeLayout, ts)
		r.Moisture = floatPtr(moisture)
		r.Temperature = floatPtr(temperature)
		r.EC = floatPtr(ec)
		r.PH = floatPtr(ph)
		r.AirTemp = floatPtr(airTemp)
		r.IsRaining = boolPtr(isRaining)
		r.IrrigationActive = boolPtr(irrigationActive)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LatestReadingPerSensor(zone, excludingSensorRef string) (map[string]model.Reading, error) {
	rows, err := s.db.Query(
		`SELECT r.ref, r.sensor_ref, r.timestamp, r.moisture, r.temperature, r.ec, r.ph, r.air_temp, r.is_raining, r.irrigation_active
		 FROM readings r
		 JOIN sensors s ON s.ref = r.sensor_ref
		 WHERE s.zone = ? AND s.ref != ?
		 AND r.timestamp = (SELECT MAX(r2.timestamp) FROM readings r2 WHERE r2.sensor_ref = r.sensor_ref)`,
		zone, excludingSensorRef,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying latest reading per sensor: %v", apperr.ErrStoreError, err)
	}
	defer rows.Close()

	readings, err := scanReadings(rows)
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.Reading, len(readings))
	for _, r := range readings {
		out[r.SensorRef] = r
	}
	return out, nil
}

func (s *SQLiteStore) RecentReadingsBySensor(zone, excludingSensorRef string, n int) (map[string][]model.Reading, error) {
	rows, err := s.db.Query(
		`SELECT ref FROM sensors WHERE zone = ? AND ref != ?`, zone, excludingSensorRef,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing zone peers: %v", apperr.ErrStoreError, err)
	}
	var peerRefs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scanning peer ref: %v", apperr.ErrStoreError, err)
		}
		peerRefs = append(peerRefs, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating peer refs: %v", apperr.ErrStoreError, err)
	}

	out := make(map[string][]model.Reading, len(peerRefs))
	for _, ref := range peerRefs {
		history, err := s.RecentReadings(ref, n)
		if err != nil {
			return nil, err
		}
		out[ref] = history
	}
	return out, nil
}

func (s *SQLiteStore) RecentTrustResults(sensorRef string, n int) ([]model.TrustResult, error) {
	rows, err := s.db.Query(
		`SELECT ref, sensor_ref, reading_ref, score, status, label, severity, per_parameter, root_causes,
		        health_trend, trend_slope, anomaly_rate, irrigation_safe, failure_prediction, confidence_level,
		        zone_reliability, sustainability_insight, alert_tag, flags, evaluated_at
		 FROM trust_results WHERE sensor_ref = ? ORDER BY evaluated_at DESC LIMIT ?`,
		sensorRef, n,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying recent trust results: %v", apperr.ErrStoreError, err)
	}
	defer rows.Close()
	return scanTrustResults(rows)
}

func scanTrustResults(rows *sql.Rows) ([]model.TrustResult, error) {
	var out []model.TrustResult
	for rows.Next() {
		tr, err := scanTrustResultRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func scanTrustResultRow(row rowScanner) (model.TrustResult, error) {
	var tr model.TrustResult
	var readingRef, failurePrediction, sustainabilityInsight, alertTag sql.NullString
	var zoneReliability sql.NullFloat64
	var perParamJSON, rootCausesJSON, flagsJSON string
	var status, label, severity, healthTrend, evaluatedAt string
	var irrigationSafe int

	err := row.Scan(
		&tr.Ref, &tr.SensorRef, &readingRef, &tr.Score, &status, &label, &severity, &perParamJSON, &rootCausesJSON,
		&healthTrend, &tr.TrendSlope, &tr.AnomalyRate, &irrigationSafe, &failurePrediction, &tr.ConfidenceLevel,
		&zoneReliability, &sustainabilityInsight, &alertTag, &flagsJSON, &evaluatedAt,
	)
	if err != nil {
		return model.TrustResult{}, fmt.Errorf("%w: scanning trust result: %v", apperr.ErrStoreError, err)
	}

	tr.ReadingRef = readingRef.String
	tr.Status = model.Status(status)
	tr.Label = label
	tr.Severity = model.Severity(severity)
	tr.HealthTrend = model.Trend(healthTrend)
	tr.IrrigationSafe = irrigationSafe != 0
	tr.FailurePrediction = stringPtr(failurePrediction)
	tr.ZoneReliability = floatPtr(zoneReliability)
	tr.SustainabilityInsight = stringPtr(sustainabilityInsight)
	tr.AlertTag = stringPtr(alertTag)
	tr.EvaluatedAt, _ = time.Parse(timeLayout, evaluatedAt)

	if err := json.Unmarshal([]byte(perParamJSON), &tr.PerParameter); err != nil {
		return model.TrustResult{}, fmt.Errorf("%w: decoding per_parameter: %v", apperr.ErrStoreError, err)
	}
	if err := json.Unmarshal([]byte(rootCausesJSON), &tr.RootCauses); err != nil {
		return model.TrustResult{}, fmt.Errorf("%w: decoding root_causes: %v", apperr.ErrStoreError, err)
	}
	if err := json.Unmarshal([]byte(flagsJSON), &tr.Flags); err != nil {
		return model.TrustResult{}, fmt.Errorf("%w: decoding flags: %v", apperr.ErrStoreError, err)
	}
	return tr, nil
}

func (s *SQLiteStore) SaveTrustResult(sensorRef string, result model.TrustResult) error {
	if result.Ref == "" {
		result.Ref = uuid.NewString()
	}
	if result.EvaluatedAt.IsZero() {
		result.EvaluatedAt = s.clock.Now()
	}

	perParamJSON, err := json.Marshal(result.PerParameter)
	if err != nil {
		return fmt.Errorf("failed to encode per_parameter: %w", err)
	}
	rootCausesJSON, err := json.Marshal(result.RootCauses)
	if err != nil {
		return fmt.Errorf("failed to encode root_causes: %w", err)
	}
	flagsJSON, err := json.Marshal(result.Flags)
	if err != nil {
		return fmt.Errorf("failed to encode flags: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO trust_results (
			ref, sensor_ref, reading_ref, score, status, label, severity, per_parameter, root_causes,
			health_trend, trend_slope, anomaly_rate, irrigation_safe, failure_prediction, confidence_level,
			zone_reliability, sustainability_insight, alert_tag, flags, evaluated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.Ref, sensorRef, nullableString(result.ReadingRef), result.Score, string(result.Status), result.Label, string(result.Severity),
		string(perParamJSON), string(rootCausesJSON), string(result.HealthTrend), result.TrendSlope, result.AnomalyRate,
		boolToInt(result.IrrigationSafe), nullableStringPtr(result.FailurePrediction), result.ConfidenceLevel,
		nullableFloat(result.ZoneReliability), nullableStringPtr(result.SustainabilityInsight), nullableStringPtr(result.AlertTag),
		string(flagsJSON), result.EvaluatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("%w: inserting trust result: %v", apperr.ErrStoreError, err)
	}
	return nil
}

func (s *SQLiteStore) LatestTrustPerSensor() (map[string]model.TrustResult, error) {
	rows, err := s.db.Query(
		`SELECT t.ref, t.sensor_ref, t.reading_ref, t.score, t.status, t.label, t.severity, t.per_parameter, t.root_causes,
		        t.health_trend, t.trend_slope, t.anomaly_rate, t.irrigation_safe, t.failure_prediction, t.confidence_level,
		        t.zone_reliability, t.sustainability_insight, t.alert_tag, t.flags, t.evaluated_at
		 FROM trust_results t
		 WHERE t.evaluated_at = (SELECT MAX(t2.evaluated_at) FROM trust_results t2 WHERE t2.sensor_ref = t.sensor_ref)`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying latest trust per sensor: %v", apperr.ErrStoreError, err)
	}
	defer rows.Close()

	results, err := scanTrustResults(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.TrustResult, len(results))
	for _, r := range results {
		out[r.SensorRef] = r
	}
	return out, nil
}

func (s *SQLiteStore) OpenTicketForSensor(sensorRef string) (*model.Ticket, error) {
	row := s.db.QueryRow(
		`SELECT ref, sensor_ref, issue, severity, status, created_at, resolved_at
		 FROM tickets WHERE sensor_ref = ? AND status = ? LIMIT 1`,
		sensorRef, string(model.TicketOpen),
	)
	ticket, err := scanTicket(row)
	if errors.Is(err, apperr.ErrUnknownTicket) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTicket(row rowScanner) (model.Ticket, error) {
	var t model.Ticket
	var status, severity, createdAt string
	var resolvedAt sql.NullString

	err := row.Scan(&t.Ref, &t.SensorRef, &t.Issue, &severity, &status, &createdAt, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, apperr.ErrUnknownTicket
	}
	if err != nil {
		return model.Ticket{}, fmt.Errorf("%w: scanning ticket: %v", apperr.ErrStoreError, err)
	}

	t.Severity = model.Severity(severity)
	t.Status = model.TicketStatus(status)
	t.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if resolvedAt.Valid {
		parsed, _ := time.Parse(timeLayout, resolvedAt.String)
		t.ResolvedAt = &parsed
	}
	return t, nil
}

func (s *SQLiteStore) SaveTicket(ticket model.Ticket) error {
	if ticket.Ref == "" {
		ticket.Ref = uuid.NewString()
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = s.clock.Now()
	}

	var resolvedAt any
	if ticket.ResolvedAt != nil {
		resolvedAt = ticket.ResolvedAt.Format(timeLayout)
	}

	_, err := s.db.Exec(
		`INSERT INTO tickets (ref, sensor_ref, issue, severity, status, created_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(ref) DO UPDATE SET issue=excluded.issue, severity=excluded.severity,
		 status=excluded.status, resolved_at=excluded.resolved_at`,
		ticket.Ref, ticket.SensorRef, ticket.Issue, string(ticket.Severity), string(ticket.Status),
		ticket.CreatedAt.Format(timeLayout), resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: saving ticket: %v", apperr.ErrStoreError, err)
	}
	return nil
}

func (s *SQLiteStore) GetTicketByRef(ticketRef string) (model.Ticket, error) {
	row := s.db.QueryRow(
		`SELECT ref, sensor_ref, issue, severity, status, created_at, resolved_at FROM tickets WHERE ref = ?`,
		ticketRef,
	)
	return scanTicket(row)
}

func (s *SQLiteStore) ListTickets(statusFilter *model.TicketStatus) ([]model.Ticket, error) {
	var rows *sql.Rows
	var err error
	if statusFilter != nil {
		rows, err = s.db.Query(
			`SELECT ref, sensor_ref, issue, severity, status, created_at, resolved_at FROM tickets WHERE status = ? ORDER BY created_at DESC`,
			string(*statusFilter),
		)
	} else {
		rows, err = s.db.Query(
			`SELECT ref, sensor_ref, issue, severity, status, created_at, resolved_at FROM tickets ORDER BY created_at DESC`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: listing tickets: %v", apperr.ErrStoreError, err)
	}
	defer rows.Close()

	var out []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- scalar helpers -------------------------------------------------

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func boolPtr(n sql.NullBool) *bool {
	if !n.Valid {
		return nil
	}
	v := n.Bool
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
