// Package store is the Store component of spec.md §4.A: the sole
// stateful collaborator, persisting sensors, readings, trust verdicts and
// tickets, and supplying the history windows the Scorer needs. Grounded
// on the teacher's db/ package (plain database/sql + mattn/go-sqlite3,
// no ORM) and db/db.go's schema-on-first-boot idiom.
package store

import (
	"time"

	"github.com/HashimCodeDev/stve/internal/model"
)

// Store is the contract spec.md §4.A describes. Every method is
// individually atomic; composing several calls into one higher-level
// atomic operation (ingest-then-score-then-persist) is the Ingestor's
// job, not the Store's.
type Store interface {
	RegisterSensor(externalID, zone, sensorType string, lat, lon *float64) (string, error)
	GetSensorByRef(sensorRef string) (model.Sensor, error)
	GetSensorByExternalID(externalID string) (model.Sensor, error)
	ListSensors() ([]model.Sensor, error)

	AppendReading(sensorRef string, reading model.Reading) (string, error)
	RecentReadings(sensorRef string, n int) ([]model.Reading, error)
	LatestReadingPerSensor(zone, excludingSensorRef string) (map[string]model.Reading, error)
	RecentReadingsBySensor(zone, excludingSensorRef string, n int) (map[string][]model.Reading, error)

	RecentTrustResults(sensorRef string, n int) ([]model.TrustResult, error)
	SaveTrustResult(sensorRef string, result model.TrustResult) error
	LatestTrustPerSensor() (map[string]model.TrustResult, error)

	OpenTicketForSensor(sensorRef string) (*model.Ticket, error)
	SaveTicket(ticket model.Ticket) error
	ListTickets(statusFilter *model.TicketStatus) ([]model.Ticket, error)
	GetTicketByRef(ticketRef string) (model.Ticket, error)

	Close() error
}

// Clock lets tests substitute a fixed time; production code uses
// time.Now via realClock.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
