// Package ingestor is the Ingestor component of spec.md §4.C: it
// resolves a sensor, persists the reading, assembles the Scorer's
// context from the Store, runs the Scorer, persists the verdict, and
// hands off to the Ticket Manager on a real (non-field-event) fault.
// Grounded on the teacher's internal/temperature.processReading critical
// section, generalized from its single package-level mutex to a
// per-sensor keyed-mutex map — the teacher's HVAC controller only ever
// serviced a handful of sensors off one poll loop and never needed
// per-sensor parallelism; spec.md §5 requires cross-sensor independence.
package ingestor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/HashimCodeDev/stve/internal/broadcaster"
	"github.com/HashimCodeDev/stve/internal/config"
	"github.com/HashimCodeDev/stve/internal/metrics"
	"github.com/HashimCodeDev/stve/internal/model"
	"github.com/HashimCodeDev/stve/internal/scorer"
	"github.com/HashimCodeDev/stve/internal/store"
	"github.com/HashimCodeDev/stve/internal/ticketmanager"
)

// Ingestor orchestrates the ingest → score → persist → ticket →
// broadcast pathway. Collaborators are constructed once at startup and
// passed in by reference; there are no module-level globals.
type Ingestor struct {
	store   store.Store
	cfg     config.Config
	tickets *ticketmanager.Manager
	bus     *broadcaster.Broadcaster
	locks   sync.Map // sensorRef -> *sync.Mutex
}

func New(st store.Store, cfg config.Config, tickets *ticketmanager.Manager, bus *broadcaster.Broadcaster) *Ingestor {
	return &Ingestor{store: st, cfg: cfg, tickets: tickets, bus: bus}
}

func (ig *Ingestor) lockFor(sensorRef string) *sync.Mutex {
	v, _ := ig.locks.LoadOrStore(sensorRef, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Ingest runs one reading through the full pipeline. A nil TrustResult
// with a nil error means the ingest succeeded but the sensor doesn't
// have enough history for a verdict yet (spec.md's insufficient-history
// short circuit) — not an error condition.
func (ig *Ingestor) Ingest(ctx context.Context, externalID string, payload ReadingPayload) (*model.TrustResult, error) {
	sensor, err := ig.store.GetSensorByExternalID(externalID)
	if err != nil {
		metrics.Incr("ingest.rejected", "reason:unknown_sensor")
		return nil, err
	}

	mu := ig.lockFor(sensor.Ref)
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ts := payload.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	reading := model.Reading{
		SensorRef:        sensor.Ref,
		Timestamp:        ts,
		Moisture:         payload.Moisture,
		Temperature:      payload.Temperature,
		EC:               payload.EC,
		PH:               payload.PH,
		AirTemp:          payload.AirTemp,
		IsRaining:        payload.IsRaining,
		IrrigationActive: payload.IrrigationActive,
	}

	readingRef, err := ig.store.AppendReading(sensor.Ref, reading)
	if err != nil {
		metrics.Incr("ingest.rejected", "reason:store_error")
		return nil, fmt.Errorf("append reading: %w", err)
	}
	reading.Ref = readingRef
	ig.bus.Publish(broadcaster.TopicReadingNew, sensor.Ref, reading)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scoringCtx, err := ig.loadContext(sensor, reading)
	if err != nil {
		return nil, fmt.Errorf("load scoring context: %w", err)
	}

	result, err := scorer.Score(scoringCtx)
	if err != nil {
		log.Error().Err(err).Str("sensor_ref", sensor.Ref).Msg("scorer error")
		return nil, fmt.Errorf("score reading: %w", err)
	}
	if result == nil {
		metrics.Incr("ingest.accepted", "verdict:none")
		return nil, nil
	}
	result.Ref = uuid.NewString()
	result.EvaluatedAt = time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := ig.store.SaveTrustResult(sensor.Ref, *result); err != nil {
		return nil, fmt.Errorf("save trust result: %w", err)
	}
	metrics.Incr("ingest.accepted", "verdict:scored")
	metrics.Gauge("sensor.trust_score", result.Score, "sensor_ref:"+sensor.Ref, "zone:"+sensor.Zone)

	ig.bus.Publish(broadcaster.TopicTrustUpdated, sensor.Ref, *result)
	ig.bus.PublishGlobal(broadcaster.TopicDashboardUpdate, nil)

	if result.Status == model.StatusAnomalous && !result.HasCause(model.CauseFieldEvent) {
		if _, err := ig.tickets.OnAnomalous(sensor.Ref, ticketIssue(*result), result.Severity); err != nil {
			log.Error().Err(err).Str("sensor_ref", sensor.Ref).Msg("ticket reconciliation failed")
		}
	}

	return result, nil
}

// BatchItem pairs a sensor reference with its reading for IngestBatch.
type BatchItem struct {
	ExternalID string
	Payload    ReadingPayload
}

// BatchResult is one item's outcome; a failure here never aborts the
// remaining items.
type BatchResult struct {
	ExternalID  string
	TrustResult *model.TrustResult
	Err         error
}

// IngestBatch applies Ingest sequentially per item.
func (ig *Ingestor) IngestBatch(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, len(items))
	for i, item := range items {
		tr, err := ig.Ingest(ctx, item.ExternalID, item.Payload)
		results[i] = BatchResult{ExternalID: item.ExternalID, TrustResult: tr, Err: err}
	}
	return results
}

func ticketIssue(result model.TrustResult) string {
	return fmt.Sprintf("trust score %.2f, root causes %v", result.Score, result.RootCauses)
}

// loadContext assembles the Scorer's Context from Store reads: this
// sensor's two history windows, same-zone peers' latest readings and
// histories, peers' latest trust scores, and this sensor's prior trend
// window. Per spec.md §5 these reads happen under the caller's
// per-sensor lock, giving the subject sensor's own slice a consistent
// view; peer reads are independent snapshots, which the spec permits
// (a monotonic snapshot suffices).
func (ig *Ingestor) loadContext(sensor model.Sensor, reading model.Reading) (scorer.Context, error) {
	windows := ig.cfg.Windows

	hist10, err := ig.store.RecentReadings(sensor.Ref, windows.HistoryWindow+1)
	if err != nil {
		return scorer.Context{}, err
	}
	hist20, err := ig.store.RecentReadings(sensor.Ref, windows.DriftWindow+1)
	if err != nil {
		return scorer.Context{}, err
	}

	peerLatest, err := ig.store.LatestReadingPerSensor(sensor.Zone, sensor.Ref)
	if err != nil {
		return scorer.Context{}, err
	}
	peerHistory, err := ig.store.RecentReadingsBySensor(sensor.Zone, sensor.Ref, windows.HistoryWindow+1)
	if err != nil {
		return scorer.Context{}, err
	}

	trustHistory, err := ig.store.RecentTrustResults(sensor.Ref, windows.TrendWindow)
	if err != nil {
		return scorer.Context{}, err
	}

	peerScores, err := ig.zonePeerScores(sensor)
	if err != nil {
		return scorer.Context{}, err
	}

	return scorer.Context{
		Config:          ig.cfg,
		Reading:         reading,
		OwnHistory10:    hist10,
		OwnHistory20:    hist20,
		PeerLatest:      peerLatest,
		PeerHistory:     peerHistory,
		PeerLatestScore: peerScores,
		TrustHistory:    trustHistory,
	}, nil
}

func (ig *Ingestor) zonePeerScores(sensor model.Sensor) (map[string]float64, error) {
	sensors, err := ig.store.ListSensors()
	if err != nil {
		return nil, err
	}
	allTrust, err := ig.store.LatestTrustPerSensor()
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	for _, s := range sensors {
		if s.Ref == sensor.Ref || s.Zone != sensor.Zone {
			continue
		}
		if tr, ok := allTrust[s.Ref]; ok {
			scores[s.Ref] = tr.Score
		}
	}
	return scores, nil
}
