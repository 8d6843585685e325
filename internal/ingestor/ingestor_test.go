package ingestor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HashimCodeDev/stve/internal/apperr"
	"github.com/HashimCodeDev/stve/internal/broadcaster"
	"github.com/HashimCodeDev/stve/internal/config"
	"github.com/HashimCodeDev/stve/internal/model"
	"github.com/HashimCodeDev/stve/internal/store"
	"github.com/HashimCodeDev/stve/internal/ticketmanager"
)

func newTestIngestor(t *testing.T) (*Ingestor, *store.SQLiteStore) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	bus := broadcaster.New(8)
	tickets := ticketmanager.New(s, bus, nil)
	return New(s, config.Default(), tickets, bus), s
}

func floatPtr(v float64) *float64 { return &v }

func TestIngestUnknownSensorReturnsError(t *testing.T) {
	ig, _ := newTestIngestor(t)
	_, err := ig.Ingest(context.Background(), "does-not-exist", ReadingPayload{Moisture: floatPtr(30)})
	assert.ErrorIs(t, err, apperr.ErrUnknownSensor)
}

func TestIngestInsufficientHistoryReturnsNilWithoutError(t *testing.T) {
	ig, s := newTestIngestor(t)
	_, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)

	result, err := ig.Ingest(context.Background(), "sensor-a", ReadingPayload{Moisture: floatPtr(30)})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestIngestProducesVerdictAfterEnoughHistory(t *testing.T) {
	ig, s := newTestIngestor(t)
	_, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := ig.Ingest(ctx, "sensor-a", ReadingPayload{
			Moisture:    floatPtr(30 + float64(i%2)),
			Temperature: floatPtr(22),
			EC:          floatPtr(1.2),
			PH:          floatPtr(6.5),
		})
		require.NoError(t, err)
	}

	result, err := ig.Ingest(ctx, "sensor-a", ReadingPayload{
		Moisture:    floatPtr(30.5),
		Temperature: floatPtr(22.1),
		EC:          floatPtr(1.22),
		PH:          floatPtr(6.5),
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.StatusHealthy, result.Status)
}

func TestIngestAnomalousOpensTicket(t *testing.T) {
	ig, s := newTestIngestor(t)
	_, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := ig.Ingest(ctx, "sensor-a", ReadingPayload{PH: floatPtr(11.9)})
		require.NoError(t, err)
	}

	tickets, err := s.ListTickets(nil)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, model.SeverityCritical, tickets[0].Severity)
}

// TestIngestModerateBandOpensTicket exercises the 0.50-0.73 trust band
// through the full ingest pipeline: every parameter shows a moderate
// (not sharp) change from its own history and from its one zone peer,
// landing trust at 0.56 - Anomalous, not Warning - and confirms the
// ticket manager opens a ticket for it.
func TestIngestModerateBandOpensTicket(t *testing.T) {
	ig, s := newTestIngestor(t)
	refA, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)
	_, err = s.RegisterSensor("sensor-b", "z1", "soil", nil, nil)
	require.NoError(t, err)

	ctx := context.Background()

	// Peer stays flat at the shared baseline so sensor-a's final spike
	// reads as a moderate, not extreme, deviation from its zone.
	for i := 0; i < 2; i++ {
		_, err := ig.Ingest(ctx, "sensor-b", ReadingPayload{
			Moisture: floatPtr(40), Temperature: floatPtr(20), EC: floatPtr(1.2), PH: floatPtr(6.5),
		})
		require.NoError(t, err)
	}

	wobble := []float64{0, 1.0, -1.0, 0.5, -0.5, 1.0, -1.0, 0.5, -0.5, 0}
	for i := 0; i < 20; i++ {
		w := wobble[i%len(wobble)]
		_, err := ig.Ingest(ctx, "sensor-a", ReadingPayload{
			Moisture:    floatPtr(40 + 2*w),
			Temperature: floatPtr(20 + w),
			EC:          floatPtr(1.2 + 0.05*w),
			PH:          floatPtr(6.5 + 0.1*w),
		})
		require.NoError(t, err)
	}

	result, err := ig.Ingest(ctx, "sensor-a", ReadingPayload{
		Moisture:    floatPtr(56),
		Temperature: floatPtr(28),
		EC:          floatPtr(1.68),
		PH:          floatPtr(8.45),
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, model.StatusAnomalous, result.Status)
	assert.Equal(t, "Unreliable", result.Label)

	tickets, err := s.ListTickets(nil)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, refA, tickets[0].SensorRef)
}

func TestIngestBatchContinuesAfterOneFailure(t *testing.T) {
	ig, s := newTestIngestor(t)
	_, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)

	items := []BatchItem{
		{ExternalID: "does-not-exist", Payload: ReadingPayload{Moisture: floatPtr(30)}},
		{ExternalID: "sensor-a", Payload: ReadingPayload{Moisture: floatPtr(30)}},
	}
	results := ig.IngestBatch(context.Background(), items)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
}

func TestIngestPublishesReadingNewEvent(t *testing.T) {
	ig, s := newTestIngestor(t)
	_, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)

	_, ch := ig.bus.Subscribe()
	_, err = ig.Ingest(context.Background(), "sensor-a", ReadingPayload{Moisture: floatPtr(30)})
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, broadcaster.TopicReadingNew, ev.Topic)
	case <-time.After(time.Second):
		t.Fatal("expected a reading.new event")
	}
}
