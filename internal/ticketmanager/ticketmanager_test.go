package ticketmanager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HashimCodeDev/stve/internal/apperr"
	"github.com/HashimCodeDev/stve/internal/broadcaster"
	"github.com/HashimCodeDev/stve/internal/model"
	"github.com/HashimCodeDev/stve/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.SQLiteStore, string) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	sensorRef, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)

	m := New(s, broadcaster.New(8), nil)
	m.clock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return m, s, sensorRef
}

func TestOnAnomalousCreatesThenUpdatesInPlace(t *testing.T) {
	m, _, sensorRef := newTestManager(t)

	ticket, err := m.OnAnomalous(sensorRef, "spike detected", model.SeverityLow)
	require.NoError(t, err)
	assert.Equal(t, model.TicketOpen, ticket.Status)
	assert.Equal(t, model.SeverityLow, ticket.Severity)

	updated, err := m.OnAnomalous(sensorRef, "still spiking", model.SeverityHigh)
	require.NoError(t, err)
	assert.Equal(t, ticket.Ref, updated.Ref, "must not create a second ticket")
	assert.Equal(t, model.SeverityHigh, updated.Severity)
	assert.Equal(t, "still spiking", updated.Issue)
}

func TestOnAnomalousNeverLowersSeverity(t *testing.T) {
	m, _, sensorRef := newTestManager(t)

	_, err := m.OnAnomalous(sensorRef, "first", model.SeverityHigh)
	require.NoError(t, err)

	updated, err := m.OnAnomalous(sensorRef, "second", model.SeverityLow)
	require.NoError(t, err)
	assert.Equal(t, model.SeverityHigh, updated.Severity, "severity must never be lowered")
}

func TestResolveSetsResolvedAt(t *testing.T) {
	m, _, sensorRef := newTestManager(t)

	ticket, err := m.OnAnomalous(sensorRef, "issue", model.SeverityMedium)
	require.NoError(t, err)

	resolved, err := m.Resolve(ticket.Ref)
	require.NoError(t, err)
	assert.Equal(t, model.TicketResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
}

func TestNoTransitionOutOfResolved(t *testing.T) {
	m, _, sensorRef := newTestManager(t)

	ticket, err := m.OnAnomalous(sensorRef, "issue", model.SeverityMedium)
	require.NoError(t, err)
	_, err = m.Resolve(ticket.Ref)
	require.NoError(t, err)

	_, err = m.Progress(ticket.Ref)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestOpenToResolvedDirectIsPermitted(t *testing.T) {
	m, _, sensorRef := newTestManager(t)

	ticket, err := m.OnAnomalous(sensorRef, "issue", model.SeverityMedium)
	require.NoError(t, err)
	require.Equal(t, model.TicketOpen, ticket.Status)

	resolved, err := m.Resolve(ticket.Ref)
	require.NoError(t, err)
	assert.Equal(t, model.TicketResolved, resolved.Status)
}

func TestStatsSummary(t *testing.T) {
	m, _, sensorRef := newTestManager(t)

	ticket, err := m.OnAnomalous(sensorRef, "issue", model.SeverityMedium)
	require.NoError(t, err)
	_, err = m.Progress(ticket.Ref)
	require.NoError(t, err)

	summary, err := m.StatsSummary()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.InProgress)
	assert.Equal(t, 0, summary.Open)
}
