package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HashimCodeDev/stve/internal/apperr"
	"github.com/HashimCodeDev/stve/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterSensorCreatesInitialTrustResult(t *testing.T) {
	s := newTestStore(t)

	ref, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	latest, err := s.LatestTrustPerSensor()
	require.NoError(t, err)
	tr, ok := latest[ref]
	require.True(t, ok)
	assert.Equal(t, 1.0, tr.Score)
	assert.Equal(t, model.StatusHealthy, tr.Status)
}

func TestRegisterSensorDuplicateID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.RegisterSensor("dup", "z1", "soil", nil, nil)
	require.NoError(t, err)

	_, err = s.RegisterSensor("dup", "z1", "soil", nil, nil)
	assert.ErrorIs(t, err, apperr.ErrDuplicateID)
}

func TestAppendReadingUnknownSensor(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AppendReading("does-not-exist", model.Reading{})
	assert.ErrorIs(t, err, apperr.ErrUnknownSensor)
}

func TestAppendReadingThenRecentReadingsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ref, err := s.RegisterSensor("sensor-b", "z1", "soil", nil, nil)
	require.NoError(t, err)

	m1, m2 := 30.0, 31.0
	id1, err := s.AppendReading(ref, model.Reading{Moisture: &m1})
	require.NoError(t, err)
	id2, err := s.AppendReading(ref, model.Reading{Moisture: &m2})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	recent, err := s.RecentReadings(ref, 5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, id2, recent[0].Ref, "newest reading should be first")
	assert.Equal(t, id1, recent[1].Ref)
}

func TestRecentReadingsRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	ref, err := s.RegisterSensor("sensor-c", "z1", "soil", nil, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		v := float64(i)
		_, err := s.AppendReading(ref, model.Reading{Moisture: &v})
		require.NoError(t, err)
	}

	recent, err := s.RecentReadings(ref, 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestLatestReadingPerSensorExcludesSubject(t *testing.T) {
	s := newTestStore(t)
	a, err := s.RegisterSensor("sensor-d1", "z1", "soil", nil, nil)
	require.NoError(t, err)
	b, err := s.RegisterSensor("sensor-d2", "z1", "soil", nil, nil)
	require.NoError(t, err)

	va, vb := 10.0, 20.0
	_, err = s.AppendReading(a, model.Reading{Moisture: &va})
	require.NoError(t, err)
	_, err = s.AppendReading(b, model.Reading{Moisture: &vb})
	require.NoError(t, err)

	peers, err := s.LatestReadingPerSensor("z1", a)
	require.NoError(t, err)
	require.Contains(t, peers, b)
	assert.NotContains(t, peers, a)
}

func TestTicketOpenForSensorAndLifecycle(t *testing.T) {
	s := newTestStore(t)
	ref, err := s.RegisterSensor("sensor-e", "z1", "soil", nil, nil)
	require.NoError(t, err)

	none, err := s.OpenTicketForSensor(ref)
	require.NoError(t, err)
	assert.Nil(t, none)

	ticket := model.Ticket{SensorRef: ref, Issue: "spike", Severity: model.SeverityHigh, Status: model.TicketOpen}
	require.NoError(t, s.SaveTicket(ticket))

	open, err := s.OpenTicketForSensor(ref)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, "spike", open.Issue)

	open.Status = model.TicketResolved
	require.NoError(t, s.SaveTicket(*open))

	none2, err := s.OpenTicketForSensor(ref)
	require.NoError(t, err)
	assert.Nil(t, none2)
}

func TestListTicketsFilter(t *testing.T) {
	s := newTestStore(t)
	ref, err := s.RegisterSensor("sensor-f", "z1", "soil", nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.SaveTicket(model.Ticket{SensorRef: ref, Issue: "a", Severity: model.SeverityLow, Status: model.TicketOpen}))
	require.NoError(t, s.SaveTicket(model.Ticket{SensorRef: ref, Issue: "b", Severity: model.SeverityLow, Status: model.TicketResolved}))

	resolved := model.TicketResolved
	tickets, err := s.ListTickets(&resolved)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "b", tickets[0].Issue)

	all, err := s.ListTickets(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
