package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HashimCodeDev/stve/internal/model"
	"github.com/HashimCodeDev/stve/internal/store"
)

func newTestReader(t *testing.T) (*Reader, *store.SQLiteStore) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func TestGetSensorIncludesLatestReadingAndTrust(t *testing.T) {
	r, s := newTestReader(t)
	ref, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)

	m := 30.0
	_, err = s.AppendReading(ref, model.Reading{Moisture: &m})
	require.NoError(t, err)

	view, err := r.GetSensor(ref)
	require.NoError(t, err)
	require.NotNil(t, view.LatestReading)
	assert.Equal(t, 30.0, *view.LatestReading.Moisture)
	require.NotNil(t, view.LatestTrust)
	assert.Equal(t, model.StatusHealthy, view.LatestTrust.Status)
}

func TestDashboardSummaryCountsByStatus(t *testing.T) {
	r, s := newTestReader(t)
	_, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)
	_, err = s.RegisterSensor("sensor-b", "z1", "soil", nil, nil)
	require.NoError(t, err)

	summary, err := r.DashboardSummary()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.ByStatus[model.StatusHealthy])
}

func TestZoneStatisticsGroupsByZone(t *testing.T) {
	r, s := newTestReader(t)
	_, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)
	_, err = s.RegisterSensor("sensor-b", "z2", "soil", nil, nil)
	require.NoError(t, err)

	zones, err := r.ZoneStatistics()
	require.NoError(t, err)
	assert.Equal(t, 1, zones["z1"].Total)
	assert.Equal(t, 1, zones["z2"].Total)
	assert.Equal(t, 1, zones["z1"].Healthy)
}
