package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HashimCodeDev/stve/internal/aggregate"
	"github.com/HashimCodeDev/stve/internal/broadcaster"
	"github.com/HashimCodeDev/stve/internal/config"
	"github.com/HashimCodeDev/stve/internal/ingestor"
	"github.com/HashimCodeDev/stve/internal/store"
	"github.com/HashimCodeDev/stve/internal/ticketmanager"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	bus := broadcaster.New(8)
	tickets := ticketmanager.New(s, bus, nil)
	ig := ingestor.New(s, config.Default(), tickets, bus)
	reader := aggregate.New(s)
	srv := NewServer(s, ig, tickets, reader, bus)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, s
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func TestRegisterAndGetSensor(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/sensors", registerSensorRequest{
		ExternalID: "sensor-a", Zone: "z1", Type: "soil",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created["sensorRef"])

	getResp, err := http.Get(ts.URL + "/api/sensors/" + created["sensorRef"])
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestGetUnknownSensorReturns404(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/sensors/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIngestReadingViaHTTP(t *testing.T) {
	ts, s := newTestServer(t)
	_, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)

	resp := postJSON(t, ts.URL+"/api/sensors/sensor-a/readings", map[string]any{"moisture": 30.0})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIngestReadingWithInvalidFieldReturns400(t *testing.T) {
	ts, s := newTestServer(t)
	_, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)

	resp := postJSON(t, ts.URL+"/api/sensors/sensor-a/readings", map[string]any{"moisture": "not-a-number"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDashboardSummaryViaHTTP(t *testing.T) {
	ts, s := newTestServer(t)
	_, err := s.RegisterSensor("sensor-a", "z1", "soil", nil, nil)
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var summary aggregate.DashboardSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 1, summary.Total)
}

func TestUpdateTicketRejectsUnknownStatus(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/tickets/whatever", bytes.NewReader([]byte(`{"newStatus":"Bogus"}`)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListTicketsEmptyByDefault(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/tickets")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
