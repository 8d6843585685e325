// Package httpapi is the thin transport adapter spec.md §1 calls glue:
// it projects the core's in-process commands (§6) onto JSON over HTTP
// and a WebSocket stream over the Broadcaster. It has no scoring or
// ticket logic of its own. Grounded on the teacher's internal/api/api.go
// (a Server struct holding collaborators, writeJSON/writeError helpers,
// one handler per command) routed with gorilla/mux instead of the
// teacher's manual strings.Split path parsing.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/HashimCodeDev/stve/internal/aggregate"
	"github.com/HashimCodeDev/stve/internal/apperr"
	"github.com/HashimCodeDev/stve/internal/broadcaster"
	"github.com/HashimCodeDev/stve/internal/ingestor"
	"github.com/HashimCodeDev/stve/internal/model"
	"github.com/HashimCodeDev/stve/internal/store"
	"github.com/HashimCodeDev/stve/internal/ticketmanager"
)

// Server holds the core collaborators the adapter projects onto HTTP.
type Server struct {
	store    store.Store
	ingestor *ingestor.Ingestor
	tickets  *ticketmanager.Manager
	reader   *aggregate.Reader
	bus      *broadcaster.Broadcaster
	upgrader websocket.Upgrader
}

func NewServer(st store.Store, ig *ingestor.Ingestor, tickets *ticketmanager.Manager, reader *aggregate.Reader, bus *broadcaster.Broadcaster) *Server {
	return &Server{
		store:    st,
		ingestor: ig,
		tickets:  tickets,
		reader:   reader,
		bus:      bus,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Router builds the mux, one route per §6 command plus /ws.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/sensors", s.handleRegisterSensor).Methods(http.MethodPost)
	r.HandleFunc("/api/sensors", s.handleListSensors).Methods(http.MethodGet)
	r.HandleFunc("/api/sensors/{externalId}/readings", s.handleIngestReading).Methods(http.MethodPost)
	r.HandleFunc("/api/ingest/batch", s.handleIngestBatch).Methods(http.MethodPost)
	r.HandleFunc("/api/sensors/{sensorRef}", s.handleGetSensor).Methods(http.MethodGet)
	r.HandleFunc("/api/sensors/{sensorRef}/trust-history", s.handleTrustHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard", s.handleDashboardSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/zones", s.handleZoneStatistics).Methods(http.MethodGet)
	r.HandleFunc("/api/tickets", s.handleListTickets).Methods(http.MethodGet)
	r.HandleFunc("/api/tickets/{ticketRef}", s.handleUpdateTicket).Methods(http.MethodPut)
	r.HandleFunc("/ws", s.handleWebSocket)

	return r
}

func (s *Server) Start(port int) error {
	addr := "0.0.0.0:" + strconv.Itoa(port)
	log.Info().Str("address", addr).Msg("starting http api server")
	return http.ListenAndServe(addr, s.Router())
}

type registerSensorRequest struct {
	ExternalID string   `json:"externalId"`
	Zone       string   `json:"zone"`
	Type       string   `json:"type"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
}

func (s *Server) handleRegisterSensor(w http.ResponseWriter, r *http.Request) {
	var req registerSensorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	ref, err := s.store.RegisterSensor(req.ExternalID, req.Zone, req.Type, req.Lat, req.Lon)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sensorRef": ref})
}

func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	views, err := s.reader.ListSensors()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	sensorRef := mux.Vars(r)["sensorRef"]
	view, err := s.reader.GetSensor(sensorRef)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleIngestReading(w http.ResponseWriter, r *http.Request) {
	externalID := mux.Vars(r)["externalId"]

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	payload, err := ingestor.ParseReadingPayload(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.ingestor.Ingest(r.Context(), externalID, payload)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if result == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "accepted, insufficient history for a verdict"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type batchItemRequest struct {
	ExternalID string         `json:"externalId"`
	Reading    map[string]any `json:"reading"`
}

func (s *Server) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []batchItemRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	items := make([]ingestor.BatchItem, 0, len(reqs))
	for _, req := range reqs {
		payload, err := ingestor.ParseReadingPayload(req.Reading)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		items = append(items, ingestor.BatchItem{ExternalID: req.ExternalID, Payload: payload})
	}

	results := s.ingestor.IngestBatch(r.Context(), items)
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleTrustHistory(w http.ResponseWriter, r *http.Request) {
	sensorRef := mux.Vars(r)["sensorRef"]
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	history, err := s.reader.GetTrustHistory(sensorRef, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.reader.DashboardSummary()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleZoneStatistics(w http.ResponseWriter, r *http.Request) {
	zones, err := s.reader.ZoneStatistics()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, zones)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	var filter *model.TicketStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := model.TicketStatus(raw)
		filter = &status
	}

	tickets, err := s.tickets.List(filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

type updateTicketRequest struct {
	NewStatus model.TicketStatus `json:"newStatus"`
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	ticketRef := mux.Vars(r)["ticketRef"]

	var req updateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	var (
		ticket model.Ticket
		err    error
	)
	switch req.NewStatus {
	case model.TicketInProgress:
		ticket, err = s.tickets.Progress(ticketRef)
	case model.TicketResolved:
		ticket, err = s.tickets.Resolve(ticketRef)
	default:
		writeError(w, http.StatusBadRequest, "newStatus must be InProgress or Resolved")
		return
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// handleWebSocket upgrades the connection and subscribes it to the
// Broadcaster, optionally filtered to one sensor via ?sensorRef=.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	var handle broadcaster.Handle
	var events <-chan broadcaster.Event
	if sensorRef := r.URL.Query().Get("sensorRef"); sensorRef != "" {
		handle, events = s.bus.SubscribeSensor(sensorRef)
	} else {
		handle, events = s.bus.Subscribe()
	}
	defer s.bus.Unsubscribe(handle)

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps the core's closed error set onto HTTP status
// codes by walking each error's Unwrap chain (isErr), never string
// matching.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case isErr(err, apperr.ErrUnknownSensor), isErr(err, apperr.ErrUnknownTicket):
		writeError(w, http.StatusNotFound, err.Error())
	case isErr(err, apperr.ErrDuplicateID):
		writeError(w, http.StatusConflict, err.Error())
	case isErr(err, apperr.ErrInvalidReading), isErr(err, apperr.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("unhandled core error")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func isErr(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
