// Package ticketmanager is the Ticket Manager component of spec.md §4.D:
// it reconciles maintenance tickets so at most one stays Open per sensor,
// raises (never lowers) severity on re-diagnosis, and drives the
// Open→InProgress→Resolved lifecycle. Grounded on the teacher's
// checkDisableThreshold/sendDisableNotification/sendRecoveryNotification
// idiom (one disable flag driving a notification), generalized here to a
// full ticket record persisted through the Store instead of an in-memory
// bool.
package ticketmanager

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/HashimCodeDev/stve/internal/apperr"
	"github.com/HashimCodeDev/stve/internal/broadcaster"
	"github.com/HashimCodeDev/stve/internal/model"
	"github.com/HashimCodeDev/stve/internal/notify"
	"github.com/HashimCodeDev/stve/internal/store"
)

// Clock lets tests substitute a fixed time.
type Clock func() time.Time

// Manager owns ticket lifecycle reconciliation. One per-sensor lock per
// sensor guards the open-ticket check-then-create so the at-most-one-Open
// invariant holds under concurrent ingests, matching the lock the
// Ingestor holds for the same sensor (spec.md §5).
type Manager struct {
	store   store.Store
	bus     *broadcaster.Broadcaster
	notify  notify.Sender
	clock   Clock
	locks   sync.Map // sensorRef -> *sync.Mutex
}

func New(st store.Store, bus *broadcaster.Broadcaster, sender notify.Sender) *Manager {
	return &Manager{store: st, bus: bus, notify: sender, clock: time.Now}
}

func (m *Manager) lockFor(sensorRef string) *sync.Mutex {
	v, _ := m.locks.LoadOrStore(sensorRef, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// OnAnomalous reconciles a fresh diagnostic against any existing Open
// ticket for the sensor: update-in-place with severity raised to the max
// of old and new, or create fresh. Never produces a second Open ticket
// for the same sensor.
func (m *Manager) OnAnomalous(sensorRef, diagnostic string, severity model.Severity) (model.Ticket, error) {
	mu := m.lockFor(sensorRef)
	mu.Lock()
	defer mu.Unlock()

	existing, err := m.store.OpenTicketForSensor(sensorRef)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("check open ticket: %w", err)
	}

	var ticket model.Ticket
	if existing != nil {
		ticket = *existing
		ticket.Issue = diagnostic
		ticket.Severity = model.MaxSeverity(ticket.Severity, severity)
	} else {
		ticket = model.Ticket{
			Ref:       uuid.NewString(),
			SensorRef: sensorRef,
			Issue:     diagnostic,
			Severity:  severity,
			Status:    model.TicketOpen,
			CreatedAt: m.clock(),
		}
	}

	if err := m.store.SaveTicket(ticket); err != nil {
		return model.Ticket{}, fmt.Errorf("save ticket: %w", err)
	}
	m.publish(ticket)

	if m.notify != nil {
		if err := m.notify.Send("Sensor trust alert", fmt.Sprintf("%s: %s (%s)", sensorRef, diagnostic, severity)); err != nil {
			log.Warn().Err(err).Str("sensor_ref", sensorRef).Msg("ticket notification failed")
		}
	}
	return ticket, nil
}

// Resolve transitions a ticket directly to Resolved; permitted from
// either Open or InProgress.
func (m *Manager) Resolve(ticketRef string) (model.Ticket, error) {
	return m.transition(ticketRef, model.TicketResolved)
}

// Progress transitions a ticket from Open to InProgress.
func (m *Manager) Progress(ticketRef string) (model.Ticket, error) {
	return m.transition(ticketRef, model.TicketInProgress)
}

func (m *Manager) transition(ticketRef string, to model.TicketStatus) (model.Ticket, error) {
	ticket, err := m.store.GetTicketByRef(ticketRef)
	if err != nil {
		return model.Ticket{}, err
	}

	if !validTransition(ticket.Status, to) {
		return model.Ticket{}, fmt.Errorf("cannot move ticket from %s to %s: %w", ticket.Status, to, apperr.ErrInvalidTransition)
	}

	ticket.Status = to
	if to == model.TicketResolved {
		now := m.clock()
		ticket.ResolvedAt = &now
	}

	if err := m.store.SaveTicket(ticket); err != nil {
		return model.Ticket{}, fmt.Errorf("save ticket: %w", err)
	}
	m.publish(ticket)
	return ticket, nil
}

// validTransition implements Open → InProgress → Resolved, with Open →
// Resolved also permitted directly; no transition leaves Resolved.
func validTransition(from, to model.TicketStatus) bool {
	switch from {
	case model.TicketOpen:
		return to == model.TicketInProgress || to == model.TicketResolved
	case model.TicketInProgress:
		return to == model.TicketResolved
	default:
		return false
	}
}

func (m *Manager) List(statusFilter *model.TicketStatus) ([]model.Ticket, error) {
	return m.store.ListTickets(statusFilter)
}

// Summary is the open/inProgress/resolved/total rollup §4.D names.
type Summary struct {
	Open       int
	InProgress int
	Resolved   int
	Total      int
}

func (m *Manager) StatsSummary() (Summary, error) {
	tickets, err := m.store.ListTickets(nil)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	s.Total = len(tickets)
	for _, t := range tickets {
		switch t.Status {
		case model.TicketOpen:
			s.Open++
		case model.TicketInProgress:
			s.InProgress++
		case model.TicketResolved:
			s.Resolved++
		}
	}
	return s, nil
}

func (m *Manager) publish(ticket model.Ticket) {
	if m.bus == nil {
		return
	}
	m.bus.PublishGlobal(broadcaster.TopicTicketChanged, ticket)
}
