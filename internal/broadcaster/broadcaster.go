// Package broadcaster is the Broadcaster component of spec.md §4.E: a
// publish/subscribe fan-out over four logical topics, delivering
// best-effort to bounded per-subscriber buffers so a slow subscriber
// never blocks an ingest. Grounded on chrissnell-remoteweather's
// internal/storage/grpcstream.Storage (RWMutex-guarded map of buffered
// channels, non-blocking select/default send), extended here to
// drain-and-replace the oldest queued event before retrying the send —
// the teacher's grpc example drops the newest event on a full channel,
// which spec.md §4.E explicitly rules out.
package broadcaster

import (
	"sync"
	"sync/atomic"
)

// Topic is one of the four closed event kinds spec.md §6's event
// envelope names.
type Topic string

const (
	TopicReadingNew      Topic = "reading.new"
	TopicTrustUpdated    Topic = "trust.updated"
	TopicTicketChanged   Topic = "ticket.changed"
	TopicDashboardUpdate Topic = "dashboard.update"
)

// Event is the envelope delivered to subscribers: a topic tag, a
// monotone per-topic sequence number, and the entity payload.
type Event struct {
	Topic     Topic
	Seq       uint64
	SensorRef string
	Payload   any
}

// Handle identifies a subscription for Unsubscribe.
type Handle uint64

type subscriber struct {
	sensorFilter string // "" subscribes to every sensor
	ch           chan Event
}

// Broadcaster fans out events to subscribers. The zero value is not
// usable; construct with New.
type Broadcaster struct {
	mu         sync.RWMutex
	subs       map[Handle]*subscriber
	nextHandle uint64
	bufferSize int
	seqReading uint64
	seqTrust   uint64
	seqTicket  uint64
	seqDash    uint64
}

func New(bufferSize int) *Broadcaster {
	if bufferSize <= 0 {
		bufferSize = 32
	}
	return &Broadcaster{subs: make(map[Handle]*subscriber), bufferSize: bufferSize}
}

// Subscribe opens a global feed: every topic, every sensor.
func (b *Broadcaster) Subscribe() (Handle, <-chan Event) {
	return b.subscribe("")
}

// SubscribeSensor opens a feed filtered to reading.new/trust.updated
// events for one sensor; ticket.changed and dashboard.update are global
// topics and still reach every subscriber regardless of filter.
func (b *Broadcaster) SubscribeSensor(sensorRef string) (Handle, <-chan Event) {
	return b.subscribe(sensorRef)
}

func (b *Broadcaster) subscribe(sensorFilter string) (Handle, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextHandle++
	h := Handle(b.nextHandle)
	sub := &subscriber{sensorFilter: sensorFilter, ch: make(chan Event, b.bufferSize)}
	b.subs[h] = sub
	return h, sub.ch
}

// Unsubscribe always succeeds and never blocks publishers; it is safe to
// call concurrently with in-flight publishes.
func (b *Broadcaster) Unsubscribe(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[h]; ok {
		close(sub.ch)
		delete(b.subs, h)
	}
}

// Publish emits a per-sensor topic (reading.new, trust.updated) to the
// global feed and to any subscriber filtered on sensorRef.
func (b *Broadcaster) Publish(topic Topic, sensorRef string, payload any) {
	ev := Event{Topic: topic, Seq: b.nextSeq(topic), SensorRef: sensorRef, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.sensorFilter == "" || sub.sensorFilter == sensorRef {
			deliver(sub, ev)
		}
	}
}

// PublishGlobal emits a global-only topic (ticket.changed,
// dashboard.update) to every subscriber.
func (b *Broadcaster) PublishGlobal(topic Topic, payload any) {
	ev := Event{Topic: topic, Seq: b.nextSeq(topic), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		deliver(sub, ev)
	}
}

func (b *Broadcaster) nextSeq(topic Topic) uint64 {
	switch topic {
	case TopicReadingNew:
		return atomic.AddUint64(&b.seqReading, 1)
	case TopicTrustUpdated:
		return atomic.AddUint64(&b.seqTrust, 1)
	case TopicTicketChanged:
		return atomic.AddUint64(&b.seqTicket, 1)
	default:
		return atomic.AddUint64(&b.seqDash, 1)
	}
}

// deliver is a non-blocking, per-topic-FIFO send. A full buffer drops
// its oldest queued event and retries once rather than blocking the
// publisher or dropping the newest event.
func deliver(sub *subscriber, ev Event) {
	select {
	case sub.ch <- ev:
		return
	default:
	}

	select {
	case <-sub.ch:
	default:
	}

	select {
	case sub.ch <- ev:
	default:
	}
}
