package broadcaster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeSensorOnlyReceivesMatchingSensor(t *testing.T) {
	b := New(4)
	_, global := b.Subscribe()
	_, filtered := b.SubscribeSensor("s1")

	b.Publish(TopicReadingNew, "s1", "payload-s1")
	b.Publish(TopicReadingNew, "s2", "payload-s2")

	require.Len(t, global, 2)
	require.Len(t, filtered, 1)
	ev := <-filtered
	assert.Equal(t, "s1", ev.SensorRef)
}

func TestGlobalTopicsReachFilteredSubscribers(t *testing.T) {
	b := New(4)
	_, filtered := b.SubscribeSensor("s1")

	b.PublishGlobal(TopicTicketChanged, "ticket-event")

	require.Len(t, filtered, 1)
	ev := <-filtered
	assert.Equal(t, TopicTicketChanged, ev.Topic)
}

func TestFullBufferDropsOldestNotNewest(t *testing.T) {
	b := New(2)
	_, ch := b.Subscribe()

	b.PublishGlobal(TopicDashboardUpdate, "first")
	b.PublishGlobal(TopicDashboardUpdate, "second")
	b.PublishGlobal(TopicDashboardUpdate, "third") // buffer full after two, should drop "first"

	var got []any
	for i := 0; i < 2; i++ {
		got = append(got, (<-ch).Payload)
	}
	assert.Equal(t, []any{"second", "third"}, got)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(4)
	h, ch := b.Subscribe()
	b.Unsubscribe(h)

	b.PublishGlobal(TopicDashboardUpdate, "after-unsubscribe")

	_, open := <-ch
	assert.False(t, open, "channel should be closed after unsubscribe")
}

func TestSequenceNumbersAreMonotonePerTopic(t *testing.T) {
	b := New(4)
	_, ch := b.Subscribe()

	b.Publish(TopicReadingNew, "s1", 1)
	b.Publish(TopicReadingNew, "s1", 2)

	first := <-ch
	second := <-ch
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
}
