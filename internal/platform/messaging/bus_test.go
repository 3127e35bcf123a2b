package messaging

import (
	"context"
	"testing"
	"time"

	contractsv1 "assembly/contracts/gen/events/v1"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToTopicSubscribers(t *testing.T) {
	bus := NewBus([]string{"broker-1:9092"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan contractsv1.Envelope, 1)
	require.NoError(t, bus.Subscribe(ctx, contractsv1.EventAgendaFinished, "audit", func(_ context.Context, event contractsv1.Envelope) error {
		received <- event
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, contractsv1.EventVoteCast, contractsv1.Envelope{EventID: "ignored"}))
	require.NoError(t, bus.Publish(ctx, contractsv1.EventAgendaFinished, contractsv1.Envelope{EventID: "evt-1", PartitionKey: "agenda-1"}))

	select {
	case event := <-received:
		assert.Equal(t, "evt-1", event.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
	assert.Equal(t, []string{"broker-1:9092"}, bus.Brokers())
}

func TestBusDropsSubscriberWhenContextEnds(t *testing.T) {
	bus := NewBus(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Subscribe(ctx, "topic", "group", func(context.Context, contractsv1.Envelope) error { return nil }))
	cancel()

	assert.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subscribers["topic"]) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
