package services

import (
	"testing"
	"time"

	"streamcast/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestEventHub_PublishAndSubscribe(t *testing.T) {
	hub := NewEventHub()

	ch, cancel := hub.Subscribe("bc-1")
	defer cancel()

	entry := domain.EventLogEntry{At: time.Now().UTC(), Message: "session configured"}
	hub.Publish("bc-1", entry)

	select {
	case got := <-ch:
		assert.Equal(t, "session configured", got.Message)
	case <-time.After(time.Second):
		t.Fatal("expected an entry on the subscription channel")
	}
}

func TestEventHub_IsolatesSessions(t *testing.T) {
	hub := NewEventHub()

	ch, cancel := hub.Subscribe("bc-1")
	defer cancel()

	hub.Publish("bc-2", domain.EventLogEntry{Message: "other session"})

	select {
	case got := <-ch:
		t.Fatalf("unexpected entry: %q", got.Message)
	default:
	}
}

func TestEventHub_CancelStopsDelivery(t *testing.T) {
	hub := NewEventHub()

	ch, cancel := hub.Subscribe("bc-1")
	cancel()

	hub.Publish("bc-1", domain.EventLogEntry{Message: "after cancel"})

	select {
	case got := <-ch:
		t.Fatalf("unexpected entry: %q", got.Message)
	default:
	}
}

func TestEventHub_SlowConsumerDropsEntries(t *testing.T) {
	hub := NewEventHub()

	ch, cancel := hub.Subscribe("bc-1")
	defer cancel()

	// One past the channel buffer; the publisher must not block.
	for i := 0; i < 17; i++ {
		hub.Publish("bc-1", domain.EventLogEntry{Message: "tick"})
	}

	assert.Len(t, ch, 16)
}
