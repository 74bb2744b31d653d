package service

import (
	"testing"
	"time"

	"ecash-billing-engine/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewEventBus(4, newTestLogger())
	a, cancelA := bus.Subscribe()
	defer cancelA()
	b, cancelB := bus.Subscribe()
	defer cancelB()

	bus.Publish(domain.ProofsChanged{MintURL: "m", Balance: 21})

	for _, ch := range []<-chan domain.Event{a, b} {
		select {
		case e := <-ch:
			assert.Equal(t, domain.EventProofsChanged, e.Type())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestEventBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewEventBus(1, newTestLogger())
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(domain.ProofsChanged{Balance: 1})
	bus.Publish(domain.ProofsChanged{Balance: 2})

	e := <-ch
	assert.Equal(t, int64(1), e.(domain.ProofsChanged).Balance)
	select {
	case <-ch:
		t.Fatal("second event should have been dropped")
	default:
	}
}

func TestEventBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus(1, newTestLogger())
	ch, cancel := bus.Subscribe()
	cancel()
	cancel() // idempotent

	_, ok := <-ch
	assert.False(t, ok)
	bus.Publish(domain.ProofsChanged{})
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus(1, newTestLogger())
	ch, cancel := bus.Subscribe()
	bus.Close()
	cancel()

	_, ok := <-ch
	require.False(t, ok)

	late, _ := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
