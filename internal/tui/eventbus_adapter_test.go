package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghc-desk/ghc/internal/events"
)

func TestEventBusAdapter_ConvertsEvents(t *testing.T) {
	t.Parallel()
	bus := events.New(10)
	defer bus.Close()

	adapter := NewEventBusAdapter(bus, "s1")
	defer adapter.Close()

	bus.Publish(events.NewStateChangedEvent("s1", "output"))

	select {
	case msg := <-adapter.MsgChannel():
		sc, ok := msg.(StateChangedMsg)
		require.True(t, ok, "got %T", msg)
		assert.Equal(t, "output", sc.Field)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	bus.Publish(events.NewHistoryAppendedEvent("s1", "e1", "hello", 0))
	select {
	case msg := <-adapter.MsgChannel():
		ha, ok := msg.(HistoryAppendedMsg)
		require.True(t, ok, "got %T", msg)
		assert.Equal(t, "hello", ha.Label)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for history message")
	}
}

func TestEventBusAdapter_FiltersOtherSessions(t *testing.T) {
	t.Parallel()
	bus := events.New(10)
	defer bus.Close()

	adapter := NewEventBusAdapter(bus, "s1")
	defer adapter.Close()

	bus.Publish(events.NewStateChangedEvent("other", "output"))
	bus.Publish(events.NewCapabilityUpdatedEvent("s1", true, "1.2.3"))

	select {
	case msg := <-adapter.MsgChannel():
		sc, ok := msg.(StateChangedMsg)
		require.True(t, ok, "got %T", msg)
		assert.Equal(t, "capability", sc.Field)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestEventBusAdapter_CloseEndsChannel(t *testing.T) {
	t.Parallel()
	bus := events.New(10)
	defer bus.Close()

	adapter := NewEventBusAdapter(bus, "s1")
	adapter.Close()
	adapter.Close()

	select {
	case _, ok := <-adapter.MsgChannel():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}
