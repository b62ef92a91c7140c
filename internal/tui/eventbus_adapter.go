package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ghc-desk/ghc/internal/events"
)

// EventBusAdapter bridges EventBus events of one session to Bubbletea messages.
type EventBusAdapter struct {
	bus       *events.EventBus
	sessionID string
	eventCh   <-chan events.Event
	msgCh     chan tea.Msg
	closeCh   chan struct{}
	mu        sync.Mutex
	closed    bool
}

// NewEventBusAdapter subscribes to the view-related events of sessionID.
func NewEventBusAdapter(bus *events.EventBus, sessionID string) *EventBusAdapter {
	adapter := &EventBusAdapter{
		bus:       bus,
		sessionID: sessionID,
		eventCh: bus.Subscribe(
			events.TypeStateChanged,
			events.TypeHistoryAppended,
			events.TypeCapabilityUpdate,
		),
		msgCh:   make(chan tea.Msg, 100),
		closeCh: make(chan struct{}),
	}

	go adapter.run()
	return adapter
}

// MsgChannel returns the channel for Bubbletea to read from.
func (a *EventBusAdapter) MsgChannel() <-chan tea.Msg {
	return a.msgCh
}

// Close shuts down the adapter.
func (a *EventBusAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true
	close(a.closeCh)
}

func (a *EventBusAdapter) run() {
	defer a.bus.Unsubscribe(a.eventCh)
	for {
		select {
		case <-a.closeCh:
			close(a.msgCh)
			return

		case event, ok := <-a.eventCh:
			if !ok {
				close(a.msgCh)
				return
			}
			a.handleEvent(event)
		}
	}
}

func (a *EventBusAdapter) handleEvent(event events.Event) {
	if event.SessionID() != a.sessionID {
		return
	}
	msg := eventToMsg(event)
	if msg == nil {
		return
	}

	// State messages only trigger a re-read of the snapshot, so one queued
	// message is as good as many.
	select {
	case a.msgCh <- msg:
	default:
	}
}

func eventToMsg(event events.Event) tea.Msg {
	switch e := event.(type) {
	case events.StateChangedEvent:
		return StateChangedMsg{Field: e.Field}
	case events.HistoryAppendedEvent:
		return HistoryAppendedMsg{EntryID: e.EntryID, Label: e.Label}
	case events.CapabilityUpdatedEvent:
		return StateChangedMsg{Field: "capability"}
	default:
		return nil
	}
}

// waitForEventBusUpdate blocks on the adapter until the next message.
func waitForEventBusUpdate(a *EventBusAdapter) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-a.msgCh
		if !ok {
			return nil
		}
		return msg
	}
}
