// Package sse streams session events from the EventBus to browser clients.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghc-desk/ghc/internal/events"
)

// streamed lists the event types forwarded to browsers.
var streamed = []string{
	events.TypeStateChanged,
	events.TypeHistoryAppended,
	events.TypeCapabilityUpdate,
	events.TypeLoginComplete,
}

// Handler streams events of one session to connected SSE clients.
type Handler struct {
	bus           *events.EventBus
	sessionID     string
	mu            sync.RWMutex
	clients       map[*client]struct{}
	heartbeatFreq time.Duration
}

type client struct {
	id     string
	done   chan struct{}
	closed bool
}

// NewHandler creates a handler for the events of sessionID.
func NewHandler(bus *events.EventBus, sessionID string) *Handler {
	return &Handler{
		bus:           bus,
		sessionID:     sessionID,
		clients:       make(map[*client]struct{}),
		heartbeatFreq: 30 * time.Second,
	}
}

// SetHeartbeatFrequency sets the interval between heartbeat comments.
func (h *Handler) SetHeartbeatFrequency(d time.Duration) {
	h.heartbeatFreq = d
}

// ServeHTTP implements http.Handler for SSE connections.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	c := &client{id: uuid.NewString(), done: make(chan struct{})}
	h.addClient(c)
	defer h.removeClient(c)

	eventCh := h.bus.Subscribe(streamed...)
	defer h.bus.Unsubscribe(eventCh)

	h.sendEvent(w, flusher, "connected", map[string]string{
		"client_id":  c.id,
		"session_id": h.sessionID,
	})

	heartbeat := time.NewTicker(h.heartbeatFreq)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			h.sendComment(w, flusher, "heartbeat")
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if event.SessionID() != h.sessionID {
				continue
			}
			h.sendEvent(w, flusher, event.EventType(), event)
		}
	}
}

func (h *Handler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, jsonData)
	flusher.Flush()
}

func (h *Handler) sendComment(w http.ResponseWriter, flusher http.Flusher, comment string) {
	fmt.Fprintf(w, ": %s\n\n", comment)
	flusher.Flush()
}

func (h *Handler) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Handler) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects all clients.
func (h *Handler) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.closed {
			c.closed = true
			close(c.done)
		}
	}
	h.clients = make(map[*client]struct{})
	return nil
}
