// Package stream bridges provisioning attempts to websocket observers so
// clients can follow state transitions live instead of polling.
package stream

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"skylift/internal/metrics"
	"skylift/internal/provision"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens in the token middleware before the upgrade.
		return true
	},
}

// Hub tracks provisioning attempts that can be observed over websockets.
// An attempt's event channel is consumed destructively, so each attempt
// admits at most one observer at a time; a second concurrent client is
// refused rather than handed an interleaved subset of the events.
type Hub struct {
	mu       sync.RWMutex
	attempts map[string]*provision.Attempt
	observed map[string]bool
	log      logrus.FieldLogger
}

// NewHub creates an empty hub.
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		attempts: make(map[string]*provision.Attempt),
		observed: make(map[string]bool),
		log:      log,
	}
}

// Track registers an attempt for observation under its ID.
func (h *Hub) Track(a *provision.Attempt) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts[a.ID] = a
}

// Forget drops a finished attempt.
func (h *Hub) Forget(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.attempts, id)
	delete(h.observed, id)
}

// claim marks an attempt as observed. It fails while another observer
// holds the attempt.
func (h *Hub) claim(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.observed[id] {
		return false
	}
	h.observed[id] = true
	return true
}

func (h *Hub) release(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.observed, id)
}

// Get returns a tracked attempt.
func (h *Hub) Get(id string) (*provision.Attempt, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	a, ok := h.attempts[id]
	return a, ok
}

// HandleEvents upgrades the connection and writes the attempt's events as
// JSON until the attempt reaches a terminal state. While a client holds
// the stream, further requests for the same attempt get 409 Conflict.
func (h *Hub) HandleEvents(attemptID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attempt, ok := h.Get(attemptID)
		if !ok {
			http.Error(w, "unknown provisioning attempt", http.StatusNotFound)
			return
		}
		if !h.claim(attemptID) {
			http.Error(w, "attempt already has an observer", http.StatusConflict)
			return
		}
		defer h.release(attemptID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.WithError(err).Warn("failed to upgrade event stream connection")
			return
		}
		defer conn.Close()

		metrics.EventStreamClients.Inc()
		defer metrics.EventStreamClients.Dec()

		for {
			select {
			case ev, open := <-attempt.Events():
				if !open {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					h.log.WithError(err).Debug("event stream client went away")
					return
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}
