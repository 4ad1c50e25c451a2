package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/guildsync/backend/internal/models"
)

// Hub maintains the set of live observers and fans published envelopes out
// to all of them. Envelopes are delivered in emission order; an observer
// that cannot keep up with its send buffer is disconnected instead of
// backpressuring the publisher.
type Hub struct {
	// Registered observers
	observers map[*Observer]struct{}

	// Serialized envelopes awaiting fanout, in emission order
	publish chan []byte

	// Register requests from observers
	register chan *Observer

	// Unregister requests from observers
	unregister chan *Observer

	stop chan struct{}
	once sync.Once

	logger zerolog.Logger

	// Mutex guarding the observer registry for reads outside the run loop
	mu sync.RWMutex
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		observers:  make(map[*Observer]struct{}),
		publish:    make(chan []byte, 256),
		register:   make(chan *Observer, 8),
		unregister: make(chan *Observer, 8),
		stop:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registry changes and fanout until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case obs := <-h.register:
			h.mu.Lock()
			h.observers[obs] = struct{}{}
			h.mu.Unlock()

			// Greet the new observer; it receives nothing published
			// before this point.
			if data, err := json.Marshal(models.Envelope{Type: models.EventConnected, Data: struct{}{}}); err == nil {
				obs.trySend(data)
			}
			h.logger.Debug().Int("observers", h.Count()).Msg("observer registered")

		case obs := <-h.unregister:
			h.drop(obs)

		case data := <-h.publish:
			h.mu.Lock()
			for obs := range h.observers {
				if !obs.trySend(data) {
					// Send buffer full or observer closed; cut it
					// loose rather than stall the fanout.
					delete(h.observers, obs)
					obs.close()
					h.logger.Warn().Msg("dropped slow observer")
				}
			}
			h.mu.Unlock()

		case <-h.stop:
			h.mu.Lock()
			for obs := range h.observers {
				delete(h.observers, obs)
				obs.close()
			}
			h.mu.Unlock()
			return
		}
	}
}

// Publish serializes the envelope and queues it for fanout to every
// currently registered observer. It never blocks on observer delivery.
func (h *Hub) Publish(eventType string, data interface{}) {
	payload, err := json.Marshal(models.Envelope{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("event", eventType).Msg("failed to encode envelope")
		return
	}

	select {
	case h.publish <- payload:
	case <-h.stop:
	}
}

// Register adds an observer to the registry.
func (h *Hub) Register(obs *Observer) {
	select {
	case h.register <- obs:
	case <-h.stop:
	}
}

// Unregister removes an observer. Unregistering an unknown observer is a
// no-op.
func (h *Hub) Unregister(obs *Observer) {
	select {
	case h.unregister <- obs:
	case <-h.stop:
	}
}

// Count returns the number of registered observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Close shuts down the run loop and disconnects every observer.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.stop) })
}

func (h *Hub) drop(obs *Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.observers[obs]; ok {
		delete(h.observers, obs)
		obs.close()
	}
}
