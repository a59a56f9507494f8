package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"whatsenquiry/internal/constants"
	"whatsenquiry/internal/metrics"
	"whatsenquiry/internal/models"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
)

// Hub fans enquiry-created events out to connected WebSocket clients.
// Delivery is best-effort: a slow client gets its buffer dropped, a dead
// client gets unregistered, and publishing never blocks the caller.
type Hub struct {
	logger *logrus.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	events chan models.EnquiryCreatedEvent
}

// NewHub creates an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// PublishEnquiryCreated queues the event for every connected client.
// Clients whose buffers are full miss the event rather than stalling
// the pipeline.
func (h *Hub) PublishEnquiryCreated(event models.EnquiryCreatedEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	for c := range h.clients {
		select {
		case c.events <- event:
			metrics.IncrementCounter("notify_events_delivered_total", nil, "Events queued to WebSocket clients")
		default:
			metrics.IncrementCounter("notify_events_dropped_total", nil, "Events dropped for slow WebSocket clients")
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects the hub from new publishes. Connected clients are
// closed by their own handler goroutines when the server shuts down.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

// ServeHTTP upgrades the request to a WebSocket and streams events
// until the client goes away or the request context ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	c := &client{
		events: make(chan models.EnquiryCreatedEvent, constants.NotifyHubBufferSize),
	}
	h.register(c)
	defer h.unregister(c)

	h.logger.WithField("clients", h.ClientCount()).Debug("WebSocket client connected")
	metrics.SetGauge("notify_clients", float64(h.ClientCount()), nil, "Connected WebSocket clients")

	// The client never sends application data; CloseRead watches for
	// the close frame and cancels the context when the peer is gone.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-c.events:
			writeCtx, cancel := context.WithTimeout(ctx, time.Duration(constants.NotifyWriteTimeoutSec)*time.Second)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				h.logger.WithError(err).Debug("WebSocket write failed, dropping client")
				return
			}
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	metrics.SetGauge("notify_clients", float64(len(h.clients)), nil, "Connected WebSocket clients")
}
