// Package ws is the notification fan-out: it owns the set of live subscriber
// connections and broadcasts serialized events to all of them, best-effort.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/transitops/fleet-occupancy-service/internal/metrics"
)

// Event types pushed over the wire. Alert creation is announced with a
// dedicated alert_raised frame rather than being folded into
// occupancy_updated, so dashboards can subscribe to alerts alone.
const (
	EventOccupancyUpdated     = "occupancy_updated"
	EventAlertRaised          = "alert_raised"
	EventAlertMarkedRead      = "alert_marked_read"
	EventVehicleCreated       = "vehicle_created"
	EventVehicleStatusChanged = "vehicle_status_changed"
	EventStopCreated          = "stop_created"
)

// Event is one outbound frame. Data must be JSON-marshalable.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans events out to every connected subscriber. A single goroutine
// (Run) owns the client set; connects, disconnects and broadcasts arrive as
// messages on channels, so the set itself needs no lock. Delivery is
// at-most-once: there is no retry and no replay for late joiners, which are
// expected to re-fetch full state after (re)connecting.
type Hub struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	sendBuffer   int
	writeTimeout time.Duration

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	stop       chan struct{}
}

func NewHub(logger *slog.Logger, m *metrics.Metrics, sendBuffer int, writeTimeout time.Duration) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Hub{
		logger:       logger,
		metrics:      m,
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
		register:     make(chan *client),
		unregister:   make(chan *client),
		broadcast:    make(chan []byte, 64),
		stop:         make(chan struct{}),
	}
}

// Run owns the client set until Stop is called. Must run in its own goroutine.
func (h *Hub) Run() {
	clients := make(map[*client]struct{})

	drop := func(c *client) {
		if _, ok := clients[c]; !ok {
			return
		}
		delete(clients, c)
		close(c.send)
		h.metrics.Subscribers.Dec()
	}

	for {
		select {
		case c := <-h.register:
			clients[c] = struct{}{}
			h.metrics.Subscribers.Inc()
			h.logger.Debug("subscriber connected", "remote", c.conn.RemoteAddr().String())

		case c := <-h.unregister:
			drop(c)

		case msg := <-h.broadcast:
			// One slow or dead subscriber must never stall the rest: a full
			// send buffer means the client is not keeping up, so it is
			// dropped rather than awaited.
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					drop(c)
					h.metrics.SubscribersDropped.Inc()
					h.logger.Warn("dropping slow subscriber", "remote", c.conn.RemoteAddr().String())
				}
			}

		case <-h.stop:
			for c := range clients {
				drop(c)
			}
			return
		}
	}
}

// Stop disconnects all subscribers and terminates Run.
func (h *Hub) Stop() {
	close(h.stop)
}

// Broadcast serializes the event once and queues it for delivery to a
// snapshot of the current subscriber set. A marshal failure is a programming
// error in the payload; it is logged and the event is skipped.
func (h *Hub) Broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal broadcast event", "type", ev.Type, "error", err)
		return
	}
	h.metrics.EventsBroadcast.Inc()
	select {
	case h.broadcast <- msg:
	case <-h.stop:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Subscribers are dashboards served from anywhere; the service carries no
	// auth surface, so origin checks are not enforced either.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades the request and registers the connection as a subscriber.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.stop:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
