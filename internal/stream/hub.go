package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/RMahshie/pulsesim/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 200 * time.Millisecond
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Controller is the part of the measurement engine reachable over the socket
type Controller interface {
	StartAsync() (string, error)
	Snapshot() models.BeatSnapshot
}

// Command is a client request received on the socket
type Command struct {
	Command string `json:"command"`
}

// Reply answers a Command
type Reply struct {
	Event             string `json:"event"`
	Status            string `json:"status,omitempty"`
	Message           string `json:"message,omitempty"`
	SessionID         string `json:"session_id,omitempty"`
	Timestamp         string `json:"timestamp"`
	MeasurementActive bool   `json:"measurement_active"`
	BeatsDetected     int    `json:"beats_detected"`
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(messageType int, b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, b)
}

func (c *client) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, b)
}

// Hub fans measurement events out to every connected WebSocket client
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]bool
	ctrl     Controller
	upgrader websocket.Upgrader
}

// NewHub creates a hub. ctrl may be nil, in which case commands are rejected.
func NewHub(ctrl Controller) *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		ctrl:    ctrl,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetController attaches the engine once it exists. Call before serving.
func (h *Hub) SetController(ctrl Controller) {
	h.ctrl = ctrl
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *Hub) snapshot() []*client {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	return clients
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish broadcasts event as JSON; clients that fail to keep up are dropped
func (h *Hub) Publish(event models.Event) {
	b, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", event.Event).Msg("Failed to encode event")
		return
	}

	for _, c := range h.snapshot() {
		if err := c.write(websocket.TextMessage, b); err != nil {
			_ = c.conn.Close()
			h.remove(c)
		}
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	h.add(c)
	log.Info().Str("remote_ip", r.RemoteAddr).Int("clients", h.Len()).Msg("WebSocket client connected")

	stop := make(chan struct{})
	defer func() {
		close(stop)
		h.remove(c)
		conn.Close()
		log.Info().Str("remote_ip", r.RemoteAddr).Msg("WebSocket client disconnected")
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go h.keepAlive(c, stop)

	welcome := h.reply("connected")
	welcome.Status = "ok"
	welcome.Message = "Connected to pulse oximeter simulator"
	if err := c.writeJSON(welcome); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := c.writeJSON(h.handle(data)); err != nil {
			return
		}
	}
}

func (h *Hub) keepAlive(c *client, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// handle answers a single command
func (h *Hub) handle(data []byte) Reply {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		r := h.reply("error")
		r.Message = "invalid command"
		return r
	}

	switch cmd.Command {
	case "ping":
		return h.reply("pong")
	case "check_status":
		return h.reply("status")
	case "start_measurement":
		if h.ctrl == nil {
			r := h.reply("error")
			r.Message = "measurements cannot be started on this stream"
			return r
		}
		id, err := h.ctrl.StartAsync()
		if err != nil {
			r := h.reply("error")
			r.Message = "Server is busy with another measurement"
			return r
		}
		r := h.reply("measurement_started")
		r.SessionID = id
		return r
	default:
		r := h.reply("error")
		r.Message = "unknown command: " + cmd.Command
		return r
	}
}

func (h *Hub) reply(event string) Reply {
	r := Reply{
		Event:     event,
		Timestamp: models.FormatTimestamp(time.Now()),
	}
	if h.ctrl != nil {
		snap := h.ctrl.Snapshot()
		r.MeasurementActive = snap.MeasurementActive
		r.BeatsDetected = snap.BeatsDetected
		if r.SessionID == "" {
			r.SessionID = snap.SessionID
		}
	}
	return r
}
