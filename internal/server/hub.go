package server

import (
	"encoding/json"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/genricoloni/nowshowing/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32

	// MusicPrefix is where the backend serves theme music files
	MusicPrefix = "/storage/music/"
	// ThemeMusicDelay lets the poster transition finish before audio starts
	ThemeMusicDelay = 1500 * time.Millisecond
)

// Event types pushed to presentation clients
const (
	EventState          = "state"
	EventPlayTrailer    = "play_trailer"
	EventClearTrailer   = "clear_trailer"
	EventPlayThemeMusic = "play_theme_music"
	EventStopThemeMusic = "stop_theme_music"
)

// Message types sent by presentation clients
const (
	MessageVideoPlaying = "video_playing"
	MessageVideoEnded   = "video_ended"
	MessageReload       = "reload"
)

// Event is a server push to the presentation layer
type Event struct {
	Type      string        `json:"type"`
	State     *domain.State `json:"state,omitempty"`
	TrailerID string        `json:"trailer_id,omitempty"`
	Session   string        `json:"session,omitempty"`
	Path      string        `json:"path,omitempty"`
	DelayMS   int           `json:"delay_ms,omitempty"`
}

// ClientMessage is an inbound message from a presentation client or the
// local API
type ClientMessage struct {
	Type string `json:"type"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans presentation events out to every connected websocket client.
// It implements domain.Presenter; none of its methods block on a client.
type Hub struct {
	logger   *zap.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
	inbound  chan ClientMessage

	mu        sync.Mutex
	clients   map[*client]struct{}
	lastState []byte
	closed    bool
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		logger:  logger,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// kiosk pages may be served from the backend's origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		inbound: make(chan ClientMessage, 8),
		clients: make(map[*client]struct{}),
	}
}

// Inbound returns messages received from clients and the local API
func (h *Hub) Inbound() <-chan ClientMessage {
	return h.inbound
}

// Submit queues an inbound message. It reports false when the queue is full.
func (h *Hub) Submit(msg ClientMessage) bool {
	select {
	case h.inbound <- msg:
		return true
	default:
		h.logger.Warn("Inbound queue full, dropping message", zap.String("type", msg.Type))
		return false
	}
}

// Publish implements domain.Presenter
func (h *Hub) Publish(state domain.State) {
	data, err := json.Marshal(Event{Type: EventState, State: &state})
	if err != nil {
		h.logger.Error("Failed to encode state", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.lastState = data
	h.mu.Unlock()

	h.broadcast(data)
}

// PlayTrailer implements domain.Presenter
func (h *Hub) PlayTrailer(trailerID string) {
	h.send(Event{Type: EventPlayTrailer, TrailerID: trailerID})
}

// ClearTrailer implements domain.Presenter
func (h *Hub) ClearTrailer() {
	h.send(Event{Type: EventClearTrailer})
}

// PlayThemeMusic implements domain.Presenter. The returned session names the
// audio element clients create so a later stop targets the right one.
func (h *Hub) PlayThemeMusic(file string) domain.AudioSession {
	session := domain.AudioSession{
		ID:   uuid.NewString(),
		Path: MusicPrefix + path.Base(file),
	}
	h.send(Event{
		Type:    EventPlayThemeMusic,
		Session: session.ID,
		Path:    session.Path,
		DelayMS: int(ThemeMusicDelay / time.Millisecond),
	})
	return session
}

// StopThemeMusic implements domain.Presenter; clients fade the audio out
func (h *Hub) StopThemeMusic(session domain.AudioSession) {
	h.send(Event{Type: EventStopThemeMusic, Session: session.ID})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) send(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.metrics.IncDroppedEvents()
			h.logger.Debug("Client buffer full, dropping event")
		}
	}
}

// ServeWSHandler returns ServeWS as an http.Handler
func (h *Hub) ServeWSHandler() http.Handler {
	return http.HandlerFunc(h.ServeWS)
}

// ServeWS upgrades the request and registers the client. The latest state is
// sent first so a fresh page renders immediately.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.lastState != nil {
		c.send <- h.lastState
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetClients(count)
	h.logger.Info("Presentation client connected",
		zap.String("remote", r.RemoteAddr),
		zap.Int("clients", count))

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetClients(count)
	h.logger.Info("Presentation client disconnected", zap.Int("clients", count))
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("Ignoring malformed client message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case MessageVideoPlaying, MessageVideoEnded, MessageReload:
			h.Submit(msg)
		default:
			h.logger.Debug("Ignoring unknown client message", zap.String("type", msg.Type))
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}
