package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/agenthands/symbiosis/internal/core"
	"github.com/agenthands/symbiosis/internal/core/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// Event types pushed to browsers.
const (
	EventLog      = "log"
	EventKeywords = "keywords"
	EventGraph    = "graph"
	EventSpeak    = "speak"
	EventSpawn    = "spawn"
	EventState    = "state"
)

// Event is one message on the websocket.
type Event struct {
	Type     string                `json:"type"`
	Role     model.Role            `json:"role,omitempty"`
	Text     string                `json:"text,omitempty"`
	Keywords []string              `json:"keywords,omitempty"`
	Graph    *model.KnowledgeGraph `json:"graph,omitempty"`
	State    *core.State           `json:"state,omitempty"`
	Audio    *model.AudioProfile   `json:"audio,omitempty"`
}

// Signals is what the visual layer reports back: whether the creatures are
// still eating input text and how many glyphs are left on screen.
type Signals struct {
	Feeding bool `json:"feeding"`
	Glyphs  int  `json:"glyphs"`
}

type clientMessage struct {
	Type string `json:"type"`
	Signals
}

// Hub fans companion events out to every connected browser. It is the
// renderer the companion talks to when the service runs headless.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	signals Signals
	audio   model.AudioProfile
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*Client]struct{}),
		audio:   model.MoodNeutral.Audio(),
	}
}

// Serve registers conn and starts its read and write pumps.
func (h *Hub) Serve(conn *websocket.Conn) *Client {
	c := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	c.logger = h.logger.With(zap.String("connectionID", c.id))

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
	c.logger.Debug("client connected")
	return c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", e.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			c.logger.Warn("send buffer full, dropping event", zap.String("type", e.Type))
		}
	}
}

func (h *Hub) sendTo(c *Client, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", e.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// SetSignals records the latest visual-layer report.
func (h *Hub) SetSignals(s Signals) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = s
}

func (h *Hub) AppendLog(role model.Role, text string) {
	h.broadcast(Event{Type: EventLog, Role: role, Text: text})
}

func (h *Hub) UpdateKeywords(keywords []string) {
	h.broadcast(Event{Type: EventKeywords, Keywords: keywords})
}

func (h *Hub) ConsumeGraph(g model.KnowledgeGraph) {
	h.broadcast(Event{Type: EventGraph, Graph: &g})
}

// Speak sends text with the audio profile of the mood last reported.
func (h *Hub) Speak(text string) {
	h.mu.RLock()
	audio := h.audio
	h.mu.RUnlock()
	h.broadcast(Event{Type: EventSpeak, Text: text, Audio: &audio})
}

func (h *Hub) SpawnFood(text string) {
	h.broadcast(Event{Type: EventSpawn, Text: text})
}

// Feeding is false when no browser is connected so that speech is never held
// back waiting for a visual layer that does not exist.
func (h *Hub) Feeding() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) > 0 && h.signals.Feeding
}

func (h *Hub) ActiveGlyphs() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.signals.Glyphs
}

func (h *Hub) StateChanged(state core.State) {
	h.mu.Lock()
	h.audio = state.Audio
	h.mu.Unlock()
	h.broadcast(Event{Type: EventState, State: &state})
}

// Client is one websocket connection.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger
}

func (c *Client) ID() string {
	return c.id
}

// readPump accepts signal reports until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		c.logger.Debug("read pump stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logger.Warn("binary messages not supported")
			continue
		}
		c.handleTextMessage(message)
	}
}

func (c *Client) handleTextMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Debug("ignoring malformed client message", zap.Error(err))
		return
	}

	switch msg.Type {
	case "signals":
		c.hub.SetSignals(msg.Signals)
	default:
		c.logger.Debug("ignoring client message", zap.String("type", msg.Type))
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.Debug("write pump stopped")
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", zap.Error(err))
				return
			}
		}
	}
}
