package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/voxgate/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Clients only send JSON requests.
	maxMessageSize = 64 * 1024

	// Outbound queue depth. One frame in flight: a slow reader blocks the
	// speech loop, which in turn stops pulling from the upstream.
	sendBuffer = 1
)

var upgrader = websocket.Upgrader{
	// Callers are not authenticated, so the origin carries no meaning here.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 32 * 1024,
}

// Hub maintains the set of active speech clients.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	gateway *usecase.Gateway
	logger  *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(gateway *usecase.Gateway, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		gateway:    gateway,
		logger:     logger,
	}
}

// Run starts the hub's main loop. When ctx is cancelled every client is
// disconnected and Run returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("clientID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.cancel()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.cancel()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("Hub stopped")
			return
		}
	}
}

// ActiveClients reports how many clients are connected.
func (h *Hub) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WriteData is one outbound websocket frame.
type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. It is never closed; writers
	// stop when ctx is done.
	send chan WriteData

	id     string
	logger *zap.Logger

	// ctx lives as long as the connection.
	ctx    context.Context
	cancel context.CancelFunc

	// cancelSpeech aborts the utterance in progress, nil when idle.
	cancelSpeech context.CancelFunc
	mutex        sync.Mutex
}

// HandleWebSocket upgrades the request and serves speech requests on the
// connection until the peer goes away or the hub stops.
func (h *Hub) HandleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	// The request context ends when the handler returns, so the connection
	// gets its own.
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan WriteData, sendBuffer),
		id:     id,
		logger: h.logger.With(zap.String("clientID", id)),
		ctx:    ctx,
		cancel: cancel,
	}

	select {
	case h.register <- client:
	case <-h.done:
		cancel()
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.cancel()
		c.conn.Close()
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		default:
			c.logger.Warn("Received unsupported message type", zap.Int("type", messageType))
			c.sendJSON(CreateErrorMessage("", ErrorCodeInvalidMessage, "only JSON text messages are accepted"))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				c.cancel()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// enqueue blocks until the frame is queued or the connection ends.
func (c *Client) enqueue(data WriteData) bool {
	select {
	case c.send <- data:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Client) sendJSON(v interface{}) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return false
	}
	return c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

// processMessage processes incoming messages from the client
func (c *Client) processMessage(message []byte) {
	parsed, err := ParseClientMessage(message)
	if err != nil {
		c.logger.Warn("Rejected client message", zap.Error(err))
		c.sendJSON(CreateErrorMessage("", ErrorCodeInvalidMessage, err.Error()))
		return
	}

	switch msg := parsed.(type) {
	case *SpeakMessage:
		c.handleSpeak(msg)
	case *CancelMessage:
		c.handleCancel()
	}
}

// handleSpeak starts one utterance. A client may run one at a time.
func (c *Client) handleSpeak(msg *SpeakMessage) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.cancelSpeech != nil {
		c.sendJSON(CreateErrorMessage("", ErrorCodeBusy, "an utterance is already in progress"))
		return
	}

	requestID := uuid.NewString()
	ctx, cancel := context.WithCancel(usecase.WithRequestID(c.ctx, requestID))
	c.cancelSpeech = cancel

	go func() {
		defer func() {
			cancel()
			c.mutex.Lock()
			c.cancelSpeech = nil
			c.mutex.Unlock()
		}()
		c.speak(ctx, requestID, msg)
	}()
}

func (c *Client) handleCancel() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.cancelSpeech != nil {
		c.logger.Info("Cancelling utterance on client request")
		c.cancelSpeech()
	}
}

// speak streams one utterance to the client: speech_start, one binary
// message per chunk, then speech_end. Any failure is reported as a single
// error message.
func (c *Client) speak(ctx context.Context, requestID string, msg *SpeakMessage) {
	logger := c.logger.With(zap.String("requestID", requestID))

	stream, err := c.hub.gateway.OpenSpeech(ctx, msg.SpeechRequest())
	if err != nil {
		c.sendJSON(CreateProviderErrorMessage(requestID, err))
		return
	}
	defer stream.Close()

	if !c.sendJSON(CreateSpeechStartMessage(requestID)) {
		return
	}

	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.sendJSON(CreateProviderErrorMessage(requestID, err))
			return
		}
		if !c.enqueue(WriteData{Type: websocket.BinaryMessage, Payload: chunk}) {
			logger.Info("Connection closed during utterance", zap.Int("chunks", stream.Chunks()))
			return
		}
	}

	c.sendJSON(CreateSpeechEndMessage(requestID, stream.Chunks(), stream.Bytes()))
	logger.Debug("Utterance sent",
		zap.Int("chunks", stream.Chunks()),
		zap.Int("bytes", stream.Bytes()))
}
