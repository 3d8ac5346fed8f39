package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-dpt/internal/auth"
	"github.com/nerrad567/gray-logic-dpt/internal/bridges/knx"
	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dpt/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

const (
	// ChannelDatapointState carries every decoded datapoint state.
	// "datapoint.state:{ga}" narrows it to one group address.
	ChannelDatapointState = "datapoint.state"

	wsSendBufferSize = 256
)

// WSMessage is the envelope for every frame in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe messages.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// StateChannel returns the channel carrying states for one group address.
func StateChannel(address string) string {
	return ChannelDatapointState + ":" + address
}

// stateFilter is the set of addresses a client follows.
type stateFilter struct {
	all       bool
	addresses map[knx.GroupAddress]struct{}
}

func (f *stateFilter) wants(ga knx.GroupAddress) bool {
	if f.all {
		return true
	}
	_, ok := f.addresses[ga]
	return ok
}

// parseStateChannel accepts "datapoint.state" or "datapoint.state:{ga}".
// ok is false for any other channel. all is true for the bare channel.
func parseStateChannel(channel string) (ga knx.GroupAddress, all, ok bool) {
	if channel == ChannelDatapointState {
		return knx.GroupAddress{}, true, true
	}
	rest, found := strings.CutPrefix(channel, ChannelDatapointState+":")
	if !found {
		return knx.GroupAddress{}, false, false
	}
	ga, err := knx.ParseGroupAddress(rest)
	if err != nil {
		return knx.GroupAddress{}, false, false
	}
	return ga, false, true
}

// Hub fans decoded states out to WebSocket clients.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient is one connected WebSocket.
type WSClient struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	username string

	mu     sync.RWMutex
	filter stateFilter
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origins are checked by the CORS middleware.
		return true
	},
}

// NewHub creates a hub. Run must be started for shutdown to disconnect
// clients.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// Register adds a client.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "username", client.username, "clients", n)
}

// Unregister removes a client. Only the call that removes it closes the
// send channel.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "username", client.username, "clients", n)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishState sends msg once to every client following its address,
// whether through the bare channel or the per-address one. It has the
// signature of the bridge's OnState hook.
func (h *Hub) PublishState(msg knx.StateMessage) {
	ga, err := knx.ParseGroupAddress(msg.Address)
	if err != nil {
		h.logger.Warn("state with invalid address not pushed", "address", msg.Address, "error", err)
		return
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: ChannelDatapointState,
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Payload:   msg,
	})
	if err != nil {
		h.logger.Error("failed to marshal state event", "address", msg.Address, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if client.follows(ga) {
			client.trySend(data)
		}
	}
}

// handleWebSocket upgrades after consuming a ticket from POST /auth/ws-ticket.
// The ticket carries the caller's role, which must grant datapoint:read.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	entry, ok := s.validateTicket(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}
	if !auth.HasPermission(entry.role, auth.PermDatapointRead) {
		writeForbidden(w, "role "+string(entry.role)+" cannot read datapoints")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		username: entry.username,
		filter:   stateFilter{addresses: make(map[knx.GroupAddress]struct{})},
	}
	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	deadline := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // reset on every pong and message
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "username", c.username, "error", err)
			}
			return
		}
		// Application messages count as liveness too.
		//nolint:errcheck // see above
		c.conn.SetReadDeadline(time.Now().Add(deadline))
		c.handleMessage(message)
	}
}

func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // best-effort close frame
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// wsRequest is an inbound message. Payload is decoded per type.
type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (c *WSClient) handleMessage(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch req.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.handleSubscription(req)
	case WSTypePing:
		c.sendResponse(req.ID, WSTypePong, nil)
	default:
		c.sendError(req.ID, "unknown message type: "+req.Type)
	}
}

// handleSubscription applies a subscribe or unsubscribe. Only state
// channels are accepted; a request naming any other channel changes
// nothing and is answered with an error listing the rejects.
func (c *WSClient) handleSubscription(req wsRequest) {
	var sub WSSubscribePayload
	if len(req.Payload) == 0 || json.Unmarshal(req.Payload, &sub) != nil || len(sub.Channels) == 0 {
		c.sendError(req.ID, "payload must list channels")
		return
	}

	type parsed struct {
		ga  knx.GroupAddress
		all bool
	}
	channels := make([]parsed, 0, len(sub.Channels))
	var rejected []string
	for _, ch := range sub.Channels {
		ga, all, ok := parseStateChannel(ch)
		if !ok {
			rejected = append(rejected, ch)
			continue
		}
		channels = append(channels, parsed{ga: ga, all: all})
	}
	if len(rejected) > 0 {
		c.sendError(req.ID, "unknown channels: "+strings.Join(rejected, ", "))
		return
	}

	subscribe := req.Type == WSTypeSubscribe
	c.mu.Lock()
	for _, p := range channels {
		switch {
		case p.all:
			c.filter.all = subscribe
		case subscribe:
			c.filter.addresses[p.ga] = struct{}{}
		default:
			delete(c.filter.addresses, p.ga)
		}
	}
	c.mu.Unlock()

	key := "subscribed"
	if !subscribe {
		key = "unsubscribed"
	}
	c.hub.logger.Debug("websocket "+key, "username", c.username, "channels", sub.Channels)
	c.sendResponse(req.ID, WSTypeResponse, map[string]any{key: sub.Channels})
}

func (c *WSClient) follows(ga knx.GroupAddress) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.wants(ga)
}

// trySend queues data without blocking. Slow clients drop states, and a
// client closed mid-publish is ignored.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // send on closed channel
	}()

	select {
	case c.send <- data:
	default:
	}
}

func (c *WSClient) sendResponse(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
