package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/hattown/internal/area"
	"github.com/vovakirdan/hattown/internal/broker"
	"github.com/vovakirdan/hattown/internal/session"
)

// sendBufferSize bounds the per-connection outbound queue. A client that
// cannot drain snapshots this far behind is disconnected rather than allowed
// to block the publishing area.
const sendBufferSize = 64

// commandTimeout bounds one command's settlement round trip.
const commandTimeout = 10 * time.Second

// Handler upgrades HTTP requests to websocket sessions and bridges them to
// the area registry and the snapshot broker.
type Handler struct {
	registry *area.Registry
	broker   *broker.Broker
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler serving the given world.
func NewHandler(registry *area.Registry, b *broker.Broker, logger *log.Logger) *Handler {
	return &Handler{
		registry: registry,
		broker:   b,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP handles one websocket session. The player's identity comes from
// the player query parameter and is fixed for the connection's lifetime.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	player := session.PlayerID(r.URL.Query().Get("player"))
	if player == "" {
		http.Error(w, "missing player", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "player", player, "error", err)
		return
	}

	c := newClientConn(conn, player)
	go c.writeLoop()
	defer h.teardown(c)

	h.logger.Info("player connected", "player", player)
	h.readLoop(c)
}

func (h *Handler) readLoop(c *clientConn) {
	for {
		var msg clientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case typeSubscribe:
			h.handleSubscribe(c, msg)
		case typeUnsubscribe:
			h.handleUnsubscribe(c, msg)
		case typeCommand:
			h.handleCommand(c, msg)
		default:
			h.logger.Warn("unknown message type", "player", c.player, "type", msg.Type)
		}
	}
}

// handleSubscribe registers the connection for an area's snapshots and adds
// the player to the zone. The broker subscription is installed first so the
// occupancy publish doubles as the initial snapshot.
func (h *Handler) handleSubscribe(c *clientConn, msg clientMessage) {
	a, ok := h.registry.Get(msg.AreaID)
	if !ok {
		c.enqueue(serverMessage{Type: typeError, AreaID: msg.AreaID, Error: "unknown area"})
		return
	}
	if !c.addSubscription(msg.AreaID, func() func() {
		return h.broker.Subscribe(msg.AreaID, func(snap area.Snapshot) {
			c.enqueue(serverMessage{Type: typeSnapshot, AreaID: snap.AreaID, Snapshot: &snap})
		})
	}) {
		// Already subscribed; still a valid request, resend current state.
		snap := a.Snapshot()
		c.enqueue(serverMessage{Type: typeSnapshot, AreaID: snap.AreaID, Snapshot: &snap})
		return
	}
	a.AddOccupant(c.player)
}

func (h *Handler) handleUnsubscribe(c *clientConn, msg clientMessage) {
	if !c.removeSubscription(msg.AreaID) {
		return
	}
	if a, ok := h.registry.Get(msg.AreaID); ok {
		a.RemoveOccupant(c.player)
	}
}

func (h *Handler) handleCommand(c *clientConn, msg clientMessage) {
	a, ok := h.registry.Get(msg.AreaID)
	if !ok {
		c.enqueue(serverMessage{Type: typeCommandError, CommandID: msg.CommandID, Error: "unknown area"})
		return
	}

	cmd, ok := decodeCommand(msg)
	if !ok {
		c.enqueue(serverMessage{Type: typeCommandError, CommandID: msg.CommandID, Error: area.ErrInvalidCommand.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	resp, err := a.HandleCommand(ctx, cmd, c.player)
	cancel()
	if err != nil {
		c.enqueue(serverMessage{Type: typeCommandError, CommandID: msg.CommandID, Error: err.Error()})
		return
	}
	c.enqueue(serverMessage{
		Type:      typeCommandResult,
		CommandID: msg.CommandID,
		AreaID:    msg.AreaID,
		SessionID: resp.SessionID,
		Hat:       resp.Hat,
	})
}

func decodeCommand(msg clientMessage) (area.Command, bool) {
	switch msg.Command {
	case cmdJoinSession:
		return area.JoinSession{}, true
	case cmdLeaveSession:
		return area.LeaveSession{SessionID: msg.SessionID}, true
	case cmdTradeOffer:
		return area.SubmitOffer{SessionID: msg.SessionID, Hat: msg.Hat}, true
	case cmdBuyPack:
		return area.BuyPack{SessionID: msg.SessionID, Pack: msg.Pack}, true
	default:
		return nil, false
	}
}

// teardown drops every subscription and removes the player from the zones
// they occupied. Leaving a zone also leaves its active session.
func (h *Handler) teardown(c *clientConn) {
	for _, areaID := range c.drainSubscriptions() {
		if a, ok := h.registry.Get(areaID); ok {
			a.RemoveOccupant(c.player)
		}
	}
	c.close()
	h.logger.Info("player disconnected", "player", c.player)
}

// clientConn wraps one websocket connection with a buffered outbound queue.
// Snapshots arrive on the area's goroutine while it holds the area lock, so
// enqueue must never block: a full queue closes the connection instead.
type clientConn struct {
	ws     *websocket.Conn
	player session.PlayerID
	send   chan serverMessage

	closeOnce sync.Once
	done      chan struct{}

	mu    sync.Mutex
	unsub map[string]func()
}

func newClientConn(ws *websocket.Conn, player session.PlayerID) *clientConn {
	return &clientConn{
		ws:     ws,
		player: player,
		send:   make(chan serverMessage, sendBufferSize),
		done:   make(chan struct{}),
		unsub:  make(map[string]func()),
	}
}

func (c *clientConn) writeLoop() {
	for {
		select {
		case msg := <-c.send:
			if err := c.ws.WriteJSON(msg); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *clientConn) enqueue(msg serverMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Queue full: the client is too far behind to stay consistent.
		c.close()
	}
}

// addSubscription installs the unsubscribe hook built by mk, unless the area
// is already subscribed. mk runs outside any area lock.
func (c *clientConn) addSubscription(areaID string, mk func() func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.unsub[areaID]; ok {
		return false
	}
	c.unsub[areaID] = mk()
	return true
}

func (c *clientConn) removeSubscription(areaID string) bool {
	c.mu.Lock()
	unsub, ok := c.unsub[areaID]
	delete(c.unsub, areaID)
	c.mu.Unlock()
	if ok {
		unsub()
	}
	return ok
}

// drainSubscriptions removes every subscription and returns the area ids
// that were subscribed.
func (c *clientConn) drainSubscriptions() []string {
	c.mu.Lock()
	unsubs := c.unsub
	c.unsub = make(map[string]func())
	c.mu.Unlock()

	ids := make([]string, 0, len(unsubs))
	for areaID, unsub := range unsubs {
		unsub()
		ids = append(ids, areaID)
	}
	return ids
}

func (c *clientConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}
