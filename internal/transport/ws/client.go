package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/hattown/internal/area"
	"github.com/vovakirdan/hattown/internal/client"
	"github.com/vovakirdan/hattown/internal/session"
)

// ErrClosed is returned for operations on a closed client connection.
var ErrClosed = errors.New("ws: connection closed")

// Client is the dial side of the protocol. It implements client.Transport:
// each SendCommand is correlated with its reply by a fresh command id, and
// area snapshots are surfaced on the Snapshots channel for a controller to
// apply.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan serverMessage
	err     error

	snapshots chan area.Snapshot
	done      chan struct{}
}

var _ client.Transport = (*Client)(nil)

// Dial connects to a hattown server at url (a ws:// URL without query
// parameters) as the given player.
func Dial(ctx context.Context, url string, player session.PlayerID) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url+"?player="+string(player), nil)
	if err != nil {
		return nil, fmt.Errorf("ws: dial %s: %w", url, err)
	}

	c := &Client{
		conn:      conn,
		pending:   make(map[string]chan serverMessage),
		snapshots: make(chan area.Snapshot, sendBufferSize),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Snapshots delivers every area snapshot the server pushes, in arrival
// order. The channel is closed when the connection drops.
func (c *Client) Snapshots() <-chan area.Snapshot {
	return c.snapshots
}

// Subscribe asks the server for an area's snapshots. The current state
// arrives as the first snapshot for that area.
func (c *Client) Subscribe(areaID string) error {
	return c.write(clientMessage{Type: typeSubscribe, AreaID: areaID})
}

// Unsubscribe stops an area's snapshots and removes the player from the
// zone.
func (c *Client) Unsubscribe(areaID string) error {
	return c.write(clientMessage{Type: typeUnsubscribe, AreaID: areaID})
}

// SendCommand submits one command and waits for its correlated reply. The
// wait is bounded by ctx.
func (c *Client) SendCommand(ctx context.Context, areaID string, cmd area.Command) (area.Response, error) {
	msg, ok := encodeCommand(cmd)
	if !ok {
		return area.Response{}, area.ErrInvalidCommand
	}
	msg.AreaID = areaID
	msg.CommandID = uuid.NewString()

	reply := make(chan serverMessage, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return area.Response{}, err
	}
	c.pending[msg.CommandID] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.CommandID)
		c.mu.Unlock()
	}()

	if err := c.write(msg); err != nil {
		return area.Response{}, err
	}

	select {
	case resp := <-reply:
		if resp.Type == typeCommandError {
			return area.Response{}, fmt.Errorf("ws: command rejected: %s", resp.Error)
		}
		return area.Response{SessionID: resp.SessionID, Hat: resp.Hat}, nil
	case <-c.done:
		return area.Response{}, c.closeErr()
	case <-ctx.Done():
		return area.Response{}, ctx.Err()
	}
}

// Close tears the connection down. Pending commands fail with ErrClosed.
func (c *Client) Close() error {
	return c.shutdown(ErrClosed)
}

func (c *Client) write(msg clientMessage) error {
	select {
	case <-c.done:
		return c.closeErr()
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("ws: write: %w", err)
	}
	return nil
}

func (c *Client) readLoop() {
	// Sole sender on snapshots, so only this goroutine may close it.
	defer close(c.snapshots)
	for {
		var msg serverMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.shutdown(fmt.Errorf("ws: read: %w", err))
			return
		}

		switch msg.Type {
		case typeSnapshot:
			if msg.Snapshot == nil {
				continue
			}
			// Snapshots carry full state, so dropping one when the consumer
			// lags still converges on the next delivery.
			select {
			case c.snapshots <- *msg.Snapshot:
			default:
			}
		case typeCommandResult, typeCommandError:
			c.mu.Lock()
			reply, ok := c.pending[msg.CommandID]
			c.mu.Unlock()
			if ok {
				reply <- msg
			}
		}
	}
}

func (c *Client) shutdown(err error) error {
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return nil
	}
	c.err = err
	c.mu.Unlock()

	// Closing the conn unblocks readLoop, which then closes snapshots.
	close(c.done)
	return c.conn.Close()
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrClosed
}

func encodeCommand(cmd area.Command) (clientMessage, bool) {
	switch v := cmd.(type) {
	case area.JoinSession:
		return clientMessage{Type: typeCommand, Command: cmdJoinSession}, true
	case area.LeaveSession:
		return clientMessage{Type: typeCommand, Command: cmdLeaveSession, SessionID: v.SessionID}, true
	case area.SubmitOffer:
		return clientMessage{Type: typeCommand, Command: cmdTradeOffer, SessionID: v.SessionID, Hat: v.Hat}, true
	case area.BuyPack:
		return clientMessage{Type: typeCommand, Command: cmdBuyPack, SessionID: v.SessionID, Pack: v.Pack}, true
	default:
		return clientMessage{}, false
	}
}
