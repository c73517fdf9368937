// Package ws carries area snapshots and commands over websocket. The wire
// protocol is JSON envelopes: clients subscribe to areas and send commands
// correlated by a client-chosen command id; the server pushes a full area
// snapshot on every authoritative change and answers each command with
// exactly one result or error envelope.
package ws

import "github.com/vovakirdan/hattown/internal/area"

// Client-to-server message types.
const (
	typeSubscribe   = "subscribe"
	typeUnsubscribe = "unsubscribe"
	typeCommand     = "command"
)

// Server-to-client message types.
const (
	typeSnapshot      = "snapshot"
	typeCommandResult = "commandResult"
	typeCommandError  = "commandError"
	typeError         = "error"
)

// Command names carried inside a command envelope.
const (
	cmdJoinSession  = "joinSession"
	cmdLeaveSession = "leaveSession"
	cmdTradeOffer   = "tradeOffer"
	cmdBuyPack      = "buyPack"
)

type clientMessage struct {
	Type      string `json:"type"`
	AreaID    string `json:"areaId,omitempty"`
	CommandID string `json:"commandId,omitempty"`
	Command   string `json:"command,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Hat       string `json:"hat,omitempty"`
	Pack      string `json:"pack,omitempty"`
}

type serverMessage struct {
	Type      string         `json:"type"`
	AreaID    string         `json:"areaId,omitempty"`
	CommandID string         `json:"commandId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Hat       string         `json:"hat,omitempty"`
	Error     string         `json:"error,omitempty"`
	Snapshot  *area.Snapshot `json:"snapshot,omitempty"`
}
