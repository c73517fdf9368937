package area

import "errors"

// Command is the tagged union of requests a player can send to an area.
// Concrete commands carry their own parameters; the submitting player is
// supplied by the connection layer, never by the command payload.
type Command interface {
	areaCommand()
}

// JoinSession joins the area's active session, creating a fresh one when no
// session is active or the previous one is over.
type JoinSession struct{}

// LeaveSession removes the player from the active session. SessionID must
// match the active session's id.
type LeaveSession struct {
	SessionID string `json:"sessionID"`
}

// SubmitOffer submits a hat offer to the active trade session. The offer's
// role and sequence number are resolved server-side.
type SubmitOffer struct {
	SessionID string `json:"sessionID"`
	Hat       string `json:"hat"`
}

// BuyPack purchases one hat pack in the active purchase session. The hat is
// rolled server-side from the pack's drop table and payment is settled
// against the profile store before anything is recorded.
type BuyPack struct {
	SessionID string `json:"sessionID"`
	Pack      string `json:"pack"`
}

func (JoinSession) areaCommand()  {}
func (LeaveSession) areaCommand() {}
func (SubmitOffer) areaCommand()  {}
func (BuyPack) areaCommand()      {}

// Response is the success payload of a handled command.
type Response struct {
	// SessionID is set by JoinSession.
	SessionID string `json:"sessionID,omitempty"`

	// Hat is set by BuyPack: the hat rolled from the pack.
	Hat string `json:"hat,omitempty"`
}

// Dispatch errors. Like the session package's state conflicts these are
// recoverable, reported only to the invoking caller and never broadcast.
var (
	ErrNoSessionInProgress = errors.New("no session in progress")
	ErrSessionIDMismatch   = errors.New("session id mismatch")
	ErrInvalidCommand      = errors.New("invalid command")
	ErrUnknownPack         = errors.New("unknown pack")
)
