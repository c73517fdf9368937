// Package session implements the authoritative state machines for short-lived
// multiplayer sessions: a single-customer purchase session and a two-party
// trade session. The package is pure state logic with no I/O; dispatch,
// broadcasting and persistence live in other packages.
package session

import (
	"errors"

	"github.com/google/uuid"
)

// PlayerID identifies a player. IDs are assigned by the connection layer and
// treated as opaque here.
type PlayerID string

// Kind names a session variant.
type Kind string

const (
	KindPurchase Kind = "PURCHASE"
	KindTrade    Kind = "TRADE"
)

// Status is the lifecycle state of a session. Transitions are monotonic
// except for the trade reset case: a half-filled trade that loses its only
// player returns to WAITING_TO_START.
type Status string

const (
	StatusWaiting    Status = "WAITING_TO_START"
	StatusInProgress Status = "IN_PROGRESS"
	StatusOver       Status = "OVER"
)

// State-conflict errors. All are recoverable: a rejected operation leaves the
// session untouched and is reported only to the caller, never broadcast.
var (
	ErrAlreadyInSession = errors.New("player already in session")
	ErrSessionFull      = errors.New("session is full")
	ErrNotInSession     = errors.New("player not in session")
	ErrTurnViolation    = errors.New("not this player's turn")
)

// Session is the capability set shared by all variants.
type Session interface {
	// ID returns the session's unique identifier, stable for its lifetime.
	ID() string

	// Status returns the current lifecycle state.
	Status() Status

	// Players returns a copy of the participant roster, in join order.
	Players() []PlayerID

	// Join adds a player to the roster. Filling the roster moves the
	// session to IN_PROGRESS.
	Join(p PlayerID) error

	// Leave removes a player. Status transitions are variant-specific.
	Leave(p PlayerID) error

	// Snapshot returns an immutable projection of the session.
	Snapshot() *Snapshot
}

// roster holds the id/status/membership shape shared by both variants.
// Validation always happens before any mutation, so a rejected call leaves
// the roster untouched.
type roster struct {
	id       string
	status   Status
	players  []PlayerID
	capacity int
}

func newRoster(capacity int) roster {
	return roster{
		id:       uuid.NewString(),
		status:   StatusWaiting,
		capacity: capacity,
	}
}

func (r *roster) ID() string {
	return r.id
}

func (r *roster) Status() Status {
	return r.status
}

func (r *roster) Players() []PlayerID {
	out := make([]PlayerID, len(r.players))
	copy(out, r.players)
	return out
}

func (r *roster) contains(p PlayerID) bool {
	for _, member := range r.players {
		if member == p {
			return true
		}
	}
	return false
}

// join appends p to the roster. Joining twice is rejected cleanly, so a
// duplicate request from a retrying client can never corrupt the roster.
func (r *roster) join(p PlayerID) error {
	if r.contains(p) {
		return ErrAlreadyInSession
	}
	if len(r.players) == r.capacity {
		return ErrSessionFull
	}
	r.players = append(r.players, p)
	if len(r.players) == r.capacity {
		r.status = StatusInProgress
	}
	return nil
}

// remove drops p from the roster, preserving join order of the rest.
func (r *roster) remove(p PlayerID) error {
	for i, member := range r.players {
		if member == p {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return nil
		}
	}
	return ErrNotInSession
}
