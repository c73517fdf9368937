// Package client implements the client-side reconciliation layer: each
// controller mirrors one area's authoritative snapshot, diffs every incoming
// snapshot against its cache and emits fine-grained change events for
// dependent UI. Diffing is a pure function of (previous, next); controllers
// never issue commands from inside the diff.
package client

import (
	"context"
	"sync"

	"github.com/vovakirdan/hattown/internal/area"
	"github.com/vovakirdan/hattown/internal/session"
)

// Transport sends a command to the authoritative server and awaits the typed
// response. The connection carries the player's identity. There is no retry:
// callers bound the wait with ctx and treat an unanswered request as failed.
type Transport interface {
	SendCommand(ctx context.Context, areaID string, cmd area.Command) (area.Response, error)
}

type handlerEntry struct {
	id int
	fn func(Event)
}

// Controller mirrors one area. It holds the last snapshot the server
// reported, a cached participant set and the active session id. Derived
// values (status, observers, turn) are always recomputed from the last
// snapshot, never cached.
type Controller struct {
	areaID    string
	ourPlayer session.PlayerID
	transport Transport

	mu           sync.Mutex
	last         area.Snapshot
	participants []session.PlayerID
	sessionID    string

	handlersMu sync.Mutex
	nextID     int
	handlers   []handlerEntry
}

// NewController creates a mirror for areaID seeded with the snapshot the
// area reported at subscribe time.
func NewController(areaID string, ourPlayer session.PlayerID, transport Transport, initial area.Snapshot) *Controller {
	c := &Controller{
		areaID:    areaID,
		ourPlayer: ourPlayer,
		transport: transport,
	}
	c.seed(initial)
	return c
}

func (c *Controller) seed(initial area.Snapshot) {
	c.last = initial
	c.participants = participantsOf(initial)
	if initial.Session != nil {
		c.sessionID = initial.Session.ID
	}
}

// OnEvent registers a handler for this controller's events and returns a
// function that removes it. Handlers run synchronously on the goroutine that
// applies snapshots, in registration order.
func (c *Controller) OnEvent(fn func(Event)) (remove func()) {
	c.handlersMu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers = append(c.handlers, handlerEntry{id: id, fn: fn})
	c.handlersMu.Unlock()

	return func() {
		c.handlersMu.Lock()
		defer c.handlersMu.Unlock()
		for i, h := range c.handlers {
			if h.id == id {
				c.handlers = append(c.handlers[:i:i], c.handlers[i+1:]...)
				return
			}
		}
	}
}

// Apply reconciles the mirror with the next authoritative snapshot and emits
// change events. Snapshots must be applied in delivery order, from a single
// goroutine.
func (c *Controller) Apply(next area.Snapshot) {
	c.mu.Lock()
	events := c.applyLocked(next)
	c.mu.Unlock()
	c.emit(events)
}

// applyLocked runs the shared diff: participant set by symmetric difference,
// the ending transition, the unconditional update signal and the session id
// cache. The id survives a snapshot without a session so that an in-flight
// leave can still reference it.
func (c *Controller) applyLocked(next area.Snapshot) []Event {
	var events []Event

	newParticipants := participantsOf(next)
	if !sameMembers(c.participants, newParticipants) {
		c.participants = newParticipants
		events = append(events, ParticipantsChanged{Participants: newParticipants})
	}

	ending := statusOf(c.last) == session.StatusInProgress && statusOf(next) == session.StatusOver

	c.last = next
	if next.Session != nil {
		c.sessionID = next.Session.ID
	}

	events = append(events, SessionUpdated{})
	if ending {
		events = append(events, SessionEnded{})
	}
	return events
}

func (c *Controller) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	c.handlersMu.Lock()
	handlers := make([]handlerEntry, len(c.handlers))
	copy(handlers, c.handlers)
	c.handlersMu.Unlock()

	for _, e := range events {
		for _, h := range handlers {
			h.fn(e)
		}
	}
}

// AreaID returns the mirrored zone id.
func (c *Controller) AreaID() string {
	return c.areaID
}

// SessionID returns the cached active session id, or "" if none was ever
// reported.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Status returns the mirrored session status, WAITING_TO_START when the area
// has no session.
func (c *Controller) Status() session.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return statusOf(c.last)
}

// IsActive reports whether the mirrored session is in progress.
func (c *Controller) IsActive() bool {
	return c.Status() == session.StatusInProgress
}

// IsParticipant reports whether the local player is on the session roster.
func (c *Controller) IsParticipant() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.participants {
		if p == c.ourPlayer {
			return true
		}
	}
	return false
}

// Participants returns a copy of the cached participant set.
func (c *Controller) Participants() []session.PlayerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]session.PlayerID, len(c.participants))
	copy(out, c.participants)
	return out
}

// Observers returns the occupants of the zone who are not participants.
func (c *Controller) Observers() []session.PlayerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	members := make(map[session.PlayerID]struct{}, len(c.participants))
	for _, p := range c.participants {
		members[p] = struct{}{}
	}
	var out []session.PlayerID
	for _, p := range c.last.Occupants {
		if _, ok := members[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// Join sends a JoinSession command and caches the returned session id.
func (c *Controller) Join(ctx context.Context) error {
	resp, err := c.transport.SendCommand(ctx, c.areaID, area.JoinSession{})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sessionID = resp.SessionID
	c.mu.Unlock()
	return nil
}

// Leave sends a LeaveSession command for the cached session id. With no
// cached id there is nothing to leave and the call is a no-op.
func (c *Controller) Leave(ctx context.Context) error {
	id := c.SessionID()
	if id == "" {
		return nil
	}
	_, err := c.transport.SendCommand(ctx, c.areaID, area.LeaveSession{SessionID: id})
	return err
}

func participantsOf(snap area.Snapshot) []session.PlayerID {
	if snap.Session == nil {
		return nil
	}
	out := make([]session.PlayerID, len(snap.Session.Players))
	copy(out, snap.Session.Players)
	return out
}

func statusOf(snap area.Snapshot) session.Status {
	if snap.Session == nil {
		return session.StatusWaiting
	}
	return snap.Session.Status
}

// sameMembers compares two participant sets by symmetric difference.
// Rosters never hold duplicates, so counting is enough.
func sameMembers(a, b []session.PlayerID) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[session.PlayerID]struct{}, len(a))
	for _, p := range a {
		seen[p] = struct{}{}
	}
	for _, p := range b {
		if _, ok := seen[p]; !ok {
			return false
		}
	}
	return true
}
