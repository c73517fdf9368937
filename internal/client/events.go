package client

import "github.com/vovakirdan/hattown/internal/session"

// Event is the union of notifications a controller emits to dependent UI.
// Events are delivered synchronously, in the order listed on the emitting
// Apply call.
type Event interface {
	controllerEvent()
}

// ParticipantsChanged fires when the session roster differs from the cached
// one by symmetric difference.
type ParticipantsChanged struct {
	Participants []session.PlayerID
}

// SessionUpdated fires on every applied snapshot. It is the unconditional
// re-render signal, not a change notification.
type SessionUpdated struct{}

// SessionEnded fires on the IN_PROGRESS to OVER transition.
type SessionEnded struct{}

// OffersChanged fires when the trade offer log changed by length or by any
// positional entry.
type OffersChanged struct {
	Offers []session.Offer
}

// PurchasesChanged fires when the purchase log changed.
type PurchasesChanged struct {
	Purchases []session.Purchase
}

// TurnChanged fires only when "it is our turn" flips.
type TurnChanged struct {
	OurTurn bool
}

func (ParticipantsChanged) controllerEvent() {}
func (SessionUpdated) controllerEvent()      {}
func (SessionEnded) controllerEvent()        {}
func (OffersChanged) controllerEvent()       {}
func (PurchasesChanged) controllerEvent()    {}
func (TurnChanged) controllerEvent()         {}
