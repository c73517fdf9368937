package client

import (
	"context"

	"github.com/vovakirdan/hattown/internal/area"
	"github.com/vovakirdan/hattown/internal/session"
)

// TradeController is the trade-area specialization of Controller. On top of
// the shared diff it tracks the offer log by sequence position and emits
// turnChanged only when "our turn" flips.
type TradeController struct {
	Controller
	offers []session.Offer
}

// NewTradeController creates a trade mirror seeded with the subscribe-time
// snapshot.
func NewTradeController(areaID string, ourPlayer session.PlayerID, transport Transport, initial area.Snapshot) *TradeController {
	t := &TradeController{}
	t.areaID = areaID
	t.ourPlayer = ourPlayer
	t.transport = transport
	t.seed(initial)
	t.offers = offersOf(initial)
	return t
}

// Apply reconciles the mirror and emits the shared events plus offersChanged
// and turnChanged. The offer log is append-only, so any length or positional
// change triggers offersChanged.
func (t *TradeController) Apply(next area.Snapshot) {
	t.mu.Lock()
	wasOurTurn := t.isOurTurnLocked()
	events := t.applyLocked(next)

	newOffers := offersOf(next)
	if !equalOffers(t.offers, newOffers) {
		t.offers = newOffers
		events = append(events, OffersChanged{Offers: newOffers})
	}

	if isOurTurn := t.isOurTurnLocked(); wasOurTurn != isOurTurn {
		events = append(events, TurnChanged{OurTurn: isOurTurn})
	}
	t.mu.Unlock()
	t.emit(events)
}

// Offers returns the cached offer log, ordered by sequence number.
func (t *TradeController) Offers() []session.Offer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]session.Offer, len(t.offers))
	copy(out, t.offers)
	return out
}

// Player1 returns the mirrored player1 binding, or "".
func (t *TradeController) Player1() session.PlayerID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last.Session == nil {
		return ""
	}
	return t.last.Session.Player1
}

// Player2 returns the mirrored player2 binding, or "".
func (t *TradeController) Player2() session.PlayerID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last.Session == nil {
		return ""
	}
	return t.last.Session.Player2
}

// WhoseTurn returns the player allowed to submit the next offer, or "" when
// the trade is not in progress. Always derived from the last snapshot.
func (t *TradeController) WhoseTurn() session.PlayerID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.whoseTurnLocked()
}

// IsOurTurn reports whether the local player may submit the next offer.
func (t *TradeController) IsOurTurn() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isOurTurnLocked()
}

func (t *TradeController) whoseTurnLocked() session.PlayerID {
	s := t.last.Session
	if s == nil || s.Status != session.StatusInProgress {
		return ""
	}
	if len(s.Offers)%2 == 0 {
		return s.Player1
	}
	return s.Player2
}

func (t *TradeController) isOurTurnLocked() bool {
	turn := t.whoseTurnLocked()
	return turn != "" && turn == t.ourPlayer
}

// Offer submits a hat offer to the mirrored session. Rejected client-side
// when no trade is in progress.
func (t *TradeController) Offer(ctx context.Context, hat string) error {
	t.mu.Lock()
	id := t.sessionID
	active := statusOf(t.last) == session.StatusInProgress
	t.mu.Unlock()
	if id == "" || !active {
		return area.ErrNoSessionInProgress
	}
	_, err := t.transport.SendCommand(ctx, t.areaID, area.SubmitOffer{SessionID: id, Hat: hat})
	return err
}

// offersOf rebuilds the offer log from a snapshot, placing each offer at its
// sequence position.
func offersOf(snap area.Snapshot) []session.Offer {
	if snap.Session == nil {
		return nil
	}
	src := snap.Session.Offers
	out := make([]session.Offer, len(src))
	for _, o := range src {
		if o.Sequence >= 0 && o.Sequence < len(out) {
			out[o.Sequence] = o
		}
	}
	return out
}

func equalOffers(a, b []session.Offer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
