package client

import (
	"context"

	"github.com/vovakirdan/hattown/internal/area"
	"github.com/vovakirdan/hattown/internal/session"
)

// ShopController is the purchase-area specialization of Controller. It
// projects the current customer and the purchase log from the mirrored
// snapshot.
type ShopController struct {
	Controller
	purchases []session.Purchase
}

// NewShopController creates a shop mirror seeded with the subscribe-time
// snapshot.
func NewShopController(areaID string, ourPlayer session.PlayerID, transport Transport, initial area.Snapshot) *ShopController {
	s := &ShopController{}
	s.areaID = areaID
	s.ourPlayer = ourPlayer
	s.transport = transport
	s.seed(initial)
	s.purchases = purchasesOf(initial)
	return s
}

// Apply reconciles the mirror and emits the shared events plus
// purchasesChanged when the purchase log grew.
func (s *ShopController) Apply(next area.Snapshot) {
	s.mu.Lock()
	events := s.applyLocked(next)

	newPurchases := purchasesOf(next)
	if !equalPurchases(s.purchases, newPurchases) {
		s.purchases = newPurchases
		events = append(events, PurchasesChanged{Purchases: newPurchases})
	}
	s.mu.Unlock()
	s.emit(events)
}

// Customer returns the mirrored customer, or "" when the shop is empty.
func (s *ShopController) Customer() session.PlayerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last.Session == nil {
		return ""
	}
	return s.last.Session.Customer
}

// Purchases returns the cached purchase log.
func (s *ShopController) Purchases() []session.Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]session.Purchase, len(s.purchases))
	copy(out, s.purchases)
	return out
}

// Buy purchases one pack in the mirrored session and returns the hat the
// server rolled. Rejected client-side when no visit is in progress.
func (s *ShopController) Buy(ctx context.Context, pack string) (string, error) {
	s.mu.Lock()
	id := s.sessionID
	active := statusOf(s.last) == session.StatusInProgress
	s.mu.Unlock()
	if id == "" || !active {
		return "", area.ErrNoSessionInProgress
	}
	resp, err := s.transport.SendCommand(ctx, s.areaID, area.BuyPack{SessionID: id, Pack: pack})
	if err != nil {
		return "", err
	}
	return resp.Hat, nil
}

func purchasesOf(snap area.Snapshot) []session.Purchase {
	if snap.Session == nil {
		return nil
	}
	out := make([]session.Purchase, len(snap.Session.Purchases))
	copy(out, snap.Session.Purchases)
	return out
}

func equalPurchases(a, b []session.Purchase) bool {
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
