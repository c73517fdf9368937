package session

// PurchaseSession is a single-customer shop visit. The session starts as soon
// as the customer joins and ends when they leave; purchases made in between
// are recorded in an append-only log.
type PurchaseSession struct {
	roster
	purchases []Purchase
}

// NewPurchase creates an empty purchase session in WAITING_TO_START.
func NewPurchase() *PurchaseSession {
	return &PurchaseSession{roster: newRoster(1)}
}

func (s *PurchaseSession) Join(p PlayerID) error {
	return s.join(p)
}

// Leave ends the visit: once the customer walks away the session is over.
func (s *PurchaseSession) Leave(p PlayerID) error {
	if err := s.remove(p); err != nil {
		return err
	}
	s.status = StatusOver
	return nil
}

// Customer returns the single participant, or "" before anyone has joined.
func (s *PurchaseSession) Customer() PlayerID {
	if len(s.players) == 0 {
		return ""
	}
	return s.players[0]
}

// RecordPurchase appends a settled purchase to the log. The caller settles
// payment before recording; this only mutates session state.
func (s *PurchaseSession) RecordPurchase(p PlayerID, pack, hat string, price int) error {
	if !s.contains(p) {
		return ErrNotInSession
	}
	s.purchases = append(s.purchases, Purchase{Pack: pack, Hat: hat, Price: price})
	return nil
}

// Purchases returns a copy of the purchase log.
func (s *PurchaseSession) Purchases() []Purchase {
	out := make([]Purchase, len(s.purchases))
	copy(out, s.purchases)
	return out
}

func (s *PurchaseSession) Snapshot() *Snapshot {
	return &Snapshot{
		ID:        s.id,
		Kind:      KindPurchase,
		Status:    s.status,
		Players:   s.Players(),
		Customer:  s.Customer(),
		Purchases: s.Purchases(),
	}
}
