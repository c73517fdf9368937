package session

// TradeSession is a two-party hat exchange. The first joiner is player1, the
// second player2. Offers alternate starting with player1 and the trade ends
// after exactly two offers, one per side.
type TradeSession struct {
	roster
	offers []Offer
}

// NewTrade creates an empty trade session in WAITING_TO_START.
func NewTrade() *TradeSession {
	return &TradeSession{roster: newRoster(2)}
}

func (s *TradeSession) Join(p PlayerID) error {
	return s.join(p)
}

// Leave removes p. A trade that ever had both players is over and stays
// over, no matter how many leaves follow; a half-filled trade is discarded
// entirely, dropping the remaining roster and any offers, and returns to
// WAITING_TO_START.
func (s *TradeSession) Leave(p PlayerID) error {
	wasFull := len(s.players) == s.capacity
	if err := s.remove(p); err != nil {
		return err
	}
	if s.status == StatusOver || wasFull {
		s.status = StatusOver
		return nil
	}
	s.status = StatusWaiting
	s.players = nil
	s.offers = nil
	return nil
}

// Player1 returns the first joiner, or "" if the roster is empty.
func (s *TradeSession) Player1() PlayerID {
	if len(s.players) < 1 {
		return ""
	}
	return s.players[0]
}

// Player2 returns the second joiner, or "" if the roster is not full.
func (s *TradeSession) Player2() PlayerID {
	if len(s.players) < 2 {
		return ""
	}
	return s.players[1]
}

// WhoseTurn derives the role allowed to submit the next offer. Player1 opens;
// the turn alternates with each recorded offer. The value is derived, never
// stored.
func (s *TradeSession) WhoseTurn() int {
	if len(s.offers)%2 == 0 {
		return 1
	}
	return 2
}

// RoleOf resolves p's role from session membership. Caller-supplied roles
// are never trusted.
func (s *TradeSession) RoleOf(p PlayerID) (int, error) {
	switch {
	case p != "" && p == s.Player1():
		return 1, nil
	case p != "" && p == s.Player2():
		return 2, nil
	default:
		return 0, ErrNotInSession
	}
}

// ValidateOffer reports whether p may submit the next offer, without mutating
// anything. Out-of-turn submissions are rejected.
func (s *TradeSession) ValidateOffer(p PlayerID) error {
	role, err := s.RoleOf(p)
	if err != nil {
		return err
	}
	if role != s.WhoseTurn() {
		return ErrTurnViolation
	}
	return nil
}

// RecordOffer validates and appends p's offer. The second offer completes the
// trade and moves it to OVER. A rejected offer leaves the log unchanged.
func (s *TradeSession) RecordOffer(p PlayerID, hat string) error {
	if err := s.ValidateOffer(p); err != nil {
		return err
	}
	role, _ := s.RoleOf(p)
	s.offers = append(s.offers, Offer{
		Role:     role,
		Hat:      hat,
		Sequence: len(s.offers),
	})
	if len(s.offers) == 2 {
		s.status = StatusOver
	}
	return nil
}

// Offers returns a copy of the offer log, in sequence order.
func (s *TradeSession) Offers() []Offer {
	out := make([]Offer, len(s.offers))
	copy(out, s.offers)
	return out
}

func (s *TradeSession) Snapshot() *Snapshot {
	return &Snapshot{
		ID:      s.id,
		Kind:    KindTrade,
		Status:  s.status,
		Players: s.Players(),
		Player1: s.Player1(),
		Player2: s.Player2(),
		Offers:  s.Offers(),
	}
}
