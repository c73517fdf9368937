package session

import (
	"errors"
	"reflect"
	"testing"
)

func fullTrade(t *testing.T) *TradeSession {
	t.Helper()
	s := NewTrade()
	if err := s.Join("alice"); err != nil {
		t.Fatalf("Join(alice) failed: %v", err)
	}
	if err := s.Join("bob"); err != nil {
		t.Fatalf("Join(bob) failed: %v", err)
	}
	return s
}

func TestTradeJoinSequence(t *testing.T) {
	s := NewTrade()

	if err := s.Join("alice"); err != nil {
		t.Fatalf("Join(alice) failed: %v", err)
	}
	if s.Status() != StatusWaiting {
		t.Errorf("status after first join = %q, want %q", s.Status(), StatusWaiting)
	}
	if got := s.Players(); !reflect.DeepEqual(got, []PlayerID{"alice"}) {
		t.Errorf("players = %v, want [alice]", got)
	}

	if err := s.Join("bob"); err != nil {
		t.Fatalf("Join(bob) failed: %v", err)
	}
	if s.Status() != StatusInProgress {
		t.Errorf("status after second join = %q, want %q", s.Status(), StatusInProgress)
	}
	if got := s.Players(); !reflect.DeepEqual(got, []PlayerID{"alice", "bob"}) {
		t.Errorf("players = %v, want [alice bob]", got)
	}
	if s.WhoseTurn() != 1 {
		t.Errorf("whose turn = %d, want 1 (player1 opens)", s.WhoseTurn())
	}
}

func TestTradeJoinRejections(t *testing.T) {
	tests := []struct {
		name    string
		joiner  PlayerID
		wantErr error
	}{
		{name: "duplicate member", joiner: "alice", wantErr: ErrAlreadyInSession},
		{name: "third player", joiner: "carol", wantErr: ErrSessionFull},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := fullTrade(t)
			before := s.Snapshot()

			err := s.Join(tc.joiner)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Join(%q) error = %v, want %v", tc.joiner, err, tc.wantErr)
			}
			if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
				t.Errorf("rejected join mutated state: before %+v, after %+v", before, after)
			}
		})
	}
}

func TestTradeOfferSequence(t *testing.T) {
	s := fullTrade(t)

	if err := s.RecordOffer("alice", "baseball"); err != nil {
		t.Fatalf("RecordOffer(alice) failed: %v", err)
	}
	want := []Offer{{Role: 1, Hat: "baseball", Sequence: 0}}
	if got := s.Offers(); !reflect.DeepEqual(got, want) {
		t.Errorf("offers = %+v, want %+v", got, want)
	}
	if s.WhoseTurn() != 2 {
		t.Errorf("whose turn after first offer = %d, want 2", s.WhoseTurn())
	}

	if err := s.RecordOffer("bob", "chef"); err != nil {
		t.Fatalf("RecordOffer(bob) failed: %v", err)
	}
	if got := len(s.Offers()); got != 2 {
		t.Errorf("offer count = %d, want 2", got)
	}
	if s.Status() != StatusOver {
		t.Errorf("status after two offers = %q, want %q", s.Status(), StatusOver)
	}
}

func TestTradeOfferRejections(t *testing.T) {
	tests := []struct {
		name    string
		offerer PlayerID
		wantErr error
	}{
		{name: "out of turn", offerer: "bob", wantErr: ErrTurnViolation},
		{name: "non member", offerer: "carol", wantErr: ErrNotInSession},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := fullTrade(t)
			before := s.Snapshot()

			err := s.RecordOffer(tc.offerer, "chef")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("RecordOffer(%q) error = %v, want %v", tc.offerer, err, tc.wantErr)
			}
			if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
				t.Errorf("rejected offer mutated state: before %+v, after %+v", before, after)
			}
		})
	}
}

func TestTradeLeaveFromFullSession(t *testing.T) {
	s := fullTrade(t)
	if err := s.RecordOffer("alice", "baseball"); err != nil {
		t.Fatalf("RecordOffer() failed: %v", err)
	}

	if err := s.Leave("bob"); err != nil {
		t.Fatalf("Leave() failed: %v", err)
	}
	if s.Status() != StatusOver {
		t.Errorf("status = %q, want %q", s.Status(), StatusOver)
	}
	if got := s.Players(); !reflect.DeepEqual(got, []PlayerID{"alice"}) {
		t.Errorf("players = %v, want [alice]", got)
	}
}

func TestTradeCompletedStaysOverAfterBothLeave(t *testing.T) {
	s := fullTrade(t)
	if err := s.RecordOffer("alice", "baseball"); err != nil {
		t.Fatalf("RecordOffer(alice) failed: %v", err)
	}
	if err := s.RecordOffer("bob", "chef"); err != nil {
		t.Fatalf("RecordOffer(bob) failed: %v", err)
	}

	if err := s.Leave("alice"); err != nil {
		t.Fatalf("Leave(alice) failed: %v", err)
	}
	if err := s.Leave("bob"); err != nil {
		t.Fatalf("Leave(bob) failed: %v", err)
	}
	if s.Status() != StatusOver {
		t.Errorf("status after both players left = %q, want %q", s.Status(), StatusOver)
	}
	if got := len(s.Offers()); got != 2 {
		t.Errorf("offer log after both players left = %d entries, want 2", got)
	}
}

func TestTradeLeaveFromHalfFilledSessionResets(t *testing.T) {
	s := NewTrade()
	if err := s.Join("alice"); err != nil {
		t.Fatalf("Join() failed: %v", err)
	}

	if err := s.Leave("alice"); err != nil {
		t.Fatalf("Leave() failed: %v", err)
	}
	if s.Status() != StatusWaiting {
		t.Errorf("status = %q, want %q", s.Status(), StatusWaiting)
	}
	if got := s.Players(); len(got) != 0 {
		t.Errorf("players = %v, want empty", got)
	}
	if got := s.Offers(); len(got) != 0 {
		t.Errorf("offers = %v, want empty", got)
	}
}

func TestTradeLeaveNonMember(t *testing.T) {
	s := fullTrade(t)
	before := s.Snapshot()

	err := s.Leave("carol")
	if !errors.Is(err, ErrNotInSession) {
		t.Fatalf("Leave(carol) error = %v, want %v", err, ErrNotInSession)
	}
	if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("rejected leave mutated state: before %+v, after %+v", before, after)
	}
}

func TestTradeRoleResolution(t *testing.T) {
	s := fullTrade(t)

	role, err := s.RoleOf("alice")
	if err != nil || role != 1 {
		t.Errorf("RoleOf(alice) = %d, %v, want 1, nil", role, err)
	}
	role, err = s.RoleOf("bob")
	if err != nil || role != 2 {
		t.Errorf("RoleOf(bob) = %d, %v, want 2, nil", role, err)
	}
	if _, err := s.RoleOf("carol"); !errors.Is(err, ErrNotInSession) {
		t.Errorf("RoleOf(carol) error = %v, want %v", err, ErrNotInSession)
	}
}

func TestTradeSnapshotIsDetached(t *testing.T) {
	s := fullTrade(t)
	if err := s.RecordOffer("alice", "baseball"); err != nil {
		t.Fatalf("RecordOffer() failed: %v", err)
	}

	snap := s.Snapshot()
	snap.Offers[0].Hat = "special"
	snap.Players[1] = "mallory"

	if got := s.Offers()[0].Hat; got != "baseball" {
		t.Errorf("mutating snapshot changed offer log: %q", got)
	}
	if got := s.Players()[1]; got != "bob" {
		t.Errorf("mutating snapshot changed roster: %q", got)
	}
}
