// Package area implements the server-side container bound to one zone of the
// town. An Area holds at most one active session, validates and dispatches
// player commands to it, and publishes a fresh snapshot to subscribers after
// every successful mutation.
package area

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/hattown/internal/session"
)

// Snapshot is the immutable wire projection of an area: who is physically in
// the zone, and the active session if any. Occupancy is broader than session
// membership.
type Snapshot struct {
	AreaID    string             `json:"areaID"`
	Occupants []session.PlayerID `json:"occupants"`
	Session   *session.Snapshot  `json:"session,omitempty"`
}

// Broadcaster publishes an area snapshot to every subscriber of that area.
// Delivery must be in publish order per area; Publish is called while the
// area's lock is held, so implementations must not call back into the area.
type Broadcaster interface {
	Publish(areaID string, snap Snapshot)
}

// Settler applies the economic effects of commands against the remote player
// profile store. Settlement runs before session state is mutated, so a
// settlement failure rejects the command and leaves the session untouched.
type Settler interface {
	// PurchaseHat deducts price from the player's coins and grants the hat,
	// as one atomic operation.
	PurchaseHat(ctx context.Context, player session.PlayerID, hat string, price int) error

	// SwapHats moves hat1 from p1 to p2 and hat2 from p2 to p1, as one
	// atomic operation.
	SwapHats(ctx context.Context, p1 session.PlayerID, hat1 string, p2 session.PlayerID, hat2 string) error
}

// ResultSaver persists completed sessions. Saves are best effort and must not
// block command handling.
type ResultSaver interface {
	SaveSessionResult(r ResultData) error
}

// ResultData describes one completed session for persistence.
type ResultData struct {
	SessionID string
	AreaID    string
	Kind      string
	Player1   string
	Player2   string
	Offers    int
	Purchases int
}

// Drop is one weighted entry in a pack's drop table.
type Drop struct {
	Hat    string
	Weight int
}

// Pack is a purchasable hat pack with weighted drop odds.
type Pack struct {
	Name  string
	Price int
	Drops []Drop
}

// Config holds the zone-level parameters of an area, assigned at world-build
// time.
type Config struct {
	// ID is the zone identifier.
	ID string

	// Kind selects which session variant JoinSession constructs.
	Kind session.Kind

	// Packs is the catalog sold in a purchase area. Ignored for trade areas.
	Packs []Pack

	// Seed for the pack drop roll. 0 means time-based.
	Seed int64
}

// Area is the zone-bound session container. Exactly one mutation is in
// flight per area at any instant: HandleCommand executes as a single atomic
// step under the area lock, and the snapshot publish for a successful command
// happens before the next command is accepted.
type Area struct {
	id     string
	kind   session.Kind
	packs  map[string]Pack
	logger *log.Logger

	broadcaster Broadcaster
	settler     Settler
	saver       ResultSaver

	mu        sync.Mutex
	rng       *rand.Rand
	occupants map[session.PlayerID]struct{}
	active    session.Session
	savedID   string
}

// New creates an area publishing to b. Settler and saver are optional and
// attached separately.
func New(cfg Config, b Broadcaster, logger *log.Logger) *Area {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	packs := make(map[string]Pack, len(cfg.Packs))
	for _, p := range cfg.Packs {
		packs[p.Name] = p
	}
	return &Area{
		id:          cfg.ID,
		kind:        cfg.Kind,
		packs:       packs,
		logger:      logger,
		broadcaster: b,
		rng:         rand.New(rand.NewSource(seed)),
		occupants:   make(map[session.PlayerID]struct{}),
	}
}

// SetSettler attaches the profile-store settler.
func (a *Area) SetSettler(s Settler) {
	a.settler = s
}

// SetResultSaver attaches the optional session-history saver.
func (a *Area) SetResultSaver(s ResultSaver) {
	a.saver = s
}

// ID returns the zone identifier.
func (a *Area) ID() string {
	return a.id
}

// Kind returns the session variant this area hosts.
func (a *Area) Kind() session.Kind {
	return a.kind
}

// Snapshot returns the area's current state. Used to seed a subscriber's
// client-side mirror at subscribe time.
func (a *Area) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// AddOccupant records that p entered the zone and publishes the change.
// Occupancy is owned by the movement layer; this is its entry point.
func (a *Area) AddOccupant(p session.PlayerID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.occupants[p] = struct{}{}
	a.publishLocked()
}

// RemoveOccupant records that p left the zone. A participant who walks out
// of the zone leaves the active session as well.
func (a *Area) RemoveOccupant(p session.PlayerID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active != nil {
		for _, member := range a.active.Players() {
			if member == p {
				if err := a.active.Leave(p); err == nil {
					a.finishIfOverLocked()
				}
				break
			}
		}
	}
	delete(a.occupants, p)
	a.publishLocked()
}

// HandleCommand validates and executes one command as a single atomic step
// for this area. On success the updated snapshot is published before the
// method returns; a failed command publishes nothing and leaves the area in
// its prior state.
func (a *Area) HandleCommand(ctx context.Context, cmd Command, player session.PlayerID) (Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch c := cmd.(type) {
	case JoinSession:
		return a.handleJoin(player)
	case LeaveSession:
		return a.handleLeave(c, player)
	case SubmitOffer:
		return a.handleOffer(ctx, c, player)
	case BuyPack:
		return a.handleBuy(ctx, c, player)
	default:
		return Response{}, ErrInvalidCommand
	}
}

func (a *Area) handleJoin(player session.PlayerID) (Response, error) {
	if a.active == nil || a.active.Status() == session.StatusOver {
		a.active = a.newSession()
		a.savedID = ""
	}
	if err := a.active.Join(player); err != nil {
		return Response{}, err
	}
	a.publishLocked()
	return Response{SessionID: a.active.ID()}, nil
}

func (a *Area) handleLeave(c LeaveSession, player session.PlayerID) (Response, error) {
	cur, err := a.currentSession(c.SessionID)
	if err != nil {
		return Response{}, err
	}
	if err := cur.Leave(player); err != nil {
		return Response{}, err
	}
	a.finishIfOverLocked()
	a.publishLocked()
	return Response{}, nil
}

func (a *Area) handleOffer(ctx context.Context, c SubmitOffer, player session.PlayerID) (Response, error) {
	cur, err := a.currentSession(c.SessionID)
	if err != nil {
		return Response{}, err
	}
	if cur.Status() != session.StatusInProgress {
		return Response{}, ErrNoSessionInProgress
	}
	trade, ok := cur.(*session.TradeSession)
	if !ok {
		return Response{}, ErrInvalidCommand
	}
	if err := trade.ValidateOffer(player); err != nil {
		return Response{}, err
	}
	// The second offer completes the exchange. Settle it against the profile
	// store first: a failed settlement rejects the command and leaves the
	// trade open for a retry.
	if offers := trade.Offers(); len(offers) == 1 && a.settler != nil {
		first := offers[0]
		if err := a.settler.SwapHats(ctx, trade.Player1(), first.Hat, trade.Player2(), c.Hat); err != nil {
			return Response{}, fmt.Errorf("settle trade: %w", err)
		}
	}
	if err := trade.RecordOffer(player, c.Hat); err != nil {
		return Response{}, err
	}
	a.finishIfOverLocked()
	a.publishLocked()
	return Response{}, nil
}

func (a *Area) handleBuy(ctx context.Context, c BuyPack, player session.PlayerID) (Response, error) {
	cur, err := a.currentSession(c.SessionID)
	if err != nil {
		return Response{}, err
	}
	if cur.Status() != session.StatusInProgress {
		return Response{}, ErrNoSessionInProgress
	}
	purchase, ok := cur.(*session.PurchaseSession)
	if !ok {
		return Response{}, ErrInvalidCommand
	}
	if purchase.Customer() != player {
		return Response{}, session.ErrNotInSession
	}
	pack, ok := a.packs[c.Pack]
	if !ok {
		return Response{}, ErrUnknownPack
	}
	hat := a.rollHatLocked(pack)
	if a.settler != nil {
		if err := a.settler.PurchaseHat(ctx, player, hat, pack.Price); err != nil {
			return Response{}, fmt.Errorf("settle purchase: %w", err)
		}
	}
	if err := purchase.RecordPurchase(player, pack.Name, hat, pack.Price); err != nil {
		return Response{}, err
	}
	a.publishLocked()
	return Response{Hat: hat}, nil
}

func (a *Area) newSession() session.Session {
	if a.kind == session.KindTrade {
		return session.NewTrade()
	}
	return session.NewPurchase()
}

// currentSession resolves the active session, checking existence and id.
func (a *Area) currentSession(id string) (session.Session, error) {
	if a.active == nil {
		return nil, ErrNoSessionInProgress
	}
	if a.active.ID() != id {
		return nil, ErrSessionIDMismatch
	}
	return a.active, nil
}

// rollHatLocked picks one hat from the pack's weighted drop table.
func (a *Area) rollHatLocked(pack Pack) string {
	total := 0
	for _, d := range pack.Drops {
		total += d.Weight
	}
	if total <= 0 {
		return ""
	}
	roll := a.rng.Intn(total)
	for _, d := range pack.Drops {
		roll -= d.Weight
		if roll < 0 {
			return d.Hat
		}
	}
	return pack.Drops[len(pack.Drops)-1].Hat
}

func (a *Area) snapshotLocked() Snapshot {
	occupants := make([]session.PlayerID, 0, len(a.occupants))
	for p := range a.occupants {
		occupants = append(occupants, p)
	}
	sort.Slice(occupants, func(i, j int) bool { return occupants[i] < occupants[j] })

	snap := Snapshot{AreaID: a.id, Occupants: occupants}
	if a.active != nil {
		snap.Session = a.active.Snapshot()
	}
	return snap
}

func (a *Area) publishLocked() {
	if a.broadcaster == nil {
		return
	}
	a.broadcaster.Publish(a.id, a.snapshotLocked())
}

// finishIfOverLocked hands a freshly completed session to the result saver,
// at most once per session.
func (a *Area) finishIfOverLocked() {
	if a.saver == nil || a.active == nil {
		return
	}
	if a.active.Status() != session.StatusOver || a.active.ID() == a.savedID {
		return
	}
	a.savedID = a.active.ID()
	result := ResultData{
		SessionID: a.active.ID(),
		AreaID:    a.id,
		Kind:      string(a.kind),
	}
	players := a.active.Players()
	if len(players) > 0 {
		result.Player1 = string(players[0])
	}
	if len(players) > 1 {
		result.Player2 = string(players[1])
	}
	switch s := a.active.(type) {
	case *session.TradeSession:
		result.Offers = len(s.Offers())
	case *session.PurchaseSession:
		result.Purchases = len(s.Purchases())
	}
	// Best effort save, don't block command handling on it.
	saver := a.saver
	go func() {
		if err := saver.SaveSessionResult(result); err != nil && a.logger != nil {
			a.logger.Warn("could not save session result", "session", result.SessionID, "error", err)
		}
	}()
}
