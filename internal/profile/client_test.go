package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, log.NewWithOptions(io.Discard, log.Options{}))
	c.delay = time.Millisecond
	return c
}

type fakeService struct {
	mu        sync.Mutex
	coins     map[string]int
	hats      map[string]map[string]int
	active    map[string]string
	collected map[string]time.Time
	requests  []string
	idemKeys  []string
	fail      map[string]int // route -> remaining hard failures
	deny      map[string]int // route -> status for immediate denial
}

func newFakeService() *fakeService {
	return &fakeService{
		coins:     map[string]int{},
		hats:      map[string]map[string]int{},
		active:    map[string]string{},
		collected: map[string]time.Time{},
		fail:      map[string]int{},
		deny:      map[string]int{},
	}
}

func (s *fakeService) route(method, path string) string {
	return method + " " + path
}

func (s *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	route := s.route(r.Method, r.URL.Path)
	s.requests = append(s.requests, route)
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		s.idemKeys = append(s.idemKeys, key)
	}

	if s.fail[route] > 0 {
		s.fail[route]--
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if status := s.deny[route]; status != 0 {
		w.WriteHeader(status)
		return
	}

	// Paths look like /players/{u}[/resource[/arg]].
	var player, tail, arg string
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) >= 2 {
		player = parts[1]
	}
	if len(parts) >= 3 {
		tail = parts[2]
	}
	if len(parts) >= 4 {
		arg = parts[3]
	}

	switch {
	case tail == "" && r.Method == http.MethodPost:
		if _, ok := s.coins[player]; !ok {
			s.coins[player] = 0
		}
		fmt.Fprint(w, "1")
	case tail == "inventory" && r.Method == http.MethodGet:
		owned := []string{}
		for hat, n := range s.hats[player] {
			if n > 0 {
				owned = append(owned, hat)
			}
		}
		sort.Strings(owned)
		json.NewEncoder(w).Encode(owned)
	case tail == "activehat" && r.Method == http.MethodGet:
		fmt.Fprintf(w, "%q", s.active[player])
	case tail == "activehat" && r.Method == http.MethodPut:
		s.active[player] = arg
		fmt.Fprint(w, "1")
	case tail == "collectdate" && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(s.collected[player])
	case tail == "collectdate" && r.Method == http.MethodPut:
		s.collected[player] = time.Now().UTC()
		fmt.Fprint(w, "1")
	case tail == "coveycoins" && r.Method == http.MethodGet:
		fmt.Fprintf(w, "%d", s.coins[player])
	case tail == "coveycoins" && r.Method == http.MethodPut:
		var delta int
		fmt.Sscanf(arg, "%d", &delta)
		s.coins[player] += delta
		fmt.Fprint(w, "1")
	case tail == "hat" && r.Method == http.MethodGet:
		fmt.Fprintf(w, "%d", s.hats[player][arg])
	case tail == "hat" && r.Method == http.MethodPut:
		if s.hats[player] == nil {
			s.hats[player] = map[string]int{}
		}
		s.hats[player][arg]++
		fmt.Fprint(w, "1")
	case tail == "hat" && r.Method == http.MethodDelete:
		s.hats[player][arg]--
		fmt.Fprint(w, "1")
	default:
		fmt.Fprint(w, "1")
	}
}

func TestCoinsReadsBalance(t *testing.T) {
	svc := newFakeService()
	svc.coins["alice"] = 42
	c := testClient(t, svc)

	coins, err := c.Coins(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Coins() failed: %v", err)
	}
	if coins != 42 {
		t.Errorf("Coins() = %d, want 42", coins)
	}
}

func TestServerErrorsAreRetried(t *testing.T) {
	svc := newFakeService()
	svc.coins["alice"] = 7
	svc.fail["GET /players/alice/coveycoins"] = 2
	c := testClient(t, svc)

	coins, err := c.Coins(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Coins() after transient failures = %v", err)
	}
	if coins != 7 {
		t.Errorf("Coins() = %d, want 7", coins)
	}
	if got := len(svc.requests); got != 3 {
		t.Errorf("request count = %d, want 3 (two failures plus success)", got)
	}
}

func TestExhaustedRetriesReturnServiceError(t *testing.T) {
	svc := newFakeService()
	svc.fail["GET /players/alice/coveycoins"] = 10
	c := testClient(t, svc)

	_, err := c.Coins(context.Background(), "alice")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("error = %v, want *ServiceError", err)
	}
	if got := len(svc.requests); got != 3 {
		t.Errorf("request count = %d, want 3 attempts", got)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	svc := newFakeService()
	svc.deny["GET /players/alice/coveycoins"] = http.StatusNotFound
	c := testClient(t, svc)

	_, err := c.Coins(context.Background(), "alice")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("error = %v, want *ServiceError", err)
	}
	if svcErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", svcErr.StatusCode)
	}
	if got := len(svc.requests); got != 1 {
		t.Errorf("request count = %d, want 1 (no retries on 4xx)", got)
	}
}

func TestPurchaseHatSettles(t *testing.T) {
	svc := newFakeService()
	svc.coins["alice"] = 100
	c := testClient(t, svc)

	if err := c.PurchaseHat(context.Background(), "alice", "wizard", 50); err != nil {
		t.Fatalf("PurchaseHat() failed: %v", err)
	}
	if svc.coins["alice"] != 50 {
		t.Errorf("coins after purchase = %d, want 50", svc.coins["alice"])
	}
	if svc.hats["alice"]["wizard"] != 1 {
		t.Errorf("wizard quantity = %d, want 1", svc.hats["alice"]["wizard"])
	}
}

func TestPurchaseHatInsufficientCoins(t *testing.T) {
	svc := newFakeService()
	svc.coins["alice"] = 5
	c := testClient(t, svc)

	err := c.PurchaseHat(context.Background(), "alice", "wizard", 50)
	if !errors.Is(err, ErrInsufficientCoins) {
		t.Fatalf("error = %v, want %v", err, ErrInsufficientCoins)
	}
	if svc.coins["alice"] != 5 {
		t.Errorf("coins touched by denied purchase: %d", svc.coins["alice"])
	}
}

func TestPurchaseHatRefundsFailedCredit(t *testing.T) {
	svc := newFakeService()
	svc.coins["alice"] = 100
	svc.deny["PUT /players/alice/hat/wizard"] = http.StatusForbidden
	c := testClient(t, svc)

	if err := c.PurchaseHat(context.Background(), "alice", "wizard", 50); err == nil {
		t.Fatal("PurchaseHat() succeeded despite denied hat credit")
	}
	if svc.coins["alice"] != 100 {
		t.Errorf("coins after refund = %d, want 100", svc.coins["alice"])
	}
}

func TestPurchaseIdempotencyKeyStableAcrossRetries(t *testing.T) {
	svc := newFakeService()
	svc.coins["alice"] = 100
	svc.fail["PUT /players/alice/coveycoins/-50"] = 1
	c := testClient(t, svc)

	if err := c.PurchaseHat(context.Background(), "alice", "wizard", 50); err != nil {
		t.Fatalf("PurchaseHat() failed: %v", err)
	}
	// Deduct attempt 1 (500), deduct attempt 2, hat credit: all three carry
	// the same key.
	if len(svc.idemKeys) != 3 {
		t.Fatalf("idempotency keys = %v, want 3 entries", svc.idemKeys)
	}
	for _, key := range svc.idemKeys[1:] {
		if key != svc.idemKeys[0] {
			t.Errorf("keys differ within one logical operation: %v", svc.idemKeys)
		}
	}
}

func TestSwapHatsSettles(t *testing.T) {
	svc := newFakeService()
	svc.hats["alice"] = map[string]int{"pirate": 1}
	svc.hats["bob"] = map[string]int{"wizard": 1}
	c := testClient(t, svc)

	if err := c.SwapHats(context.Background(), "alice", "pirate", "bob", "wizard"); err != nil {
		t.Fatalf("SwapHats() failed: %v", err)
	}
	if svc.hats["alice"]["wizard"] != 1 || svc.hats["alice"]["pirate"] != 0 {
		t.Errorf("alice's hats = %v, want wizard only", svc.hats["alice"])
	}
	if svc.hats["bob"]["pirate"] != 1 || svc.hats["bob"]["wizard"] != 0 {
		t.Errorf("bob's hats = %v, want pirate only", svc.hats["bob"])
	}
}

func TestSwapHatsDeniedWhenNotOwned(t *testing.T) {
	svc := newFakeService()
	svc.hats["alice"] = map[string]int{"pirate": 1}
	c := testClient(t, svc)

	err := c.SwapHats(context.Background(), "alice", "pirate", "bob", "wizard")
	if !errors.Is(err, ErrHatNotOwned) {
		t.Fatalf("error = %v, want %v", err, ErrHatNotOwned)
	}
	if svc.hats["alice"]["pirate"] != 1 {
		t.Errorf("alice's pirate hat touched by denied swap: %v", svc.hats["alice"])
	}
}

func TestEnsurePlayerRegisters(t *testing.T) {
	svc := newFakeService()
	c := testClient(t, svc)

	if err := c.EnsurePlayer(context.Background(), "alice"); err != nil {
		t.Fatalf("EnsurePlayer() failed: %v", err)
	}
	if svc.requests[0] != "POST /players/alice" {
		t.Errorf("request = %q, want POST /players/alice", svc.requests[0])
	}
	if _, ok := svc.coins["alice"]; !ok {
		t.Error("player was not registered with the service")
	}
}

func TestInventoryListsOwnedHats(t *testing.T) {
	svc := newFakeService()
	svc.hats["alice"] = map[string]int{"pirate": 1, "wizard": 2, "chef": 0}
	c := testClient(t, svc)

	hats, err := c.Inventory(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Inventory() failed: %v", err)
	}
	if !reflect.DeepEqual(hats, []string{"pirate", "wizard"}) {
		t.Errorf("Inventory() = %v, want [pirate wizard]", hats)
	}
}

func TestActiveHatRoundTrip(t *testing.T) {
	svc := newFakeService()
	c := testClient(t, svc)

	hat, err := c.ActiveHat(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ActiveHat() failed: %v", err)
	}
	if hat != "" {
		t.Errorf("ActiveHat() before set = %q, want empty", hat)
	}

	if err := c.SetActiveHat(context.Background(), "alice", "wizard"); err != nil {
		t.Fatalf("SetActiveHat() failed: %v", err)
	}
	hat, err = c.ActiveHat(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ActiveHat() failed: %v", err)
	}
	if hat != "wizard" {
		t.Errorf("ActiveHat() = %q, want wizard", hat)
	}
}

func TestCollectStampsDate(t *testing.T) {
	svc := newFakeService()
	c := testClient(t, svc)

	stamp, err := c.CollectDate(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CollectDate() failed: %v", err)
	}
	if !stamp.IsZero() {
		t.Errorf("collect date before first collect = %v, want zero", stamp)
	}

	if err := c.Collect(context.Background(), "alice"); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	stamp, err = c.CollectDate(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CollectDate() failed: %v", err)
	}
	if stamp.IsZero() {
		t.Error("collect date not stamped by Collect()")
	}
}

func TestSwapHatsRollsBackPartialSwap(t *testing.T) {
	svc := newFakeService()
	svc.hats["alice"] = map[string]int{"pirate": 1}
	svc.hats["bob"] = map[string]int{"wizard": 1}
	svc.deny["PUT /players/alice/hat/wizard"] = http.StatusForbidden
	c := testClient(t, svc)

	if err := c.SwapHats(context.Background(), "alice", "pirate", "bob", "wizard"); err == nil {
		t.Fatal("SwapHats() succeeded despite denied credit")
	}
	if svc.hats["alice"]["pirate"] != 1 {
		t.Errorf("alice's pirate not restored: %v", svc.hats["alice"])
	}
	if svc.hats["bob"]["wizard"] != 1 {
		t.Errorf("bob's wizard not restored: %v", svc.hats["bob"])
	}
}
