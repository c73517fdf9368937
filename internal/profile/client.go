// Package profile talks to the external player-profile service that owns
// coin balances and hat inventories. The service exposes per-resource
// routes; this client composes them into the atomic-looking settlement
// operations the areas need and classifies every failure as a ServiceError
// so callers can tell a denied settlement from a transport fault.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/hattown/internal/area"
	"github.com/vovakirdan/hattown/internal/session"
)

// Settlement failures the service reports as business denials rather than
// transport faults.
var (
	ErrInsufficientCoins = errors.New("profile: insufficient coins")
	ErrHatNotOwned       = errors.New("profile: hat not owned")
)

// ServiceError wraps any failure of a profile-service call. StatusCode is 0
// when the request never produced a response.
type ServiceError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("profile: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("profile: %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Client is an HTTP client for the profile service. Reads and writes retry
// on 5xx and network failures with backoff; 4xx responses fail immediately.
// Mutating calls carry an Idempotency-Key header that stays stable across
// retries of the same logical operation.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger

	attempts uint
	delay    time.Duration
}

// NewClient creates a profile client for the service at baseURL, without a
// trailing slash.
func NewClient(baseURL string, logger *log.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		attempts: 3,
		delay:    200 * time.Millisecond,
	}
}

var _ area.Settler = (*Client)(nil)

// EnsurePlayer registers the player with the profile service. Registering an
// existing player is a no-op on the service side.
func (c *Client) EnsurePlayer(ctx context.Context, player session.PlayerID) error {
	return c.do(ctx, "ensure player", http.MethodPost, "/players/"+string(player), uuid.NewString(), nil)
}

// Coins returns the player's current coin balance.
func (c *Client) Coins(ctx context.Context, player session.PlayerID) (int, error) {
	var coins int
	if err := c.do(ctx, "read coins", http.MethodGet, "/players/"+string(player)+"/coveycoins", "", &coins); err != nil {
		return 0, err
	}
	return coins, nil
}

// AddCoins adjusts the player's balance by delta, which may be negative.
func (c *Client) AddCoins(ctx context.Context, player session.PlayerID, delta int, idemKey string) error {
	path := fmt.Sprintf("/players/%s/coveycoins/%d", player, delta)
	return c.do(ctx, "adjust coins", http.MethodPut, path, idemKey, nil)
}

// Inventory returns the hats the player owns.
func (c *Client) Inventory(ctx context.Context, player session.PlayerID) ([]string, error) {
	var hats []string
	if err := c.do(ctx, "read inventory", http.MethodGet, "/players/"+string(player)+"/inventory", "", &hats); err != nil {
		return nil, err
	}
	return hats, nil
}

// OwnsHat reports whether the player holds at least one of the given hat.
func (c *Client) OwnsHat(ctx context.Context, player session.PlayerID, hat string) (bool, error) {
	var quantity int
	path := "/players/" + string(player) + "/hat/" + hat
	if err := c.do(ctx, "read hat quantity", http.MethodGet, path, "", &quantity); err != nil {
		return false, err
	}
	return quantity > 0, nil
}

// AddHat adds one of the given hat to the player's inventory.
func (c *Client) AddHat(ctx context.Context, player session.PlayerID, hat string, idemKey string) error {
	return c.do(ctx, "add hat", http.MethodPut, "/players/"+string(player)+"/hat/"+hat, idemKey, nil)
}

// RemoveHat removes one of the given hat from the player's inventory.
func (c *Client) RemoveHat(ctx context.Context, player session.PlayerID, hat string, idemKey string) error {
	return c.do(ctx, "remove hat", http.MethodDelete, "/players/"+string(player)+"/hat/"+hat, idemKey, nil)
}

// ActiveHat returns the hat the player currently wears, "" for none.
func (c *Client) ActiveHat(ctx context.Context, player session.PlayerID) (string, error) {
	var hat string
	if err := c.do(ctx, "read active hat", http.MethodGet, "/players/"+string(player)+"/activehat", "", &hat); err != nil {
		return "", err
	}
	return hat, nil
}

// SetActiveHat makes the player wear the given hat.
func (c *Client) SetActiveHat(ctx context.Context, player session.PlayerID, hat string) error {
	return c.do(ctx, "set active hat", http.MethodPut, "/players/"+string(player)+"/activehat/"+hat, uuid.NewString(), nil)
}

// CollectDate returns the timestamp of the player's last daily coin grant.
func (c *Client) CollectDate(ctx context.Context, player session.PlayerID) (time.Time, error) {
	var stamp time.Time
	if err := c.do(ctx, "read collect date", http.MethodGet, "/players/"+string(player)+"/collectdate", "", &stamp); err != nil {
		return time.Time{}, err
	}
	return stamp, nil
}

// Collect claims the player's daily coin grant and stamps the collect date.
func (c *Client) Collect(ctx context.Context, player session.PlayerID) error {
	return c.do(ctx, "collect daily coins", http.MethodPut, "/players/"+string(player)+"/collectdate", uuid.NewString(), nil)
}

// PurchaseHat settles a pack purchase: verifies the balance, deducts the
// price and credits the hat. A failed credit refunds the deduction
// best-effort.
func (c *Client) PurchaseHat(ctx context.Context, player session.PlayerID, hat string, price int) error {
	coins, err := c.Coins(ctx, player)
	if err != nil {
		return err
	}
	if coins < price {
		return &ServiceError{Op: "purchase hat", Err: ErrInsufficientCoins}
	}

	key := uuid.NewString()
	if err := c.AddCoins(ctx, player, -price, key); err != nil {
		return err
	}
	if err := c.AddHat(ctx, player, hat, key); err != nil {
		if refundErr := c.AddCoins(ctx, player, price, uuid.NewString()); refundErr != nil {
			c.logger.Warn("refund after failed hat credit did not settle",
				"player", player, "hat", hat, "price", price, "error", refundErr)
		}
		return err
	}
	return nil
}

// SwapHats settles a completed trade: each player gives up their offered hat
// and receives the other's. Ownership is verified up front; a partial swap
// is rolled back best-effort.
func (c *Client) SwapHats(ctx context.Context, player1 session.PlayerID, hat1 string, player2 session.PlayerID, hat2 string) error {
	for _, side := range []struct {
		player session.PlayerID
		hat    string
	}{{player1, hat1}, {player2, hat2}} {
		owns, err := c.OwnsHat(ctx, side.player, side.hat)
		if err != nil {
			return err
		}
		if !owns {
			return &ServiceError{Op: "swap hats", Err: ErrHatNotOwned}
		}
	}

	key := uuid.NewString()
	steps := []struct {
		apply  func() error
		revert func() error
	}{
		{
			apply:  func() error { return c.RemoveHat(ctx, player1, hat1, key) },
			revert: func() error { return c.AddHat(ctx, player1, hat1, uuid.NewString()) },
		},
		{
			apply:  func() error { return c.RemoveHat(ctx, player2, hat2, key) },
			revert: func() error { return c.AddHat(ctx, player2, hat2, uuid.NewString()) },
		},
		{
			apply:  func() error { return c.AddHat(ctx, player1, hat2, key) },
			revert: func() error { return c.RemoveHat(ctx, player1, hat2, uuid.NewString()) },
		},
		{
			apply: func() error { return c.AddHat(ctx, player2, hat1, key) },
		},
	}

	for i, step := range steps {
		if err := step.apply(); err != nil {
			for j := i - 1; j >= 0; j-- {
				if revertErr := steps[j].revert(); revertErr != nil {
					c.logger.Warn("trade rollback step did not settle",
						"player1", player1, "player2", player2, "error", revertErr)
				}
			}
			return err
		}
	}
	return nil
}

// do performs one profile-service request with the client's retry policy and
// decodes a JSON response body into out when out is non-nil.
func (c *Client) do(ctx context.Context, op, method, path, idemKey string, out any) error {
	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		req.Header.Set("Accept", "application/json")
		if idemKey != "" {
			req.Header.Set("Idempotency-Key", idemKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("status %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return retry.Unrecoverable(&ServiceError{
				Op:         op,
				StatusCode: resp.StatusCode,
				Err:        errors.New(http.StatusText(resp.StatusCode)),
			})
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
		}
		return nil
	},
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return &ServiceError{Op: op, Err: err}
}
