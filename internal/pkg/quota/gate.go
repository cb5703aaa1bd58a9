package quota

import (
	"context"
	"errors"
	"time"

	"github.com/nmarkov/adpulse/app/models"
)

// CycleLength is the fixed billing cycle. Cycles are exactly 30 days, not
// calendar months.
const CycleLength = 30 * 24 * time.Hour

var ErrQuotaExceeded = errors.New("request limit exceeded")

// Store is the persistence surface the gate needs. Both mutating calls must
// be atomic conditional updates so two concurrent authorizations cannot both
// pass on the last remaining slot.
type Store interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	// ResetCycleIfExpired zeroes the counter and moves the expiry to
	// newExpiry, but only when the stored expiry is at or before now.
	// Returns whether a reset happened.
	ResetCycleIfExpired(ctx context.Context, userID uint, now, newExpiry time.Time) (bool, error)
	// IncrementIfBelow adds one to the counter when it is below limit and
	// reports whether the increment happened. A negative limit means no
	// ceiling: increment unconditionally.
	IncrementIfBelow(ctx context.Context, userID uint, limit int) (bool, error)
}

// Gate enforces the per-user, per-cycle analysis request ceiling.
type Gate struct {
	store Store
	now   func() time.Time
}

// NewGate creates a quota gate over the given store.
func NewGate(store Store) *Gate {
	return &Gate{store: store, now: time.Now}
}

// Authorize admits or rejects one analysis invocation for the user. A lapsed
// billing cycle is rolled over (counter reset, expiry advanced by 30 days)
// before the ceiling comparison so a newly renewed user is never blocked by
// a stale counter. On admit the counter is already incremented; on
// ErrQuotaExceeded nothing was mutated.
func (g *Gate) Authorize(ctx context.Context, userID uint) error {
	user, err := g.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	now := g.now()
	if user.SubscriptionExpiresAt != nil && now.After(*user.SubscriptionExpiresAt) {
		if _, err := g.store.ResetCycleIfExpired(ctx, userID, now, now.Add(CycleLength)); err != nil {
			return err
		}
	}

	ok, err := g.store.IncrementIfBelow(ctx, userID, LimitFor(user.Plan))
	if err != nil {
		return err
	}
	if !ok {
		return ErrQuotaExceeded
	}
	return nil
}
