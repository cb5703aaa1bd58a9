package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmarkov/adpulse/app/models"
)

// fakeStore mirrors the conditional-update semantics of the GORM store.
type fakeStore struct {
	mu   sync.Mutex
	user models.User
}

func (s *fakeStore) GetUser(_ context.Context, userID uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user
	return &u, nil
}

func (s *fakeStore) ResetCycleIfExpired(_ context.Context, userID uint, now, newExpiry time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user.SubscriptionExpiresAt == nil || s.user.SubscriptionExpiresAt.After(now) {
		return false, nil
	}
	s.user.RequestCount = 0
	expiry := newExpiry
	s.user.SubscriptionExpiresAt = &expiry
	return true, nil
}

func (s *fakeStore) IncrementIfBelow(_ context.Context, userID uint, limit int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit >= 0 && s.user.RequestCount >= limit {
		return false, nil
	}
	s.user.RequestCount++
	return true, nil
}

func newTestGate(user models.User) (*Gate, *fakeStore) {
	store := &fakeStore{user: user}
	return NewGate(store), store
}

func TestAuthorizeBelowLimit(t *testing.T) {
	gate, store := newTestGate(models.User{ID: 1, Plan: models.PLAN_FREE, RequestCount: 24})

	err := gate.Authorize(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 25, store.user.RequestCount)
}

func TestAuthorizeAtLimitDeniesWithoutMutation(t *testing.T) {
	gate, store := newTestGate(models.User{ID: 1, Plan: models.PLAN_FREE, RequestCount: 25})

	err := gate.Authorize(context.Background(), 1)

	require.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 25, store.user.RequestCount, "deny must not touch the counter")
}

func TestAuthorizeEnterpriseUnlimited(t *testing.T) {
	gate, store := newTestGate(models.User{ID: 1, Plan: models.PLAN_ENTERPRISE, RequestCount: 100000})

	err := gate.Authorize(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 100001, store.user.RequestCount)
}

func TestAuthorizeCycleRollover(t *testing.T) {
	yesterday := time.Now().Add(-24 * time.Hour)
	gate, store := newTestGate(models.User{
		ID:                    1,
		Plan:                  models.PLAN_STARTER,
		RequestCount:          25,
		SubscriptionExpiresAt: &yesterday,
	})

	before := time.Now()
	err := gate.Authorize(context.Background(), 1)
	after := time.Now()

	require.NoError(t, err)
	assert.Equal(t, 1, store.user.RequestCount, "counter resets before the fresh increment")

	require.NotNil(t, store.user.SubscriptionExpiresAt)
	expiry := *store.user.SubscriptionExpiresAt
	assert.False(t, expiry.Before(before.Add(CycleLength)), "expiry advanced by less than 30 days")
	assert.False(t, expiry.After(after.Add(CycleLength)), "expiry advanced by more than 30 days")
}

func TestAuthorizeRolloverThenDenyAtFreshLimit(t *testing.T) {
	yesterday := time.Now().Add(-24 * time.Hour)
	gate, store := newTestGate(models.User{
		ID:                    1,
		Plan:                  models.PLAN_FREE,
		RequestCount:          25,
		SubscriptionExpiresAt: &yesterday,
	})

	// After rollover the user has 25 fresh slots.
	for i := 0; i < 25; i++ {
		require.NoError(t, gate.Authorize(context.Background(), 1))
	}
	err := gate.Authorize(context.Background(), 1)

	require.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 25, store.user.RequestCount)
}

func TestAuthorizeConcurrentLastSlot(t *testing.T) {
	gate, store := newTestGate(models.User{ID: 1, Plan: models.PLAN_FREE, RequestCount: 24})

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- gate.Authorize(context.Background(), 1)
		}()
	}
	wg.Wait()
	close(results)

	admitted := 0
	for err := range results {
		if err == nil {
			admitted++
		} else {
			require.ErrorIs(t, err, ErrQuotaExceeded)
		}
	}
	assert.Equal(t, 1, admitted, "exactly one caller may take the last slot")
	assert.Equal(t, 25, store.user.RequestCount)
}
