package connect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
)

type fakeUserRepo struct {
	repository.UserRepository
	users map[uint]*models.User
}

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func TestStateRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	state, err := EncodeState(42)
	require.NoError(t, err)
	require.NotEmpty(t, state)

	userID, err := DecodeState(state)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestDecodeStateRejectsTampering(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	state, err := EncodeState(42)
	require.NoError(t, err)

	_, err = DecodeState(state + "x")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDecodeStateRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	state, err := EncodeState(7)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "other-secret")
	_, err = DecodeState(state)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDecodeStateRejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	for _, state := range []string{"", "not-a-token", "a.b.c"} {
		_, err := DecodeState(state)
		assert.ErrorIs(t, err, ErrUserNotFound, "state %q", state)
	}
}

func TestCallbackUserResolvesExistingUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	users := &fakeUserRepo{users: map[uint]*models.User{42: {ID: 42}}}

	state, err := EncodeState(42)
	require.NoError(t, err)

	userID, err := callbackUser(users, state)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestCallbackUserRejectsDeletedUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	users := &fakeUserRepo{users: map[uint]*models.User{}}

	state, err := EncodeState(999999)
	require.NoError(t, err)

	_, err = callbackUser(users, state)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
