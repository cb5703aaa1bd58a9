package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("test@example.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, "test@example.com", u.Email)
	assert.Equal(t, ROLE_USER, u.Role)
	assert.Equal(t, PLAN_FREE, u.Plan)
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestCreateUserInvalidEmail(t *testing.T) {
	_, err := CreateUser("not-an-email", "secret123")
	assert.Error(t, err)
}

func TestSetPassword(t *testing.T) {
	u := &User{Email: "test@example.com"}
	require.NoError(t, u.SetPassword("newpass1"))

	assert.True(t, u.CheckPassword("newpass1"))
	assert.False(t, u.CheckPassword("secret123"))
}

func TestResetPasswordToken(t *testing.T) {
	u := &User{Email: "test@example.com"}
	require.NoError(t, u.GenerateResetPasswordToken())
	require.NotEmpty(t, u.ResetPasswordToken)
	require.NotNil(t, u.ResetPasswordSentAt)

	assert.True(t, u.IsResetPasswordTokenValid(u.ResetPasswordToken))
	assert.False(t, u.IsResetPasswordTokenValid("other-token"))

	expired := time.Now().Add(-2 * time.Hour)
	u.ResetPasswordSentAt = &expired
	assert.False(t, u.IsResetPasswordTokenValid(u.ResetPasswordToken))

	u.ClearResetPasswordRequest()
	assert.Empty(t, u.ResetPasswordToken)
	assert.Nil(t, u.ResetPasswordSentAt)
	assert.False(t, u.IsResetPasswordTokenValid(""))
}
