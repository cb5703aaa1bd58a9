package connect

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nmarkov/adpulse/app/repository"
	"github.com/nmarkov/adpulse/internal/pkg/cache"
	"github.com/nmarkov/adpulse/internal/pkg/env"
)

// stateTTL bounds how long an authorization round-trip may take.
const stateTTL = 10 * time.Minute

type stateClaims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

// EncodeState packs the user id into a signed, short-lived state value
// carried through the provider's redirect.
func EncodeState(userID uint) (string, error) {
	now := time.Now()
	claims := stateClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(env.GetEnv("JWT_SECRET", "")))
}

// DecodeState verifies a state value produced by EncodeState and returns
// the user id it carries.
func DecodeState(state string) (uint, error) {
	claims := &stateClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(env.GetEnv("JWT_SECRET", "")), nil
	})
	if err != nil || !token.Valid {
		return 0, ErrUserNotFound
	}
	return claims.UserID, nil
}

// callbackUser resolves the state parameter to an existing user. Unknown
// or deleted users fail closed before any token is persisted.
func callbackUser(users repository.UserRepository, state string) (uint, error) {
	userID, err := DecodeState(state)
	if err != nil {
		return 0, err
	}
	if err := verifyUser(users, userID); err != nil {
		return 0, err
	}
	return userID, nil
}

// verifyUser confirms the user id carried through a callback still names
// a live account.
func verifyUser(users repository.UserRepository, userID uint) error {
	if _, err := users.GetByID(userID); err != nil {
		return ErrUserNotFound
	}
	return nil
}

// RequestTokenStore keeps the OAuth 1.0a request-token to user binding
// between the two legs of the flow. Entries live for stateTTL and are
// consumed exactly once.
type RequestTokenStore interface {
	Bind(requestToken, secret string, userID uint) error
	Consume(requestToken string) (secret string, userID uint, err error)
}

type cacheRequestTokenStore struct{}

// NewRequestTokenStore returns the Redis-backed store used in production.
func NewRequestTokenStore() RequestTokenStore {
	return cacheRequestTokenStore{}
}

func (cacheRequestTokenStore) Bind(requestToken, secret string, userID uint) error {
	key := "oauth1_request:" + requestToken
	return cache.Set(key, fmt.Sprintf("%d:%s", userID, secret), stateTTL)
}

func (cacheRequestTokenStore) Consume(requestToken string) (string, uint, error) {
	key := "oauth1_request:" + requestToken
	val, err := cache.GetDel(key)
	if err != nil {
		return "", 0, ErrUserNotFound
	}
	var userID uint
	var secret string
	if _, err := fmt.Sscanf(val, "%d:%s", &userID, &secret); err != nil {
		return "", 0, ErrUserNotFound
	}
	return secret, userID, nil
}
