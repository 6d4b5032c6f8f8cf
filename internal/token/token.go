// Package token issues and verifies the signed access and refresh tokens
// backing the session lifecycle.
//
// Access tokens are short-lived and never persisted: they cannot be revoked
// before expiry. Refresh tokens are single-use and single-session: the one
// value stored on the user record is the only one Rotate accepts, and every
// issue overwrites it.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	nesterrs "github.com/adityarao312/feednest/internal/errors"
	"github.com/adityarao312/feednest/internal/feednest"
)

const (
	accessName  = "feednest_access"
	refreshName = "feednest_refresh"
)

// Pair is one access token and one refresh token, issued together.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

type payload struct {
	UserID    string
	ExpiresAt time.Time
}

type Config struct {
	AccessHashKey   []byte
	AccessBlockKey  []byte
	RefreshHashKey  []byte
	RefreshBlockKey []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service signs, verifies, and rotates token pairs against the stored
// per-user refresh token.
type Service struct {
	users feednest.UserService

	access  *securecookie.SecureCookie
	refresh *securecookie.SecureCookie

	accessTTL  time.Duration
	refreshTTL time.Duration

	now func() time.Time
}

func NewService(cfg Config, users feednest.UserService) *Service {
	access := securecookie.New(cfg.AccessHashKey, cfg.AccessBlockKey)
	refresh := securecookie.New(cfg.RefreshHashKey, cfg.RefreshBlockKey)
	// Expiry lives in the payload; disable securecookie's own age check.
	access.MaxAge(0)
	refresh.MaxAge(0)

	return &Service{
		users:      users,
		access:     access,
		refresh:    refresh,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
}

// IssuePair generates a fresh token pair for the user and persists the
// refresh token as the single current value, invalidating any prior one.
func (s *Service) IssuePair(ctx context.Context, userID string) (Pair, error) {
	now := s.now()

	accessToken, err := s.access.Encode(accessName, payload{
		UserID:    userID,
		ExpiresAt: now.Add(s.accessTTL),
	})
	if err != nil {
		return Pair{}, nesterrs.E(fmt.Errorf("error signing access token: %w", err))
	}

	refreshToken, err := s.refresh.Encode(refreshName, payload{
		UserID:    userID,
		ExpiresAt: now.Add(s.refreshTTL),
	})
	if err != nil {
		return Pair{}, nesterrs.E(fmt.Errorf("error signing refresh token: %w", err))
	}

	if err := s.users.UpdateUserRefreshToken(ctx, userID, &refreshToken); err != nil {
		return Pair{}, nesterrs.E(fmt.Errorf("error storing refresh token: %w", err))
	}

	return Pair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Verify checks an access token's signature and expiry and returns the user
// id it was issued for.
func (s *Service) Verify(accessToken string) (string, error) {
	var p payload
	if err := s.access.Decode(accessName, accessToken, &p); err != nil {
		return "", nesterrs.E("invalid access token", http.StatusUnauthorized)
	}
	if s.now().After(p.ExpiresAt) {
		return "", nesterrs.E("access token expired", http.StatusUnauthorized)
	}

	return p.UserID, nil
}

// Rotate exchanges a presented refresh token for a new pair.
//
// The presented token must verify and match the stored value byte for byte:
// anything else, including reuse of a rotated-out token, is treated as a
// logged-out session.
func (s *Service) Rotate(ctx context.Context, presented string) (Pair, error) {
	var p payload
	if err := s.refresh.Decode(refreshName, presented, &p); err != nil {
		return Pair{}, nesterrs.E("invalid refresh token", http.StatusUnauthorized)
	}
	if s.now().After(p.ExpiresAt) {
		return Pair{}, nesterrs.E("refresh token expired", http.StatusUnauthorized)
	}

	usr, err := s.users.User(ctx, p.UserID)
	if errors.Is(err, feednest.ErrNotFound) {
		return Pair{}, nesterrs.E("invalid refresh token", http.StatusUnauthorized)
	}
	if err != nil {
		return Pair{}, nesterrs.E(fmt.Errorf("error fetching user: %w", err))
	}
	if usr.RefreshToken == nil || *usr.RefreshToken != presented {
		return Pair{}, nesterrs.E("refresh token is no longer valid", http.StatusUnauthorized)
	}

	return s.IssuePair(ctx, usr.ID)
}

// Revoke clears the stored refresh token, ending the session.
func (s *Service) Revoke(ctx context.Context, userID string) error {
	if err := s.users.UpdateUserRefreshToken(ctx, userID, nil); err != nil && !errors.Is(err, feednest.ErrNotFound) {
		return nesterrs.E(fmt.Errorf("error revoking refresh token: %w", err))
	}

	return nil
}
