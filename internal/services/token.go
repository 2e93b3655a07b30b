package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/models"
	"github.com/dimitrije/teamboard/internal/oauth"
)

// TokenService keeps refresh tokens by hash so they can be revoked, and the
// short-lived grants of the sign-in flow. Both live in the document store so
// any instance can finish a flow another one started.
type TokenService struct {
	store docstore.Gateway
	now   func() time.Time
}

func NewTokenService(store docstore.Gateway) *TokenService {
	return &TokenService{store: store, now: time.Now}
}

func (s *TokenService) StoreRefreshToken(ctx context.Context, uid, tokenHash string, expiresAt time.Time) error {
	return s.store.Set(ctx, models.CollectionRefreshTokens, tokenHash, docstore.Doc{
		"uid":       uid,
		"expiresAt": expiresAt.UTC(),
		"createdAt": docstore.ServerTimestamp,
	})
}

func (s *TokenService) ValidateRefreshToken(ctx context.Context, tokenHash string) (string, error) {
	snap, err := s.store.Get(ctx, models.CollectionRefreshTokens, tokenHash)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return "", fmt.Errorf("refresh token: %w", ErrNotFound)
		}
		return "", err
	}
	if !snap.Data.Time("expiresAt").After(s.now()) {
		return "", fmt.Errorf("refresh token expired: %w", ErrNotFound)
	}
	return snap.Data.String("uid"), nil
}

func (s *TokenService) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	return s.store.Delete(ctx, models.CollectionRefreshTokens, tokenHash)
}

func (s *TokenService) RevokeAllUserTokens(ctx context.Context, uid string) error {
	return s.deleteMatching(ctx, docstore.Collection(models.CollectionRefreshTokens).
		Where("uid", docstore.OpEqual, uid))
}

// CleanupExpired drops expired refresh tokens and sign-in grants.
func (s *TokenService) CleanupExpired(ctx context.Context) error {
	now := s.now().UTC()
	if err := s.deleteMatching(ctx, docstore.Collection(models.CollectionRefreshTokens).
		Where("expiresAt", docstore.OpLess, now)); err != nil {
		return err
	}
	return s.deleteMatching(ctx, docstore.Collection(models.CollectionSignInGrants).
		Where("expiresAt", docstore.OpLess, now))
}

// GrantKind separates the two single-use values of the sign-in flow.
type GrantKind string

const (
	// GrantState guards the provider redirect against forgery.
	GrantState GrantKind = "state"
	// GrantCode is what the frontend trades for a token pair.
	GrantCode GrantKind = "code"
)

var ErrGrantExpired = errors.New("grant expired")

// IssueGrant stores a random single-use key of the given kind, optionally
// bound to uid, and returns it.
func (s *TokenService) IssueGrant(ctx context.Context, kind GrantKind, uid string, ttl time.Duration) (string, error) {
	key, err := oauth.GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", kind, err)
	}
	err = s.store.Set(ctx, models.CollectionSignInGrants, HashToken(key), docstore.Doc{
		"kind":      string(kind),
		"uid":       uid,
		"expiresAt": s.now().Add(ttl).UTC(),
		"consumed":  false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store %s: %w", kind, err)
	}
	return key, nil
}

// ConsumeGrant redeems key exactly once and returns the uid it was bound to.
// Unknown, reused or wrong-kind keys fail with ErrNotFound; a key redeemed
// after its deadline fails with ErrGrantExpired.
func (s *TokenService) ConsumeGrant(ctx context.Context, kind GrantKind, key string) (string, error) {
	id := HashToken(key)
	claimed, err := s.store.UpdateWhere(ctx, models.CollectionSignInGrants, id,
		[]docstore.Predicate{
			docstore.Where("kind", docstore.OpEqual, string(kind)),
			docstore.Where("consumed", docstore.OpNotEqual, true),
		},
		docstore.Doc{"consumed": true})
	if err != nil {
		return "", err
	}
	if !claimed {
		return "", fmt.Errorf("%s: %w", kind, ErrNotFound)
	}

	snap, err := s.store.Get(ctx, models.CollectionSignInGrants, id)
	if err != nil {
		return "", err
	}
	_ = s.store.Delete(ctx, models.CollectionSignInGrants, id)

	if !snap.Data.Time("expiresAt").After(s.now()) {
		return "", fmt.Errorf("%s: %w", kind, ErrGrantExpired)
	}
	return snap.Data.String("uid"), nil
}

func (s *TokenService) deleteMatching(ctx context.Context, q docstore.Query) error {
	snaps, err := s.store.Query(ctx, q)
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		if err := s.store.Delete(ctx, q.Collection, snap.ID); err != nil {
			return err
		}
	}
	return nil
}
