package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "teamboard"

// Token kinds, carried in the audience so one kind is never accepted as the
// other.
const (
	audienceAccess  = "teamboard:access"
	audienceRefresh = "teamboard:refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// JWTService signs the session tokens handed out after sign-in. The access
// token carries the member's uid and email; the refresh token only the uid.
type JWTService struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

func NewJWTService(secret string, accessExpiry, refreshExpiry time.Duration) *JWTService {
	return &JWTService{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}
}

func (s *JWTService) registered(uid, audience string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
		Subject:   uid,
		Audience:  jwt.ClaimStrings{audience},
		ID:        uuid.NewString(),
	}
}

func (s *JWTService) GenerateTokenPair(uid, email string) (*TokenPair, error) {
	if uid == "" {
		return nil, fmt.Errorf("cannot sign token without uid: %w", ErrInvalidToken)
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UID:              uid,
		Email:            email,
		RegisteredClaims: s.registered(uid, audienceAccess, s.accessExpiry),
	}).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshClaims := s.registered(uid, audienceRefresh, s.refreshExpiry)
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessExpiry.Seconds()),
	}, nil
}

func (s *JWTService) parse(tokenString, audience string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(tokenString, audienceAccess, claims); err != nil {
		return nil, err
	}
	if claims.UID == "" {
		return nil, fmt.Errorf("%w: missing uid", ErrInvalidToken)
	}
	return claims, nil
}

// ValidateRefreshToken returns the uid the refresh token was issued to.
// Revocation is checked separately against the token store.
func (s *JWTService) ValidateRefreshToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if err := s.parse(tokenString, audienceRefresh, claims); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (s *JWTService) RefreshExpiry() time.Duration {
	return s.refreshExpiry
}

// HashToken is the key refresh tokens are stored under.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
