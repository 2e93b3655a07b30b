package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/config"
	"github.com/dimitrije/teamboard/internal/middleware"
	"github.com/dimitrije/teamboard/internal/oauth"
	"github.com/dimitrije/teamboard/internal/services"
	"github.com/dimitrije/teamboard/pkg/dto"
)

const (
	stateTTL        = 10 * time.Minute
	authCodeTTL     = 30 * time.Second
	providerTimeout = 30 * time.Second
)

// AuthHandler runs the provider sign-in flow and the session token endpoints.
// Sign-in state and one-time codes are grants in the token store, so a flow
// may start and finish on different instances.
type AuthHandler struct {
	cfg          *config.Config
	providers    map[string]oauth.Provider
	userService  UserServiceInterface
	tokenService TokenServiceInterface
	jwtService   JWTServiceInterface
	log          logrus.FieldLogger
}

func NewAuthHandler(
	cfg *config.Config,
	userService UserServiceInterface,
	tokenService TokenServiceInterface,
	jwtService JWTServiceInterface,
	log logrus.FieldLogger,
) *AuthHandler {
	h := &AuthHandler{
		cfg:          cfg,
		providers:    make(map[string]oauth.Provider),
		userService:  userService,
		tokenService: tokenService,
		jwtService:   jwtService,
		log:          log,
	}

	if cfg.Google.ClientID != "" {
		h.providers["google"] = oauth.NewGoogleProvider(cfg.Google)
	}

	return h
}

func (h *AuthHandler) GetConsentURL(c *drift.Context) {
	provider := c.Param("provider")

	p, ok := h.providers[provider]
	if !ok {
		c.BadRequest("unsupported provider: " + provider)
		return
	}

	state, err := h.tokenService.IssueGrant(c.Request.Context(), services.GrantState, "", stateTTL)
	if err != nil {
		h.log.WithError(err).Error("failed to issue sign-in state")
		c.InternalServerError("failed to generate state")
		return
	}

	_ = c.JSON(200, dto.ConsentURLResponse{
		URL: p.GetConsentURL(state),
	})
}

// Callback completes the provider flow and hands the frontend a one-time
// code that ExchangeCode trades for a token pair.
func (h *AuthHandler) Callback(c *drift.Context) {
	provider := c.Param("provider")

	p, ok := h.providers[provider]
	if !ok {
		h.redirectWithError(c, "unsupported provider")
		return
	}

	state := c.QueryParam("state")
	if state == "" {
		h.redirectWithError(c, "missing state parameter")
		return
	}

	if _, err := h.tokenService.ConsumeGrant(c.Request.Context(), services.GrantState, state); err != nil {
		if errors.Is(err, services.ErrGrantExpired) {
			h.redirectWithError(c, "state expired")
		} else {
			h.redirectWithError(c, "invalid or expired state")
		}
		return
	}

	code := c.QueryParam("code")
	if code == "" {
		h.redirectWithError(c, "missing authorization code")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), providerTimeout)
	defer cancel()

	userInfo, err := p.ExchangeCode(ctx, code)
	if err != nil {
		h.log.WithError(err).WithField("provider", provider).Warn("provider code exchange failed")
		if errors.Is(err, oauth.ErrUnverifiedEmail) {
			h.redirectWithError(c, "email address is not verified")
		} else {
			h.redirectWithError(c, "failed to exchange code")
		}
		return
	}

	user, err := h.userService.FindOrCreateFromOAuth(ctx, userInfo)
	if err != nil {
		h.log.WithError(err).Error("failed to create user from sign-in")
		h.redirectWithError(c, "failed to create user")
		return
	}

	authCode, err := h.tokenService.IssueGrant(ctx, services.GrantCode, user.UID, authCodeTTL)
	if err != nil {
		h.redirectWithError(c, "failed to generate auth code")
		return
	}

	h.redirect(c, url.Values{"code": {authCode}})
}

func (h *AuthHandler) ExchangeCode(c *drift.Context) {
	var req dto.ExchangeCodeRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Code == "" {
		c.BadRequest("code is required")
		return
	}

	ctx := c.Request.Context()

	uid, err := h.tokenService.ConsumeGrant(ctx, services.GrantCode, req.Code)
	switch {
	case errors.Is(err, services.ErrGrantExpired):
		c.Unauthorized("code expired")
		return
	case errors.Is(err, services.ErrNotFound):
		c.Unauthorized("invalid or expired code")
		return
	case err != nil:
		h.log.WithError(err).Error("failed to redeem sign-in code")
		c.InternalServerError("failed to redeem code")
		return
	}

	user, err := h.userService.GetByID(ctx, uid)
	if err != nil {
		c.Unauthorized("user not found")
		return
	}

	h.issueTokens(c, user.UID, user.Email)
}

// RefreshToken rotates a refresh token: the presented one is revoked and a
// fresh pair issued.
func (h *AuthHandler) RefreshToken(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RefreshToken == "" {
		c.BadRequest("refresh_token is required")
		return
	}

	uid, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.Unauthorized("invalid refresh token")
		return
	}

	tokenHash := services.HashToken(req.RefreshToken)
	ctx := c.Request.Context()

	storedUID, err := h.tokenService.ValidateRefreshToken(ctx, tokenHash)
	if err != nil || storedUID != uid {
		c.Unauthorized("refresh token not found or expired")
		return
	}

	user, err := h.userService.GetByID(ctx, uid)
	if err != nil {
		c.Unauthorized("user not found")
		return
	}

	if err := h.tokenService.RevokeRefreshToken(ctx, tokenHash); err != nil {
		c.InternalServerError("failed to revoke old token")
		return
	}

	h.issueTokens(c, user.UID, user.Email)
}

func (h *AuthHandler) issueTokens(c *drift.Context, uid, email string) {
	tokenPair, err := h.jwtService.GenerateTokenPair(uid, email)
	if err != nil {
		c.InternalServerError("failed to generate tokens")
		return
	}

	expiresAt := time.Now().Add(h.jwtService.RefreshExpiry())
	err = h.tokenService.StoreRefreshToken(c.Request.Context(), uid, services.HashToken(tokenPair.RefreshToken), expiresAt)
	if err != nil {
		h.log.WithError(err).WithField("uid", uid).Error("failed to store refresh token")
		c.InternalServerError("failed to store refresh token")
		return
	}

	_ = c.JSON(200, dto.TokenResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	})
}

// Logout revokes the presented refresh token. Unknown tokens are ignored.
func (h *AuthHandler) Logout(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RefreshToken != "" {
		_ = h.tokenService.RevokeRefreshToken(c.Request.Context(), services.HashToken(req.RefreshToken))
	}

	_ = c.JSON(200, dto.MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) LogoutAll(c *drift.Context) {
	uid := middleware.GetUserID(c)
	if uid == "" {
		c.Unauthorized("not authenticated")
		return
	}

	if err := h.tokenService.RevokeAllUserTokens(c.Request.Context(), uid); err != nil {
		c.InternalServerError("failed to revoke tokens")
		return
	}

	_ = c.JSON(200, dto.MessageResponse{Message: "all sessions logged out"})
}

func (h *AuthHandler) redirectWithError(c *drift.Context, msg string) {
	h.redirect(c, url.Values{"error": {msg}})
}

func (h *AuthHandler) redirect(c *drift.Context, query url.Values) {
	c.Response.Header().Set("Location", h.cfg.FrontendCallbackURL+"?"+query.Encode())
	c.Response.WriteHeader(http.StatusFound)
}
