package middleware

import (
	"strings"

	"github.com/m1z23r/drift/pkg/drift"

	"github.com/dimitrije/teamboard/internal/services"
)

const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"

	// AccessTokenParam carries the token for clients that cannot set headers,
	// such as browser EventSource connections.
	AccessTokenParam = "access_token"
)

func Auth(jwtService *services.JWTService) drift.HandlerFunc {
	return func(c *drift.Context) {
		token, msg := bearerToken(c)
		if token == "" {
			c.Unauthorized(msg)
			return
		}

		claims, err := jwtService.ValidateAccessToken(token)
		if err != nil || claims.UID == "" {
			c.Unauthorized("invalid or expired token")
			return
		}

		c.Set(UserIDKey, claims.UID)
		c.Set(UserEmailKey, claims.Email)

		c.Next()
	}
}

func bearerToken(c *drift.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.QueryParam(AccessTokenParam); token != "" {
			return token, ""
		}
		return "", "missing authorization header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", "invalid authorization header format"
	}
	return parts[1], ""
}

func GetUserID(c *drift.Context) string {
	if id, ok := c.Get(UserIDKey); ok {
		if uid, ok := id.(string); ok {
			return uid
		}
	}
	return ""
}

func GetUserEmail(c *drift.Context) string {
	if email, ok := c.Get(UserEmailKey); ok {
		if e, ok := email.(string); ok {
			return e
		}
	}
	return ""
}
