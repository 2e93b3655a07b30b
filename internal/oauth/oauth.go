package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// identityNamespace scopes derived user ids to this application.
var identityNamespace = uuid.MustParse("6f1c2a8e-4b7d-5e90-a1c3-2d4e5f607182")

// UserInfo is the identity established by a provider sign-in.
type UserInfo struct {
	Email     string
	Name      string
	AvatarURL string
	ID        string
	Provider  string
}

// UID is stable for a given provider account across sign-ins.
func (u *UserInfo) UID() string {
	return uuid.NewSHA1(identityNamespace, []byte(u.Provider+":"+u.ID)).String()
}

// DisplayName falls back to the email address when the provider has no name.
func (u *UserInfo) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

type Provider interface {
	GetConsentURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*UserInfo, error)
	Name() string
}

func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
