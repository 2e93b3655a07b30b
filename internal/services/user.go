package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/models"
	"github.com/dimitrije/teamboard/internal/oauth"
)

type UserService struct {
	store docstore.Gateway
	log   logrus.FieldLogger
}

func NewUserService(store docstore.Gateway, log logrus.FieldLogger) *UserService {
	return &UserService{store: store, log: log}
}

// EnsureUser creates the user document on first sign-in and leaves an
// existing one untouched.
func (s *UserService) EnsureUser(ctx context.Context, uid, name, email string) (*models.User, error) {
	existing, err := s.GetByID(ctx, uid)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user := &models.User{UID: uid, Name: name, Email: email, Projects: []string{}, Points: map[string]int{}}
	if err := s.store.Set(ctx, models.CollectionUsers, uid, user.ToDoc()); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// FindOrCreateFromOAuth ensures the signed-in identity has a user document and
// refreshes its email and name when the provider reports new values.
func (s *UserService) FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.User, error) {
	user, err := s.EnsureUser(ctx, info.UID(), info.DisplayName(), info.Email)
	if err != nil {
		return nil, err
	}

	patch := docstore.Doc{}
	if info.Email != "" && user.Email != info.Email {
		patch["email"] = info.Email
		user.Email = info.Email
	}
	if user.Name == "" && info.DisplayName() != "" {
		patch["name"] = info.DisplayName()
		user.Name = info.DisplayName()
	}
	if user.Avatar == "" && info.AvatarURL != "" {
		patch["avatar"] = info.AvatarURL
		user.Avatar = info.AvatarURL
	}
	if len(patch) > 0 {
		if err := s.store.Update(ctx, models.CollectionUsers, user.UID, patch); err != nil {
			s.log.WithError(err).WithField("uid", user.UID).Warn("failed to refresh profile from provider")
		}
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, uid string) (*models.User, error) {
	snap, err := s.store.Get(ctx, models.CollectionUsers, uid)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", uid, ErrNotFound)
		}
		return nil, err
	}
	return models.UserFromSnapshot(*snap), nil
}

// GetByIDs returns the users that exist among uids, in the order given.
func (s *UserService) GetByIDs(ctx context.Context, uids []string) ([]*models.User, error) {
	seen := make(map[string]bool, len(uids))
	users := make([]*models.User, 0, len(uids))
	for _, uid := range uids {
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		user, err := s.GetByID(ctx, uid)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// GetByEmail matches the address exactly.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	snaps, err := s.store.Query(ctx, docstore.Collection(models.CollectionUsers).
		Where("email", docstore.OpEqual, strings.TrimSpace(email)).
		Limit(1))
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no user with email %s: %w", email, ErrNotFound)
	}
	return models.UserFromSnapshot(snaps[0]), nil
}

type ProfileUpdate struct {
	Name   *string
	Avatar *string
	Role   *string
}

func (s *UserService) UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (*models.User, error) {
	patch := docstore.Doc{}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, validationError("name is required")
		}
		patch["name"] = name
	}
	if update.Avatar != nil {
		patch["avatar"] = strings.TrimSpace(*update.Avatar)
	}
	if update.Role != nil {
		patch["role"] = strings.TrimSpace(*update.Role)
	}

	if len(patch) > 0 {
		if err := s.store.Update(ctx, models.CollectionUsers, uid, patch); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return nil, fmt.Errorf("user %s: %w", uid, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	return s.GetByID(ctx, uid)
}
