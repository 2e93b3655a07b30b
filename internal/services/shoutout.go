package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/models"
)

type ShoutoutService struct {
	store docstore.Gateway
	log   logrus.FieldLogger
}

func NewShoutoutService(store docstore.Gateway, log logrus.FieldLogger) *ShoutoutService {
	return &ShoutoutService{store: store, log: log}
}

type ShoutoutInput struct {
	Message string
	ToUser  *string
	ToName  string
}

func (s *ShoutoutService) Add(ctx context.Context, author Actor, projectID string, input ShoutoutInput) (*models.Shoutout, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, validationError("message is required")
	}
	toName := strings.TrimSpace(input.ToName)
	if toName == "" {
		toName = models.DefaultShoutoutTarget
	}
	toUser := input.ToUser
	if toUser != nil && *toUser == "" {
		toUser = nil
	}

	shoutout := &models.Shoutout{
		ProjectID: projectID,
		Message:   message,
		ToUser:    toUser,
		ToName:    toName,
		FromUser:  author.UID,
		FromName:  author.Name,
	}
	id, err := s.store.Create(ctx, models.CollectionShoutouts, shoutout.ToDoc())
	if err != nil {
		return nil, fmt.Errorf("failed to add shoutout: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *ShoutoutService) Get(ctx context.Context, id string) (*models.Shoutout, error) {
	snap, err := s.store.Get(ctx, models.CollectionShoutouts, id)
	if err != nil {
		return nil, storeError(err, "shoutout %s", id)
	}
	return models.ShoutoutFromSnapshot(*snap), nil
}

func (s *ShoutoutService) authored(ctx context.Context, actor Actor, id string) (*models.Shoutout, error) {
	shoutout, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if shoutout.FromUser != actor.UID {
		return nil, fmt.Errorf("shoutout %s belongs to another user: %w", id, ErrForbidden)
	}
	return shoutout, nil
}

// Update rewrites the message and recipient name; only the author may.
func (s *ShoutoutService) Update(ctx context.Context, actor Actor, id, message, toName string) (*models.Shoutout, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, validationError("message is required")
	}
	if _, err := s.authored(ctx, actor, id); err != nil {
		return nil, err
	}
	toName = strings.TrimSpace(toName)
	if toName == "" {
		toName = models.DefaultShoutoutTarget
	}
	if err := s.store.Update(ctx, models.CollectionShoutouts, id, docstore.Doc{"message": message, "toName": toName}); err != nil {
		return nil, storeError(err, "failed to update shoutout %s", id)
	}
	return s.Get(ctx, id)
}

func (s *ShoutoutService) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.authored(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, models.CollectionShoutouts, id); err != nil {
		return fmt.Errorf("failed to delete shoutout: %w", err)
	}
	return nil
}

// Cheer adds one to the shoutout's counter. Concurrent cheers never lose a count.
func (s *ShoutoutService) Cheer(ctx context.Context, id string) error {
	if err := s.store.Increment(ctx, models.CollectionShoutouts, id, "cheers", 1); err != nil {
		return storeError(err, "failed to cheer shoutout %s", id)
	}
	return nil
}

func wallQuery(projectID string) docstore.Query {
	return docstore.Collection(models.CollectionShoutouts).
		Where("projectId", docstore.OpEqual, projectID).
		OrderBy("timestamp", docstore.Desc)
}

func (s *ShoutoutService) List(ctx context.Context, projectID string) ([]*models.Shoutout, error) {
	snaps, err := s.store.Query(ctx, wallQuery(projectID))
	if err != nil {
		return nil, err
	}
	return models.ShoutoutsFromSnapshots(snaps), nil
}

func (s *ShoutoutService) Subscribe(ctx context.Context, projectID string, fn func([]*models.Shoutout, error)) (docstore.Unsubscribe, error) {
	return s.store.Subscribe(ctx, wallQuery(projectID), func(rows []docstore.Snapshot, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(models.ShoutoutsFromSnapshots(rows), nil)
	})
}
