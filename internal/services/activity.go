package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/models"
)

// Actor is the signed-in user performing a mutation.
type Actor struct {
	UID  string
	Name string
}

type ActivityService struct {
	store docstore.Gateway
	log   logrus.FieldLogger
}

func NewActivityService(store docstore.Gateway, log logrus.FieldLogger) *ActivityService {
	return &ActivityService{store: store, log: log}
}

func (s *ActivityService) Append(ctx context.Context, projectID, uid, action string) (string, error) {
	entry := &models.ActivityEntry{ProjectID: projectID, User: uid, Action: action}
	id, err := s.store.Create(ctx, models.CollectionActivities, entry.ToDoc())
	if err != nil {
		return "", fmt.Errorf("failed to append activity: %w", err)
	}
	return id, nil
}

func (s *ActivityService) feed(projectID string) docstore.Query {
	return docstore.Collection(models.CollectionActivities).
		Where("projectId", docstore.OpEqual, projectID).
		OrderBy("timestamp", docstore.Desc)
}

func (s *ActivityService) List(ctx context.Context, projectID string) ([]*models.ActivityEntry, error) {
	snaps, err := s.store.Query(ctx, s.feed(projectID))
	if err != nil {
		return nil, err
	}
	return models.ActivitiesFromSnapshots(snaps), nil
}

// Subscribe delivers the project's feed, newest first, on every change.
func (s *ActivityService) Subscribe(ctx context.Context, projectID string, fn func([]*models.ActivityEntry, error)) (docstore.Unsubscribe, error) {
	return s.store.Subscribe(ctx, s.feed(projectID), func(rows []docstore.Snapshot, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(models.ActivitiesFromSnapshots(rows), nil)
	})
}
