package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/models"
)

type MoodService struct {
	store docstore.Gateway
}

func NewMoodService(store docstore.Gateway) *MoodService {
	return &MoodService{store: store}
}

// Set records the actor's current mood in the project, replacing any earlier one.
func (s *MoodService) Set(ctx context.Context, actor Actor, projectID, mood, note string) (*models.Mood, error) {
	if !models.ValidMood(mood) {
		return nil, validationError(fmt.Sprintf("unknown mood %q", mood))
	}

	m := &models.Mood{
		ID:        models.MoodID(projectID, actor.UID),
		User:      actor.UID,
		Name:      actor.Name,
		Mood:      mood,
		Note:      strings.TrimSpace(note),
		ProjectID: projectID,
	}
	if err := s.store.Set(ctx, models.CollectionMoods, m.ID, m.ToDoc()); err != nil {
		return nil, fmt.Errorf("failed to set mood: %w", err)
	}

	snap, err := s.store.Get(ctx, models.CollectionMoods, m.ID)
	if err != nil {
		return nil, storeError(err, "mood %s", m.ID)
	}
	return models.MoodFromSnapshot(*snap), nil
}

// Delete clears the actor's own mood; other users' moods are out of reach by key.
func (s *MoodService) Delete(ctx context.Context, actor Actor, projectID string) error {
	if err := s.store.Delete(ctx, models.CollectionMoods, models.MoodID(projectID, actor.UID)); err != nil {
		return fmt.Errorf("failed to delete mood: %w", err)
	}
	return nil
}

func moodsQuery(projectID string) docstore.Query {
	return docstore.Collection(models.CollectionMoods).
		Where("projectId", docstore.OpEqual, projectID).
		OrderBy("updatedAt", docstore.Desc)
}

func (s *MoodService) List(ctx context.Context, projectID string) ([]*models.Mood, error) {
	snaps, err := s.store.Query(ctx, moodsQuery(projectID))
	if err != nil {
		return nil, err
	}
	return models.MoodsFromSnapshots(snaps), nil
}

func (s *MoodService) Subscribe(ctx context.Context, projectID string, fn func([]*models.Mood, error)) (docstore.Unsubscribe, error) {
	return s.store.Subscribe(ctx, moodsQuery(projectID), func(rows []docstore.Snapshot, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(models.MoodsFromSnapshots(rows), nil)
	})
}
