package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/models"
)

type CascadeService struct {
	store docstore.Gateway
	log   logrus.FieldLogger
}

func NewCascadeService(store docstore.Gateway, log logrus.FieldLogger) *CascadeService {
	return &CascadeService{store: store, log: log}
}

// DeleteProject removes the project's dependent documents, then the project,
// then unlinks it from its members. Dependent collections are cleared
// independently; the project document is only removed once all of them are
// empty. Unlinking is best-effort. Nothing already deleted is restored.
func (s *CascadeService) DeleteProject(ctx context.Context, projectID string) error {
	log := s.log.WithField("project_id", projectID)
	var project *models.Project

	err := NewSaga("delete project", log).
		Must("read project", func(ctx context.Context) error {
			snap, err := s.store.Get(ctx, models.CollectionProjects, projectID)
			if err != nil {
				return err
			}
			project = models.ProjectFromSnapshot(*snap)
			return nil
		}).
		Must("delete dependents", func(ctx context.Context) error {
			return s.deleteDependents(ctx, projectID, log)
		}).
		Must("delete project", func(ctx context.Context) error {
			return s.store.Delete(ctx, models.CollectionProjects, projectID)
		}).
		Try("unlink members", func(ctx context.Context) error {
			return s.unlinkMembers(ctx, project, log)
		}).
		Run(ctx)
	if err != nil {
		return storeError(err, "failed to delete project %s", projectID)
	}

	log.Info("project deleted")
	return nil
}

func (s *CascadeService) deleteDependents(ctx context.Context, projectID string, log logrus.FieldLogger) error {
	var g errgroup.Group
	for _, collection := range models.ProjectScoped {
		g.Go(func() error {
			n, err := s.deleteWhereProject(ctx, collection, projectID)
			entry := log.WithFields(logrus.Fields{"collection": collection, "deleted": n})
			if err != nil {
				entry.WithError(err).Error("cascade stage failed")
				return fmt.Errorf("%s: %w", collection, err)
			}
			entry.Debug("cascade stage done")
			return nil
		})
	}
	return g.Wait()
}

func (s *CascadeService) deleteWhereProject(ctx context.Context, collection, projectID string) (int, error) {
	snaps, err := s.store.Query(ctx, docstore.Collection(collection).Where("projectId", docstore.OpEqual, projectID))
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, snap := range snaps {
		if err := s.store.Delete(ctx, collection, snap.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// unlinkMembers drops the project from every member's projects list and
// points map. Users without a document are skipped.
func (s *CascadeService) unlinkMembers(ctx context.Context, project *models.Project, log logrus.FieldLogger) error {
	uids := project.Members
	if project.CreatedBy != "" && !project.IsMember(project.CreatedBy) {
		uids = append(uids, project.CreatedBy)
	}

	var errs []error
	for _, uid := range uids {
		err := s.store.Update(ctx, models.CollectionUsers, uid, docstore.Doc{
			"projects":                     docstore.ArrayRemove(project.ID),
			models.PointsField(project.ID): docstore.DeleteField,
		})
		if err == nil || errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		log.WithError(err).WithField("uid", uid).Warn("failed to unlink member")
		errs = append(errs, fmt.Errorf("%s: %w", uid, err))
	}
	return errors.Join(errs...)
}
