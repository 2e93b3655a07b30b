package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/models"
)

type ProjectService struct {
	store docstore.Gateway
	log   logrus.FieldLogger
}

func NewProjectService(store docstore.Gateway, log logrus.FieldLogger) *ProjectService {
	return &ProjectService{store: store, log: log}
}

type ProjectInput struct {
	Title       string
	Description string
	StartDate   string
	EndDate     string
}

// NewInviteCode returns an 8 character token. Collisions are not retried.
func NewInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Create stores the project with the creator as its only member and leader,
// then links it onto the creator's user document. The link is best-effort;
// a project left without it is picked up again through the createdBy query.
func (s *ProjectService) Create(ctx context.Context, creator Actor, input ProjectInput) (*models.Project, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationError("title is required")
	}

	project := &models.Project{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Members:     []string{creator.UID},
		Roles:       map[string]string{creator.UID: models.RoleLeader},
		CreatedBy:   creator.UID,
		InviteCode:  NewInviteCode(),
		Progress:    0,
	}

	err := NewSaga("create project", s.log).
		Must("create", func(ctx context.Context) error {
			id, err := s.store.Create(ctx, models.CollectionProjects, project.ToDoc())
			if err != nil {
				return err
			}
			project.ID = id
			return nil
		}).
		Try("link creator", func(ctx context.Context) error {
			return s.store.Update(ctx, models.CollectionUsers, creator.UID, docstore.Doc{
				"projects": docstore.ArrayUnion(project.ID),
			})
		}).
		Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return s.Get(ctx, project.ID)
}

func (s *ProjectService) Get(ctx context.Context, projectID string) (*models.Project, error) {
	snap, err := s.store.Get(ctx, models.CollectionProjects, projectID)
	if err != nil {
		return nil, storeError(err, "project %s", projectID)
	}
	return models.ProjectFromSnapshot(*snap), nil
}

// RequireMember returns the project when uid belongs to it.
func (s *ProjectService) RequireMember(ctx context.Context, projectID, uid string) (*models.Project, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsMember(uid) && project.CreatedBy != uid {
		return nil, fmt.Errorf("not a member of project %s: %w", projectID, ErrForbidden)
	}
	return project, nil
}

// RequireLeader returns the project when uid created it or holds the leader role.
func (s *ProjectService) RequireLeader(ctx context.Context, projectID, uid string) (*models.Project, error) {
	project, err := s.RequireMember(ctx, projectID, uid)
	if err != nil {
		return nil, err
	}
	if project.CreatedBy != uid && project.RoleOf(uid) != models.RoleLeader {
		return nil, fmt.Errorf("leader role required: %w", ErrForbidden)
	}
	return project, nil
}

type ProjectUpdate struct {
	Title       *string
	Description *string
}

func (s *ProjectService) Update(ctx context.Context, projectID string, update ProjectUpdate) (*models.Project, error) {
	patch := docstore.Doc{}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, validationError("title is required")
		}
		patch["title"] = title
	}
	if update.Description != nil {
		patch["description"] = strings.TrimSpace(*update.Description)
	}

	if len(patch) > 0 {
		if err := s.store.Update(ctx, models.CollectionProjects, projectID, patch); err != nil {
			return nil, storeError(err, "failed to update project %s", projectID)
		}
	}
	return s.Get(ctx, projectID)
}

func (s *ProjectService) memberQuery(uid string) docstore.Query {
	return docstore.Collection(models.CollectionProjects).
		Where("members", docstore.OpArrayContains, uid).
		OrderBy("createdAt", docstore.Desc)
}

func (s *ProjectService) creatorQuery(uid string) docstore.Query {
	return docstore.Collection(models.CollectionProjects).
		Where("createdBy", docstore.OpEqual, uid).
		OrderBy("createdAt", docstore.Desc)
}

// ListForUser returns every project uid belongs to or created, newest first.
func (s *ProjectService) ListForUser(ctx context.Context, uid string) ([]*models.Project, error) {
	byMember, err := s.store.Query(ctx, s.memberQuery(uid))
	if err != nil {
		return nil, err
	}
	byCreator, err := s.store.Query(ctx, s.creatorQuery(uid))
	if err != nil {
		return nil, err
	}
	return mergeProjects(byMember, byCreator), nil
}

// All returns every project in the store.
func (s *ProjectService) All(ctx context.Context) ([]*models.Project, error) {
	snaps, err := s.store.Query(ctx, docstore.Collection(models.CollectionProjects).OrderBy("createdAt", docstore.Asc))
	if err != nil {
		return nil, err
	}
	return models.ProjectsFromSnapshots(snaps), nil
}

// SubscribeProject delivers the project on every change, and nil once it is deleted.
func (s *ProjectService) SubscribeProject(ctx context.Context, projectID string, fn func(*models.Project, error)) (docstore.Unsubscribe, error) {
	return s.store.SubscribeDoc(ctx, models.CollectionProjects, projectID, func(snap *docstore.Snapshot, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		if snap == nil {
			fn(nil, nil)
			return
		}
		fn(models.ProjectFromSnapshot(*snap), nil)
	})
}

func mergeProjects(sets ...[]docstore.Snapshot) []*models.Project {
	seen := make(map[string]bool)
	var merged []docstore.Snapshot
	for _, set := range sets {
		for _, snap := range set {
			if seen[snap.ID] {
				continue
			}
			seen[snap.ID] = true
			merged = append(merged, snap)
		}
	}
	docstore.SortSnapshots(merged, []docstore.Order{{Field: "createdAt", Direction: docstore.Desc}})
	return models.ProjectsFromSnapshots(merged)
}

func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
