package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/models"
)

// InviteMailer notifies a user that they were added to a project.
type InviteMailer interface {
	SendProjectInvite(to, projectTitle, inviterName, inviteCode, joinURL string) error
}

type MembershipService struct {
	store    docstore.Gateway
	projects *ProjectService
	users    *UserService
	activity *ActivityService
	mailer   InviteMailer
	baseURL  string
	log      logrus.FieldLogger

	repairTimeout time.Duration
	repairing     sync.Map
}

func NewMembershipService(
	store docstore.Gateway,
	projects *ProjectService,
	users *UserService,
	activity *ActivityService,
	mailer InviteMailer,
	baseURL string,
	log logrus.FieldLogger,
) *MembershipService {
	return &MembershipService{
		store:         store,
		projects:      projects,
		users:         users,
		activity:      activity,
		mailer:        mailer,
		baseURL:       strings.TrimRight(baseURL, "/"),
		log:           log,
		repairTimeout: 10 * time.Second,
	}
}

func normalizeRole(role string) (string, error) {
	switch strings.TrimSpace(role) {
	case "", models.RoleContributor:
		return models.RoleContributor, nil
	case models.RoleLeader:
		return models.RoleLeader, nil
	}
	return "", validationError(fmt.Sprintf("unknown role %q", role))
}

// InviteByEmail adds the user registered under email to the project with the
// given role. Adding an existing member only updates their role.
func (s *MembershipService) InviteByEmail(ctx context.Context, inviter Actor, projectID, email, role string) (*models.User, error) {
	role, err := normalizeRole(role)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(email) == "" {
		return nil, validationError("email is required")
	}

	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	invitee, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	err = NewSaga("invite by email", s.log.WithField("project_id", projectID)).
		Must("add member", func(ctx context.Context) error {
			return s.store.Update(ctx, models.CollectionProjects, projectID, docstore.Doc{
				"members":                     docstore.ArrayUnion(invitee.UID),
				models.RoleField(invitee.UID): role,
			})
		}).
		Try("link project", func(ctx context.Context) error {
			return s.link(ctx, invitee.UID, projectID)
		}).
		Try("record activity", func(ctx context.Context) error {
			_, err := s.activity.Append(ctx, projectID, inviter.UID, fmt.Sprintf("Invited %s as %s", displayName(invitee), role))
			return err
		}).
		Try("notify", func(ctx context.Context) error {
			if s.mailer == nil || invitee.Email == "" {
				return nil
			}
			return s.mailer.SendProjectInvite(invitee.Email, project.Title, inviter.Name, project.InviteCode, s.projectURL(projectID))
		}).
		Run(ctx)
	if err != nil {
		return nil, storeError(err, "failed to invite %s", email)
	}
	return invitee, nil
}

// JoinByCode adds uid to the project whose invite code matches and returns
// the project id. Joining twice leaves the member list unchanged.
func (s *MembershipService) JoinByCode(ctx context.Context, member Actor, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrInvalidCode
	}

	snaps, err := s.store.Query(ctx, docstore.Collection(models.CollectionProjects).
		Where("inviteCode", docstore.OpEqual, code).
		Limit(1))
	if err != nil {
		return "", fmt.Errorf("failed to look up invite code: %w", err)
	}
	if len(snaps) == 0 {
		return "", ErrInvalidCode
	}
	project := models.ProjectFromSnapshot(snaps[0])
	alreadyMember := project.IsMember(member.UID)

	patch := docstore.Doc{"members": docstore.ArrayUnion(member.UID)}
	if project.RoleOf(member.UID) == "" {
		patch[models.RoleField(member.UID)] = models.RoleContributor
	}

	saga := NewSaga("join by code", s.log.WithField("project_id", project.ID)).
		Must("add member", func(ctx context.Context) error {
			return s.store.Update(ctx, models.CollectionProjects, project.ID, patch)
		}).
		Try("link project", func(ctx context.Context) error {
			return s.link(ctx, member.UID, project.ID)
		})
	if !alreadyMember {
		saga.Try("record activity", func(ctx context.Context) error {
			_, err := s.activity.Append(ctx, project.ID, member.UID, fmt.Sprintf("%s joined the project", nameOr(member.Name, "A new member")))
			return err
		})
	}
	if err := saga.Run(ctx); err != nil {
		return "", storeError(err, "failed to join project")
	}
	return project.ID, nil
}

// RepairProject restores the creator and membership fields of a project
// written without them. It is idempotent and reports whether it wrote.
func (s *MembershipService) RepairProject(ctx context.Context, project *models.Project) (bool, error) {
	if !project.NeedsRepair() {
		return false, nil
	}

	creator := project.CreatedBy
	if creator == "" && len(project.Members) > 0 {
		creator = project.Members[0]
	}
	if creator == "" {
		return false, fmt.Errorf("project %s has neither creator nor members", project.ID)
	}

	patch := docstore.Doc{
		"createdBy": creator,
		"members":   docstore.ArrayUnion(creator),
	}
	if project.RoleOf(creator) == "" {
		patch[models.RoleField(creator)] = models.RoleLeader
	}

	if err := s.store.Update(ctx, models.CollectionProjects, project.ID, patch); err != nil {
		return false, storeError(err, "failed to repair project %s", project.ID)
	}
	if err := s.link(ctx, creator, project.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		s.log.WithError(err).WithField("project_id", project.ID).Warn("failed to link repaired project")
	}

	s.log.WithFields(logrus.Fields{"project_id": project.ID, "created_by": creator}).Info("repaired project membership")
	return true, nil
}

// SubscribeMemberships delivers every project uid belongs to or created,
// newest first. Projects that need repair are fixed in the background; a
// failed repair is logged and the delivery goes ahead unchanged.
func (s *MembershipService) SubscribeMemberships(ctx context.Context, uid string, fn func([]*models.Project, error)) (docstore.Unsubscribe, error) {
	var (
		mu        sync.Mutex
		byMember  []docstore.Snapshot
		byCreator []docstore.Snapshot
		ready     [2]bool
	)

	deliver := func(slot int, rows []docstore.Snapshot, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			fn(nil, err)
			return
		}
		if slot == 0 {
			byMember = rows
		} else {
			byCreator = rows
		}
		ready[slot] = true
		if !ready[0] || !ready[1] {
			return
		}

		projects := mergeProjects(byMember, byCreator)
		for _, p := range projects {
			if p.NeedsRepair() {
				s.repairInBackground(ctx, p)
			}
		}
		fn(projects, nil)
	}

	unsubMember, err := s.store.Subscribe(ctx, s.projects.memberQuery(uid), func(rows []docstore.Snapshot, err error) {
		deliver(0, rows, err)
	})
	if err != nil {
		return nil, err
	}
	unsubCreator, err := s.store.Subscribe(ctx, s.projects.creatorQuery(uid), func(rows []docstore.Snapshot, err error) {
		deliver(1, rows, err)
	})
	if err != nil {
		unsubMember()
		return nil, err
	}

	return func() {
		unsubMember()
		unsubCreator()
	}, nil
}

func (s *MembershipService) repairInBackground(ctx context.Context, project *models.Project) {
	if _, busy := s.repairing.LoadOrStore(project.ID, true); busy {
		return
	}
	go func() {
		defer s.repairing.Delete(project.ID)
		ctx, cancel := detached(ctx, s.repairTimeout)
		defer cancel()
		if _, err := s.RepairProject(ctx, project); err != nil {
			s.log.WithError(err).WithField("project_id", project.ID).Warn("background repair failed")
		}
	}()
}

func (s *MembershipService) link(ctx context.Context, uid, projectID string) error {
	return s.store.Update(ctx, models.CollectionUsers, uid, docstore.Doc{
		"projects": docstore.ArrayUnion(projectID),
	})
}

func (s *MembershipService) projectURL(projectID string) string {
	return fmt.Sprintf("%s/projects/%s", s.baseURL, projectID)
}

func displayName(u *models.User) string {
	return nameOr(u.Name, u.Email)
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return fallback
}
