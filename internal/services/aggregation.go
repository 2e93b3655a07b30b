package services

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/models"
)

// Badge names.
const (
	BadgeLegend        = "Legend"
	BadgeTopPerformer  = "Top Performer"
	BadgeStreakStarter = "Streak Starter"
	BadgeFirstTask     = "First Task Completed"
)

// AlertWindow is how far ahead of a deadline a task starts raising an alert.
const AlertWindow = 48 * time.Hour

type LeaderboardRow struct {
	User     string   `json:"user"`
	UserName string   `json:"user_name"`
	Points   int      `json:"points"`
	Badges   []string `json:"badges"`
}

// Badges grants at most one tier badge plus the first-task badge.
func Badges(points int) []string {
	badges := []string{}
	switch {
	case points >= 100:
		badges = append(badges, BadgeLegend)
	case points >= 50:
		badges = append(badges, BadgeTopPerformer)
	case points >= 20:
		badges = append(badges, BadgeStreakStarter)
	}
	if points > 0 {
		badges = append(badges, BadgeFirstTask)
	}
	return badges
}

// Leaderboard ranks the project's members, its creator and anyone who has
// scored in it, highest points first. Ties keep the order of users.
func Leaderboard(users []*models.User, project *models.Project) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(users))
	for _, u := range users {
		_, scored := u.Points[project.ID]
		if !scored && !project.IsMember(u.UID) && u.UID != project.CreatedBy {
			continue
		}
		points := u.PointsIn(project.ID)
		rows = append(rows, LeaderboardRow{
			User:     u.UID,
			UserName: displayName(u),
			Points:   points,
			Badges:   Badges(points),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Points > rows[j].Points
	})
	return rows
}

// Progress is the rounded percentage of tasks that are done.
func Progress(tasks []*models.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range tasks {
		if t.Status == models.StatusDone {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(tasks)) * 100))
}

// DeadlineAlerts returns the open tasks assigned to uid whose deadline falls
// within the alert window after now, soonest first.
func DeadlineAlerts(tasks []*models.Task, uid string, now time.Time) []*models.Task {
	alerts := []*models.Task{}
	for _, t := range tasks {
		if t.AssignedTo != uid || t.Status == models.StatusDone || t.Deadline == nil {
			continue
		}
		left := t.Deadline.Sub(now)
		if left > 0 && left <= AlertWindow {
			alerts = append(alerts, t)
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Deadline.Before(*alerts[j].Deadline)
	})
	return alerts
}

type AggregationService struct {
	store docstore.Gateway
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewAggregationService(store docstore.Gateway, log logrus.FieldLogger) *AggregationService {
	return &AggregationService{store: store, log: log, now: time.Now}
}

func usersQuery() docstore.Query {
	return docstore.Collection(models.CollectionUsers)
}

func projectTasksQuery(projectID string) docstore.Query {
	return docstore.Collection(models.CollectionTasks).
		Where("projectId", docstore.OpEqual, projectID).
		OrderBy("createdAt", docstore.Desc)
}

func openTasksQuery(uid string) docstore.Query {
	return docstore.Collection(models.CollectionTasks).
		Where("assignedTo", docstore.OpEqual, uid).
		Where("status", docstore.OpNotEqual, models.StatusDone)
}

func (s *AggregationService) Leaderboard(ctx context.Context, projectID string) ([]LeaderboardRow, error) {
	snap, err := s.store.Get(ctx, models.CollectionProjects, projectID)
	if err != nil {
		return nil, storeError(err, "failed to load project %s", projectID)
	}
	snaps, err := s.store.Query(ctx, usersQuery())
	if err != nil {
		return nil, err
	}
	return Leaderboard(models.UsersFromSnapshots(snaps), models.ProjectFromSnapshot(*snap)), nil
}

// SubscribeLeaderboard recomputes the board on every change to any user or
// to the project's member list. A deleted project keeps only those who
// scored in it.
func (s *AggregationService) SubscribeLeaderboard(ctx context.Context, projectID string, fn func([]LeaderboardRow, error)) (docstore.Unsubscribe, error) {
	var (
		mu      sync.Mutex
		users   []*models.User
		project = &models.Project{ID: projectID}
		ready   [2]bool
		last    []LeaderboardRow
	)

	deliver := func(slot int, apply func(), err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			last = nil
			fn(nil, err)
			return
		}
		apply()
		ready[slot] = true
		if !ready[0] || !ready[1] {
			return
		}
		rows := Leaderboard(users, project)
		if last != nil && reflect.DeepEqual(rows, last) {
			return
		}
		last = rows
		fn(rows, nil)
	}

	unsubProject, err := s.store.SubscribeDoc(ctx, models.CollectionProjects, projectID, func(snap *docstore.Snapshot, err error) {
		deliver(0, func() {
			if snap == nil {
				project = &models.Project{ID: projectID}
				return
			}
			project = models.ProjectFromSnapshot(*snap)
		}, err)
	})
	if err != nil {
		return nil, err
	}
	unsubUsers, err := s.store.Subscribe(ctx, usersQuery(), func(rows []docstore.Snapshot, err error) {
		deliver(1, func() { users = models.UsersFromSnapshots(rows) }, err)
	})
	if err != nil {
		unsubProject()
		return nil, err
	}

	return func() {
		unsubProject()
		unsubUsers()
	}, nil
}

func (s *AggregationService) Progress(ctx context.Context, projectID string) (int, error) {
	snaps, err := s.store.Query(ctx, projectTasksQuery(projectID))
	if err != nil {
		return 0, err
	}
	return Progress(models.TasksFromSnapshots(snaps)), nil
}

func (s *AggregationService) SubscribeProgress(ctx context.Context, projectID string, fn func(int, error)) (docstore.Unsubscribe, error) {
	return s.store.Subscribe(ctx, projectTasksQuery(projectID), func(rows []docstore.Snapshot, err error) {
		if err != nil {
			fn(0, err)
			return
		}
		fn(Progress(models.TasksFromSnapshots(rows)), nil)
	})
}

// RefreshProgress recomputes the project's progress and stores it when it
// changed. A deleted project is left alone.
func (s *AggregationService) RefreshProgress(ctx context.Context, projectID string) (int, error) {
	progress, err := s.Progress(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to compute progress: %w", err)
	}
	_, err = s.store.UpdateWhere(ctx, models.CollectionProjects, projectID,
		[]docstore.Predicate{docstore.Where("progress", docstore.OpNotEqual, int64(progress))},
		docstore.Doc{"progress": int64(progress)})
	if err != nil {
		return 0, fmt.Errorf("failed to store progress: %w", err)
	}
	return progress, nil
}

func (s *AggregationService) DeadlineAlerts(ctx context.Context, uid string) ([]*models.Task, error) {
	snaps, err := s.store.Query(ctx, openTasksQuery(uid))
	if err != nil {
		return nil, err
	}
	return DeadlineAlerts(models.TasksFromSnapshots(snaps), uid, s.now()), nil
}

// SubscribeDeadlineAlerts re-evaluates the window against the clock on every
// change to the user's open tasks.
func (s *AggregationService) SubscribeDeadlineAlerts(ctx context.Context, uid string, fn func([]*models.Task, error)) (docstore.Unsubscribe, error) {
	return s.store.Subscribe(ctx, openTasksQuery(uid), func(rows []docstore.Snapshot, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(DeadlineAlerts(models.TasksFromSnapshots(rows), uid, s.now()), nil)
	})
}
