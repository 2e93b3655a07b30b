package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/models"
)

// Assignment filters for task listings.
const (
	AssignedAll    = "all"
	AssignedMine   = "mine"
	AssignedOthers = "others"
)

type TaskService struct {
	store       docstore.Gateway
	activity    *ActivityService
	aggregation *AggregationService
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewTaskService(store docstore.Gateway, activity *ActivityService, aggregation *AggregationService, log logrus.FieldLogger) *TaskService {
	return &TaskService{store: store, activity: activity, aggregation: aggregation, log: log, now: time.Now}
}

type TaskInput struct {
	Title        string
	Description  string
	AssignedTo   string
	AssignedName string
	Priority     string
	Points       *int
	Deadline     *time.Time
}

func (s *TaskService) Create(ctx context.Context, actor Actor, projectID string, input TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationError("title is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, validationError(fmt.Sprintf("unknown priority %q", priority))
	}
	points := models.DefaultTaskPoints
	if input.Points != nil {
		if *input.Points < 0 {
			return nil, validationError("points must not be negative")
		}
		points = *input.Points
	}

	if _, err := s.store.Get(ctx, models.CollectionProjects, projectID); err != nil {
		return nil, storeError(err, "project %s", projectID)
	}

	task := &models.Task{
		ProjectID:    projectID,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		AssignedTo:   input.AssignedTo,
		AssignedName: input.AssignedName,
		Priority:     priority,
		Status:       models.StatusToDo,
		Points:       points,
		Deadline:     input.Deadline,
		CreatedBy:    actor.UID,
	}

	log := s.log.WithField("project_id", projectID)
	err := NewSaga("create task", log).
		Must("create", func(ctx context.Context) error {
			id, err := s.store.Create(ctx, models.CollectionTasks, task.ToDoc())
			task.ID = id
			return err
		}).
		Must("record activity", func(ctx context.Context) error {
			_, err := s.activity.Append(ctx, projectID, actor.UID, "Added Task: "+title)
			return err
		}).
		Try("refresh progress", func(ctx context.Context) error {
			_, err := s.aggregation.RefreshProgress(ctx, projectID)
			return err
		}).
		Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.Get(ctx, task.ID)
}

func (s *TaskService) Get(ctx context.Context, taskID string) (*models.Task, error) {
	snap, err := s.store.Get(ctx, models.CollectionTasks, taskID)
	if err != nil {
		return nil, storeError(err, "task %s", taskID)
	}
	return models.TaskFromSnapshot(*snap), nil
}

type StatusChange struct {
	Task *models.Task
	// Awarded is the number of points granted by this change.
	Awarded int
}

// ChangeStatus moves a task to any status. The first completion of a task
// awards its points to the actor; later completions award nothing.
func (s *TaskService) ChangeStatus(ctx context.Context, actor Actor, taskID, status string) (*StatusChange, error) {
	if !models.ValidStatus(status) {
		return nil, validationError(fmt.Sprintf("unknown status %q", status))
	}

	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	result := &StatusChange{Task: task}
	log := s.log.WithFields(logrus.Fields{"project_id": task.ProjectID, "task_id": taskID})

	saga := NewSaga("change status", log).
		Must("write status", func(ctx context.Context) error {
			return s.store.Update(ctx, models.CollectionTasks, taskID, docstore.Doc{"status": status})
		}).
		Must("record activity", func(ctx context.Context) error {
			_, err := s.activity.Append(ctx, task.ProjectID, actor.UID, fmt.Sprintf("Updated Task: %s → %s", task.Title, status))
			return err
		})
	if status == models.StatusDone {
		saga.Must("award points", func(ctx context.Context) error {
			awarded, err := s.award(ctx, actor, task, log)
			result.Awarded = awarded
			return err
		})
	}
	saga.Try("refresh progress", func(ctx context.Context) error {
		_, err := s.aggregation.RefreshProgress(ctx, task.ProjectID)
		return err
	})

	if err := saga.Run(ctx); err != nil {
		return nil, storeError(err, "failed to change status of task %s", taskID)
	}

	task.Status = status
	if updated, err := s.Get(ctx, taskID); err == nil {
		result.Task = updated
	}
	return result, nil
}

// award claims the task's award flag and credits the actor. If crediting
// fails the flag is released so a later completion can retry.
func (s *TaskService) award(ctx context.Context, actor Actor, task *models.Task, log logrus.FieldLogger) (int, error) {
	claimed, err := s.store.UpdateWhere(ctx, models.CollectionTasks, task.ID,
		[]docstore.Predicate{docstore.Where("awarded", docstore.OpNotEqual, true)},
		docstore.Doc{"awarded": true, "awardedTo": actor.UID, "awardedAt": docstore.ServerTimestamp})
	if err != nil {
		return 0, err
	}
	if !claimed {
		log.Debug("task already awarded")
		return 0, nil
	}

	points := task.EarnedPoints(s.now())
	err = s.store.Increment(ctx, models.CollectionUsers, actor.UID, models.PointsField(task.ProjectID), int64(points))
	if err != nil {
		// An uncredited claim is released so a later completion can award.
		if _, rerr := s.store.UpdateWhere(ctx, models.CollectionTasks, task.ID, nil,
			docstore.Doc{"awarded": false, "awardedTo": docstore.DeleteField, "awardedAt": docstore.DeleteField}); rerr != nil {
			log.WithError(rerr).Error("failed to release award flag")
		}
		if errors.Is(err, docstore.ErrNotFound) {
			log.WithField("uid", actor.UID).Warn("no user document to credit")
			return 0, nil
		}
		return 0, err
	}

	log.WithFields(logrus.Fields{"uid": actor.UID, "points": points}).Info("points awarded")
	return points, nil
}

type TaskFilter struct {
	// Search matches a case-insensitive substring of the title.
	Search string
	// Assignment is one of AssignedAll, AssignedMine or AssignedOthers
	// relative to Viewer.
	Assignment string
	Viewer     string
}

func (f TaskFilter) match(t *models.Task) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(strings.TrimSpace(f.Search))) {
		return false
	}
	switch f.Assignment {
	case AssignedMine:
		return t.AssignedTo == f.Viewer
	case AssignedOthers:
		return t.AssignedTo != f.Viewer
	}
	return true
}

// Filter keeps the tasks matching f, preserving order.
func (f TaskFilter) Filter(tasks []*models.Task) []*models.Task {
	out := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.match(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *TaskService) List(ctx context.Context, projectID string, filter TaskFilter) ([]*models.Task, error) {
	snaps, err := s.store.Query(ctx, projectTasksQuery(projectID))
	if err != nil {
		return nil, err
	}
	return filter.Filter(models.TasksFromSnapshots(snaps)), nil
}

// Subscribe delivers the project's tasks, newest first, on every change.
func (s *TaskService) Subscribe(ctx context.Context, projectID string, fn func([]*models.Task, error)) (docstore.Unsubscribe, error) {
	return s.store.Subscribe(ctx, projectTasksQuery(projectID), func(rows []docstore.Snapshot, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(models.TasksFromSnapshots(rows), nil)
	})
}

var csvHeader = []string{"Title", "AssignedTo", "Priority", "Status", "Points", "Deadline"}

// ExportCSV writes one row per task in the project.
func (s *TaskService) ExportCSV(ctx context.Context, projectID string, w io.Writer) error {
	tasks, err := s.List(ctx, projectID, TaskFilter{})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range tasks {
		assigned := t.AssignedName
		if assigned == "" {
			assigned = t.AssignedTo
		}
		deadline := ""
		if t.Deadline != nil {
			deadline = t.Deadline.Format("2006-01-02")
		}
		if err := cw.Write([]string{t.Title, assigned, t.Priority, t.Status, strconv.Itoa(t.Points), deadline}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
