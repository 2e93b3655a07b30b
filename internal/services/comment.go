package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/models"
)

type CommentService struct {
	store    docstore.Gateway
	activity *ActivityService
	users    *UserService
	log      logrus.FieldLogger
}

func NewCommentService(store docstore.Gateway, activity *ActivityService, users *UserService, log logrus.FieldLogger) *CommentService {
	return &CommentService{store: store, activity: activity, users: users, log: log}
}

// Add posts a comment on a task. Project members mentioned as @name get an
// activity entry each; those entries are best-effort.
func (s *CommentService) Add(ctx context.Context, author Actor, taskID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("comment text is required")
	}

	snap, err := s.store.Get(ctx, models.CollectionTasks, taskID)
	if err != nil {
		return nil, storeError(err, "task %s", taskID)
	}
	task := models.TaskFromSnapshot(*snap)

	comment := &models.Comment{
		TaskID:    taskID,
		ProjectID: task.ProjectID,
		User:      author.UID,
		UserName:  author.Name,
		Text:      text,
	}
	id, err := s.store.Create(ctx, models.CollectionComments, comment.ToDoc())
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	s.recordMentions(ctx, author, task, text)

	snap, err = s.store.Get(ctx, models.CollectionComments, id)
	if err != nil {
		return nil, storeError(err, "comment %s", id)
	}
	return models.CommentFromSnapshot(*snap), nil
}

func (s *CommentService) recordMentions(ctx context.Context, author Actor, task *models.Task, text string) {
	if !strings.Contains(text, "@") {
		return
	}
	log := s.log.WithFields(logrus.Fields{"project_id": task.ProjectID, "task_id": task.ID})

	snap, err := s.store.Get(ctx, models.CollectionProjects, task.ProjectID)
	if err != nil {
		log.WithError(err).Warn("failed to load project for mentions")
		return
	}
	members, err := s.users.GetByIDs(ctx, models.ProjectFromSnapshot(*snap).Members)
	if err != nil {
		log.WithError(err).Warn("failed to load members for mentions")
		return
	}

	for _, name := range Mentions(text, members) {
		action := fmt.Sprintf("%s mentioned %s on %s", nameOr(author.Name, "Someone"), name, task.Title)
		if _, err := s.activity.Append(ctx, task.ProjectID, author.UID, action); err != nil {
			log.WithError(err).Warn("failed to record mention")
		}
	}
}

// Mentions returns the names of users referenced as @name in text,
// case-insensitively, in the order of users.
func Mentions(text string, users []*models.User) []string {
	lower := strings.ToLower(text)
	var names []string
	for _, u := range users {
		if strings.TrimSpace(u.Name) == "" {
			continue
		}
		if strings.Contains(lower, "@"+strings.ToLower(u.Name)) {
			names = append(names, u.Name)
		}
	}
	return names
}

func (s *CommentService) get(ctx context.Context, commentID string) (*models.Comment, error) {
	snap, err := s.store.Get(ctx, models.CollectionComments, commentID)
	if err != nil {
		return nil, storeError(err, "comment %s", commentID)
	}
	return models.CommentFromSnapshot(*snap), nil
}

func (s *CommentService) owned(ctx context.Context, actor Actor, commentID string) (*models.Comment, error) {
	comment, err := s.get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.User != actor.UID {
		return nil, fmt.Errorf("comment %s belongs to another user: %w", commentID, ErrForbidden)
	}
	return comment, nil
}

func (s *CommentService) Edit(ctx context.Context, actor Actor, commentID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("comment text is required")
	}
	if _, err := s.owned(ctx, actor, commentID); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, models.CollectionComments, commentID, docstore.Doc{"text": text}); err != nil {
		return nil, storeError(err, "failed to edit comment %s", commentID)
	}
	return s.get(ctx, commentID)
}

func (s *CommentService) Delete(ctx context.Context, actor Actor, commentID string) error {
	if _, err := s.owned(ctx, actor, commentID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, models.CollectionComments, commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

func threadQuery(taskID string) docstore.Query {
	return docstore.Collection(models.CollectionComments).
		Where("taskId", docstore.OpEqual, taskID).
		OrderBy("timestamp", docstore.Asc)
}

func (s *CommentService) List(ctx context.Context, taskID string) ([]*models.Comment, error) {
	snaps, err := s.store.Query(ctx, threadQuery(taskID))
	if err != nil {
		return nil, err
	}
	return models.CommentsFromSnapshots(snaps), nil
}

// Subscribe delivers the task's thread, oldest first.
func (s *CommentService) Subscribe(ctx context.Context, taskID string, fn func([]*models.Comment, error)) (docstore.Unsubscribe, error) {
	return s.store.Subscribe(ctx, threadQuery(taskID), func(rows []docstore.Snapshot, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(models.CommentsFromSnapshots(rows), nil)
	})
}
