package models

import (
	"time"

	"github.com/dimitrije/teamboard/internal/docstore"
)

type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	ProjectID string    `json:"project_id"`
	User      string    `json:"user"`
	UserName  string    `json:"user_name"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Comment) ToDoc() docstore.Doc {
	return docstore.Doc{
		"taskId":    c.TaskID,
		"projectId": c.ProjectID,
		"user":      c.User,
		"userName":  c.UserName,
		"text":      c.Text,
		"timestamp": docstore.ServerTimestamp,
	}
}

func CommentFromSnapshot(s docstore.Snapshot) *Comment {
	return &Comment{
		ID:        s.ID,
		TaskID:    s.Data.String("taskId"),
		ProjectID: s.Data.String("projectId"),
		User:      s.Data.String("user"),
		UserName:  s.Data.String("userName"),
		Text:      s.Data.String("text"),
		Timestamp: s.Data.Time("timestamp"),
	}
}

func CommentsFromSnapshots(snaps []docstore.Snapshot) []*Comment {
	out := make([]*Comment, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, CommentFromSnapshot(s))
	}
	return out
}
