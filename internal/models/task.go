package models

import (
	"time"

	"github.com/dimitrije/teamboard/internal/docstore"
)

// Task statuses. Any status may move to any other.
const (
	StatusToDo       = "To Do"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

const (
	DefaultTaskPoints = 10
	// DeadlineBonus is added when a task is completed before its deadline.
	DeadlineBonus = 5
)

func ValidStatus(s string) bool {
	return s == StatusToDo || s == StatusInProgress || s == StatusDone
}

func ValidPriority(p string) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

type Task struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	AssignedTo   string     `json:"assigned_to"`
	AssignedName string     `json:"assigned_name"`
	Priority     string     `json:"priority"`
	Status       string     `json:"status"`
	Points       int        `json:"points"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	// Awarded is set once the completion points have been granted.
	Awarded bool `json:"awarded"`
}

// EarnedPoints is what completing the task at now is worth.
func (t *Task) EarnedPoints(now time.Time) int {
	points := t.Points
	if t.Deadline != nil && now.Before(*t.Deadline) {
		points += DeadlineBonus
	}
	return points
}

func (t *Task) ToDoc() docstore.Doc {
	doc := docstore.Doc{
		"projectId":    t.ProjectID,
		"title":        t.Title,
		"description":  t.Description,
		"assignedTo":   t.AssignedTo,
		"assignedName": t.AssignedName,
		"priority":     t.Priority,
		"status":       t.Status,
		"points":       int64(t.Points),
		"deadline":     "",
		"createdBy":    t.CreatedBy,
		"createdAt":    docstore.ServerTimestamp,
	}
	if t.Deadline != nil {
		doc["deadline"] = *t.Deadline
	}
	if !t.CreatedAt.IsZero() {
		doc["createdAt"] = t.CreatedAt
	}
	return doc
}

func TaskFromSnapshot(s docstore.Snapshot) *Task {
	t := &Task{
		ID:           s.ID,
		ProjectID:    s.Data.String("projectId"),
		Title:        s.Data.String("title"),
		Description:  s.Data.String("description"),
		AssignedTo:   s.Data.String("assignedTo"),
		AssignedName: s.Data.String("assignedName"),
		Priority:     s.Data.String("priority"),
		Status:       s.Data.String("status"),
		Points:       s.Data.Int("points"),
		CreatedBy:    s.Data.String("createdBy"),
		CreatedAt:    s.Data.Time("createdAt"),
		Awarded:      s.Data.Bool("awarded"),
	}
	if deadline := s.Data.Time("deadline"); !deadline.IsZero() {
		t.Deadline = &deadline
	}
	return t
}

func TasksFromSnapshots(snaps []docstore.Snapshot) []*Task {
	out := make([]*Task, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, TaskFromSnapshot(s))
	}
	return out
}
