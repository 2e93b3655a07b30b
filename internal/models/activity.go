package models

import (
	"time"

	"github.com/dimitrije/teamboard/internal/docstore"
)

type ActivityEntry struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *ActivityEntry) ToDoc() docstore.Doc {
	return docstore.Doc{
		"projectId": a.ProjectID,
		"user":      a.User,
		"action":    a.Action,
		"timestamp": docstore.ServerTimestamp,
	}
}

func ActivityFromSnapshot(s docstore.Snapshot) *ActivityEntry {
	return &ActivityEntry{
		ID:        s.ID,
		ProjectID: s.Data.String("projectId"),
		User:      s.Data.String("user"),
		Action:    s.Data.String("action"),
		Timestamp: s.Data.Time("timestamp"),
	}
}

func ActivitiesFromSnapshots(snaps []docstore.Snapshot) []*ActivityEntry {
	out := make([]*ActivityEntry, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, ActivityFromSnapshot(s))
	}
	return out
}
