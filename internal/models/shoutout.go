package models

import (
	"time"

	"github.com/dimitrije/teamboard/internal/docstore"
)

// DefaultShoutoutTarget is used when a shoutout names nobody in particular.
const DefaultShoutoutTarget = "Team"

type Shoutout struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Message   string    `json:"message"`
	ToUser    *string   `json:"to_user"`
	ToName    string    `json:"to_name"`
	FromUser  string    `json:"from_user"`
	FromName  string    `json:"from_name"`
	Cheers    int       `json:"cheers"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Shoutout) ToDoc() docstore.Doc {
	doc := docstore.Doc{
		"projectId": s.ProjectID,
		"message":   s.Message,
		"toUser":    nil,
		"toName":    s.ToName,
		"fromUser":  s.FromUser,
		"fromName":  s.FromName,
		"cheers":    int64(s.Cheers),
		"timestamp": docstore.ServerTimestamp,
	}
	if s.ToUser != nil {
		doc["toUser"] = *s.ToUser
	}
	return doc
}

func ShoutoutFromSnapshot(snap docstore.Snapshot) *Shoutout {
	s := &Shoutout{
		ID:        snap.ID,
		ProjectID: snap.Data.String("projectId"),
		Message:   snap.Data.String("message"),
		ToName:    snap.Data.String("toName"),
		FromUser:  snap.Data.String("fromUser"),
		FromName:  snap.Data.String("fromName"),
		Cheers:    snap.Data.Int("cheers"),
		Timestamp: snap.Data.Time("timestamp"),
	}
	if to := snap.Data.String("toUser"); to != "" {
		s.ToUser = &to
	}
	return s
}

func ShoutoutsFromSnapshots(snaps []docstore.Snapshot) []*Shoutout {
	out := make([]*Shoutout, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, ShoutoutFromSnapshot(s))
	}
	return out
}
