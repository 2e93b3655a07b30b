package models

import (
	"time"

	"github.com/dimitrije/teamboard/internal/docstore"
)

const (
	MoodEnergized = "Energized"
	MoodFocused   = "Focused"
	MoodStretched = "Stretched"
	MoodTired     = "Tired"
)

func ValidMood(m string) bool {
	switch m {
	case MoodEnergized, MoodFocused, MoodStretched, MoodTired:
		return true
	}
	return false
}

// MoodID is the composite key that keeps one mood per user per project.
func MoodID(projectID, uid string) string {
	return projectID + "_" + uid
}

type Mood struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Name      string    `json:"name"`
	Mood      string    `json:"mood"`
	Note      string    `json:"note"`
	ProjectID string    `json:"project_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Mood) ToDoc() docstore.Doc {
	return docstore.Doc{
		"user":      m.User,
		"name":      m.Name,
		"mood":      m.Mood,
		"note":      m.Note,
		"projectId": m.ProjectID,
		"updatedAt": docstore.ServerTimestamp,
	}
}

func MoodFromSnapshot(s docstore.Snapshot) *Mood {
	return &Mood{
		ID:        s.ID,
		User:      s.Data.String("user"),
		Name:      s.Data.String("name"),
		Mood:      s.Data.String("mood"),
		Note:      s.Data.String("note"),
		ProjectID: s.Data.String("projectId"),
		UpdatedAt: s.Data.Time("updatedAt"),
	}
}

func MoodsFromSnapshots(snaps []docstore.Snapshot) []*Mood {
	out := make([]*Mood, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, MoodFromSnapshot(s))
	}
	return out
}
