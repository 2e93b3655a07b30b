package models

import "github.com/dimitrije/teamboard/internal/docstore"

type User struct {
	UID      string         `json:"uid"`
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Avatar   string         `json:"avatar,omitempty"`
	Role     string         `json:"role,omitempty"`
	Projects []string       `json:"projects"`
	Points   map[string]int `json:"points"`
}

// PointsField is the dotted path of the per-project counter.
func PointsField(projectID string) string {
	return "points." + projectID
}

func (u *User) PointsIn(projectID string) int {
	return u.Points[projectID]
}

func (u *User) ToDoc() docstore.Doc {
	projects := u.Projects
	if projects == nil {
		projects = []string{}
	}
	points := make(map[string]any, len(u.Points))
	for k, v := range u.Points {
		points[k] = int64(v)
	}
	return docstore.Doc{
		"name":     u.Name,
		"email":    u.Email,
		"avatar":   u.Avatar,
		"role":     u.Role,
		"projects": projects,
		"points":   points,
	}
}

func UserFromSnapshot(s docstore.Snapshot) *User {
	return &User{
		UID:      s.ID,
		Name:     s.Data.String("name"),
		Email:    s.Data.String("email"),
		Avatar:   s.Data.String("avatar"),
		Role:     s.Data.String("role"),
		Projects: s.Data.Strings("projects"),
		Points:   s.Data.IntMap("points"),
	}
}

func UsersFromSnapshots(snaps []docstore.Snapshot) []*User {
	out := make([]*User, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, UserFromSnapshot(s))
	}
	return out
}
