package models

import (
	"slices"
	"time"

	"github.com/dimitrije/teamboard/internal/docstore"
)

// Project roles.
const (
	RoleLeader      = "Leader"
	RoleContributor = "Contributor"
)

type Project struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	StartDate   string            `json:"start_date,omitempty"`
	EndDate     string            `json:"end_date,omitempty"`
	Members     []string          `json:"members"`
	Roles       map[string]string `json:"roles"`
	CreatedBy   string            `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
	InviteCode  string            `json:"invite_code"`
	Progress    int               `json:"progress"`
}

func (p *Project) IsMember(uid string) bool {
	return slices.Contains(p.Members, uid)
}

func (p *Project) RoleOf(uid string) string {
	return p.Roles[uid]
}

// NeedsRepair reports whether the document lacks the membership invariant:
// a creator that is also a member.
func (p *Project) NeedsRepair() bool {
	return p.CreatedBy == "" || len(p.Members) == 0 || !p.IsMember(p.CreatedBy)
}

// RoleField is the dotted path of a member's role.
func RoleField(uid string) string {
	return "roles." + uid
}

func (p *Project) ToDoc() docstore.Doc {
	members := p.Members
	if members == nil {
		members = []string{}
	}
	roles := make(map[string]any, len(p.Roles))
	for k, v := range p.Roles {
		roles[k] = v
	}
	doc := docstore.Doc{
		"title":       p.Title,
		"description": p.Description,
		"startDate":   p.StartDate,
		"endDate":     p.EndDate,
		"members":     members,
		"roles":       roles,
		"createdBy":   p.CreatedBy,
		"inviteCode":  p.InviteCode,
		"progress":    int64(p.Progress),
		"createdAt":   docstore.ServerTimestamp,
	}
	if !p.CreatedAt.IsZero() {
		doc["createdAt"] = p.CreatedAt
	}
	return doc
}

func ProjectFromSnapshot(s docstore.Snapshot) *Project {
	return &Project{
		ID:          s.ID,
		Title:       s.Data.String("title"),
		Description: s.Data.String("description"),
		StartDate:   s.Data.String("startDate"),
		EndDate:     s.Data.String("endDate"),
		Members:     s.Data.Strings("members"),
		Roles:       s.Data.StringMap("roles"),
		CreatedBy:   s.Data.String("createdBy"),
		CreatedAt:   s.Data.Time("createdAt"),
		InviteCode:  s.Data.String("inviteCode"),
		Progress:    s.Data.Int("progress"),
	}
}

func ProjectsFromSnapshots(snaps []docstore.Snapshot) []*Project {
	out := make([]*Project, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, ProjectFromSnapshot(s))
	}
	return out
}
