package dto

import "github.com/dimitrije/teamboard/internal/models"

type CreateProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type UpdateProjectRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type InviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type InviteResponse struct {
	User UserResponse `json:"user"`
	Role string       `json:"role"`
}

type JoinRequest struct {
	Code string `json:"code"`
}

type JoinResponse struct {
	ProjectID string `json:"project_id"`
}

type ProjectResponse struct {
	*models.Project
	// Role is the caller's role in the project.
	Role string `json:"role"`
}

type ProgressResponse struct {
	ProjectID string `json:"project_id"`
	Progress  int    `json:"progress"`
}
