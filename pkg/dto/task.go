package dto

import (
	"time"

	"github.com/dimitrije/teamboard/internal/models"
)

type CreateTaskRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	AssignedTo   string     `json:"assigned_to"`
	AssignedName string     `json:"assigned_name"`
	Priority     string     `json:"priority"`
	Points       *int       `json:"points"`
	Deadline     *time.Time `json:"deadline"`
}

type ChangeStatusRequest struct {
	Status string `json:"status"`
}

type StatusChangeResponse struct {
	Task    *models.Task `json:"task"`
	Awarded int          `json:"awarded"`
}
