package handlers

import (
	"bytes"
	"fmt"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/models"
	"github.com/dimitrije/teamboard/internal/services"
	"github.com/dimitrije/teamboard/pkg/dto"
)

type TaskHandler struct {
	base
	projects    ProjectServiceInterface
	tasks       TaskServiceInterface
	aggregation AggregationServiceInterface
}

func NewTaskHandler(
	userService UserServiceInterface,
	projectService ProjectServiceInterface,
	taskService TaskServiceInterface,
	aggregationService AggregationServiceInterface,
	log logrus.FieldLogger,
) *TaskHandler {
	return &TaskHandler{
		base:        base{users: userService, log: log},
		projects:    projectService,
		tasks:       taskService,
		aggregation: aggregationService,
	}
}

// memberTask loads a task and checks the caller belongs to its project.
func (h *TaskHandler) memberTask(c *drift.Context, actor services.Actor, action string) (*models.Task, bool) {
	ctx := c.Request.Context()
	task, err := h.tasks.Get(ctx, c.Param("taskId"))
	if err != nil {
		h.fail(c, err, action)
		return nil, false
	}
	if _, err := h.projects.RequireMember(ctx, task.ProjectID, actor.UID); err != nil {
		h.fail(c, err, action)
		return nil, false
	}
	return task, true
}

// List supports ?search= on the title and ?assigned=all|mine|others.
func (h *TaskHandler) List(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	projectID := c.Param("projectId")
	if _, err := h.projects.RequireMember(ctx, projectID, actor.UID); err != nil {
		h.fail(c, err, "list tasks")
		return
	}

	assignment := c.QueryParam("assigned")
	switch assignment {
	case "", services.AssignedAll, services.AssignedMine, services.AssignedOthers:
	default:
		c.BadRequest(fmt.Sprintf("unknown assignment filter %q", assignment))
		return
	}

	tasks, err := h.tasks.List(ctx, projectID, services.TaskFilter{
		Search:     c.QueryParam("search"),
		Assignment: assignment,
		Viewer:     actor.UID,
	})
	if err != nil {
		h.fail(c, err, "list tasks")
		return
	}
	_ = c.JSON(200, tasks)
}

func (h *TaskHandler) Create(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.CreateTaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	ctx := c.Request.Context()
	projectID := c.Param("projectId")
	if _, err := h.projects.RequireMember(ctx, projectID, actor.UID); err != nil {
		h.fail(c, err, "create task")
		return
	}

	task, err := h.tasks.Create(ctx, actor, projectID, services.TaskInput{
		Title:        req.Title,
		Description:  req.Description,
		AssignedTo:   req.AssignedTo,
		AssignedName: req.AssignedName,
		Priority:     req.Priority,
		Points:       req.Points,
		Deadline:     req.Deadline,
	})
	if err != nil {
		h.fail(c, err, "create task")
		return
	}
	_ = c.JSON(201, task)
}

func (h *TaskHandler) Get(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	task, ok := h.memberTask(c, actor, "load task")
	if !ok {
		return
	}
	_ = c.JSON(200, task)
}

func (h *TaskHandler) ChangeStatus(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.ChangeStatusRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	task, ok := h.memberTask(c, actor, "change status")
	if !ok {
		return
	}

	change, err := h.tasks.ChangeStatus(c.Request.Context(), actor, task.ID, req.Status)
	if err != nil {
		h.fail(c, err, "change status")
		return
	}
	_ = c.JSON(200, dto.StatusChangeResponse{Task: change.Task, Awarded: change.Awarded})
}

func (h *TaskHandler) ExportCSV(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	project, err := h.projects.RequireMember(ctx, c.Param("projectId"), actor.UID)
	if err != nil {
		h.fail(c, err, "export tasks")
		return
	}

	var buf bytes.Buffer
	if err := h.tasks.ExportCSV(ctx, project.ID, &buf); err != nil {
		h.fail(c, err, "export tasks")
		return
	}

	c.Response.Header().Set("Content-Type", "text/csv; charset=utf-8")
	c.Response.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", project.ID+"-tasks.csv"))
	c.Response.WriteHeader(200)
	_, _ = c.Response.Write(buf.Bytes())
}

// DeadlineAlerts lists the caller's open tasks due within the alert window.
func (h *TaskHandler) DeadlineAlerts(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	tasks, err := h.aggregation.DeadlineAlerts(c.Request.Context(), actor.UID)
	if err != nil {
		h.fail(c, err, "load deadline alerts")
		return
	}
	_ = c.JSON(200, tasks)
}
