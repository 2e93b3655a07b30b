package handlers

import (
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/models"
	"github.com/dimitrije/teamboard/internal/services"
	"github.com/dimitrije/teamboard/pkg/dto"
)

type ProjectHandler struct {
	base
	projects    ProjectServiceInterface
	membership  MembershipServiceInterface
	cascade     CascadeServiceInterface
	aggregation AggregationServiceInterface
	activity    ActivityServiceInterface
}

func NewProjectHandler(
	userService UserServiceInterface,
	projectService ProjectServiceInterface,
	membershipService MembershipServiceInterface,
	cascadeService CascadeServiceInterface,
	aggregationService AggregationServiceInterface,
	activityService ActivityServiceInterface,
	log logrus.FieldLogger,
) *ProjectHandler {
	return &ProjectHandler{
		base:        base{users: userService, log: log},
		projects:    projectService,
		membership:  membershipService,
		cascade:     cascadeService,
		aggregation: aggregationService,
		activity:    activityService,
	}
}

func projectResponse(p *models.Project, uid string) dto.ProjectResponse {
	role := p.RoleOf(uid)
	if role == "" && p.CreatedBy == uid {
		role = models.RoleLeader
	}
	return dto.ProjectResponse{Project: p, Role: role}
}

func (h *ProjectHandler) List(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	projects, err := h.projects.ListForUser(c.Request.Context(), actor.UID)
	if err != nil {
		h.fail(c, err, "list projects")
		return
	}

	out := make([]dto.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectResponse(p, actor.UID))
	}
	_ = c.JSON(200, out)
}

func (h *ProjectHandler) Create(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	project, err := h.projects.Create(c.Request.Context(), actor, services.ProjectInput{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		h.fail(c, err, "create project")
		return
	}

	_ = c.JSON(201, projectResponse(project, actor.UID))
}

func (h *ProjectHandler) Get(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	project, err := h.projects.RequireMember(c.Request.Context(), c.Param("projectId"), actor.UID)
	if err != nil {
		h.fail(c, err, "load project")
		return
	}

	_ = c.JSON(200, projectResponse(project, actor.UID))
}

func (h *ProjectHandler) Update(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.UpdateProjectRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	ctx := c.Request.Context()
	projectID := c.Param("projectId")
	if _, err := h.projects.RequireLeader(ctx, projectID, actor.UID); err != nil {
		h.fail(c, err, "update project")
		return
	}

	project, err := h.projects.Update(ctx, projectID, services.ProjectUpdate{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.fail(c, err, "update project")
		return
	}

	_ = c.JSON(200, projectResponse(project, actor.UID))
}

// Delete removes the project with everything scoped to it.
func (h *ProjectHandler) Delete(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	projectID := c.Param("projectId")
	if _, err := h.projects.RequireLeader(ctx, projectID, actor.UID); err != nil {
		h.fail(c, err, "delete project")
		return
	}

	if err := h.cascade.DeleteProject(ctx, projectID); err != nil {
		h.fail(c, err, "delete project")
		return
	}

	_ = c.JSON(200, dto.MessageResponse{Message: "project deleted"})
}

func (h *ProjectHandler) Invite(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.InviteRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	ctx := c.Request.Context()
	projectID := c.Param("projectId")
	if _, err := h.projects.RequireLeader(ctx, projectID, actor.UID); err != nil {
		h.fail(c, err, "invite member")
		return
	}

	invitee, err := h.membership.InviteByEmail(ctx, actor, projectID, req.Email, req.Role)
	if err != nil {
		h.fail(c, err, "invite member")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleContributor
	}
	_ = c.JSON(200, dto.InviteResponse{User: toUserResponse(invitee), Role: role})
}

func (h *ProjectHandler) Join(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.JoinRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	projectID, err := h.membership.JoinByCode(c.Request.Context(), actor, req.Code)
	if err != nil {
		h.fail(c, err, "join project")
		return
	}

	_ = c.JSON(200, dto.JoinResponse{ProjectID: projectID})
}

func (h *ProjectHandler) Leaderboard(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	projectID := c.Param("projectId")
	if _, err := h.projects.RequireMember(ctx, projectID, actor.UID); err != nil {
		h.fail(c, err, "load leaderboard")
		return
	}

	rows, err := h.aggregation.Leaderboard(ctx, projectID)
	if err != nil {
		h.fail(c, err, "load leaderboard")
		return
	}
	_ = c.JSON(200, rows)
}

func (h *ProjectHandler) Progress(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	projectID := c.Param("projectId")
	if _, err := h.projects.RequireMember(ctx, projectID, actor.UID); err != nil {
		h.fail(c, err, "load progress")
		return
	}

	progress, err := h.aggregation.Progress(ctx, projectID)
	if err != nil {
		h.fail(c, err, "load progress")
		return
	}
	_ = c.JSON(200, dto.ProgressResponse{ProjectID: projectID, Progress: progress})
}

func (h *ProjectHandler) Activity(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	projectID := c.Param("projectId")
	if _, err := h.projects.RequireMember(ctx, projectID, actor.UID); err != nil {
		h.fail(c, err, "load activity")
		return
	}

	entries, err := h.activity.List(ctx, projectID)
	if err != nil {
		h.fail(c, err, "load activity")
		return
	}
	_ = c.JSON(200, entries)
}
