package handlers

import (
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/services"
	"github.com/dimitrije/teamboard/pkg/dto"
)

// SocialHandler serves the lighter project features: task comments, the
// shout-out wall and the team mood board.
type SocialHandler struct {
	base
	projects  ProjectServiceInterface
	tasks     TaskServiceInterface
	comments  CommentServiceInterface
	shoutouts ShoutoutServiceInterface
	moods     MoodServiceInterface
}

func NewSocialHandler(
	userService UserServiceInterface,
	projectService ProjectServiceInterface,
	taskService TaskServiceInterface,
	commentService CommentServiceInterface,
	shoutoutService ShoutoutServiceInterface,
	moodService MoodServiceInterface,
	log logrus.FieldLogger,
) *SocialHandler {
	return &SocialHandler{
		base:      base{users: userService, log: log},
		projects:  projectService,
		tasks:     taskService,
		comments:  commentService,
		shoutouts: shoutoutService,
		moods:     moodService,
	}
}

func (h *SocialHandler) requireMember(c *drift.Context, actor services.Actor, projectID, action string) bool {
	if _, err := h.projects.RequireMember(c.Request.Context(), projectID, actor.UID); err != nil {
		h.fail(c, err, action)
		return false
	}
	return true
}

func (h *SocialHandler) requireTaskMember(c *drift.Context, actor services.Actor, action string) (string, bool) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		h.fail(c, err, action)
		return "", false
	}
	return task.ID, h.requireMember(c, actor, task.ProjectID, action)
}

func (h *SocialHandler) ListComments(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	taskID, ok := h.requireTaskMember(c, actor, "list comments")
	if !ok {
		return
	}

	comments, err := h.comments.List(c.Request.Context(), taskID)
	if err != nil {
		h.fail(c, err, "list comments")
		return
	}
	_ = c.JSON(200, comments)
}

func (h *SocialHandler) AddComment(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.CommentRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	taskID, ok := h.requireTaskMember(c, actor, "add comment")
	if !ok {
		return
	}

	comment, err := h.comments.Add(c.Request.Context(), actor, taskID, req.Text)
	if err != nil {
		h.fail(c, err, "add comment")
		return
	}
	_ = c.JSON(201, comment)
}

func (h *SocialHandler) EditComment(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.CommentRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	comment, err := h.comments.Edit(c.Request.Context(), actor, c.Param("commentId"), req.Text)
	if err != nil {
		h.fail(c, err, "edit comment")
		return
	}
	_ = c.JSON(200, comment)
}

func (h *SocialHandler) DeleteComment(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.comments.Delete(c.Request.Context(), actor, c.Param("commentId")); err != nil {
		h.fail(c, err, "delete comment")
		return
	}
	_ = c.JSON(200, dto.MessageResponse{Message: "comment deleted"})
}

func (h *SocialHandler) ListShoutouts(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")
	if !h.requireMember(c, actor, projectID, "list shoutouts") {
		return
	}

	shoutouts, err := h.shoutouts.List(c.Request.Context(), projectID)
	if err != nil {
		h.fail(c, err, "list shoutouts")
		return
	}
	_ = c.JSON(200, shoutouts)
}

func (h *SocialHandler) AddShoutout(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.CreateShoutoutRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	projectID := c.Param("projectId")
	if !h.requireMember(c, actor, projectID, "add shoutout") {
		return
	}

	shoutout, err := h.shoutouts.Add(c.Request.Context(), actor, projectID, services.ShoutoutInput{
		Message: req.Message,
		ToUser:  req.ToUser,
		ToName:  req.ToName,
	})
	if err != nil {
		h.fail(c, err, "add shoutout")
		return
	}
	_ = c.JSON(201, shoutout)
}

func (h *SocialHandler) UpdateShoutout(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.UpdateShoutoutRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	shoutout, err := h.shoutouts.Update(c.Request.Context(), actor, c.Param("shoutoutId"), req.Message, req.ToName)
	if err != nil {
		h.fail(c, err, "update shoutout")
		return
	}
	_ = c.JSON(200, shoutout)
}

func (h *SocialHandler) DeleteShoutout(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.shoutouts.Delete(c.Request.Context(), actor, c.Param("shoutoutId")); err != nil {
		h.fail(c, err, "delete shoutout")
		return
	}
	_ = c.JSON(200, dto.MessageResponse{Message: "shoutout deleted"})
}

// Cheer is open to any project member, including the author.
func (h *SocialHandler) Cheer(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	shoutout, err := h.shoutouts.Get(ctx, c.Param("shoutoutId"))
	if err != nil {
		h.fail(c, err, "cheer")
		return
	}
	if !h.requireMember(c, actor, shoutout.ProjectID, "cheer") {
		return
	}

	if err := h.shoutouts.Cheer(ctx, shoutout.ID); err != nil {
		h.fail(c, err, "cheer")
		return
	}

	shoutout, err = h.shoutouts.Get(ctx, shoutout.ID)
	if err != nil {
		h.fail(c, err, "cheer")
		return
	}
	_ = c.JSON(200, shoutout)
}

func (h *SocialHandler) ListMoods(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")
	if !h.requireMember(c, actor, projectID, "list moods") {
		return
	}

	moods, err := h.moods.List(c.Request.Context(), projectID)
	if err != nil {
		h.fail(c, err, "list moods")
		return
	}
	_ = c.JSON(200, moods)
}

func (h *SocialHandler) SetMood(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req dto.SetMoodRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	projectID := c.Param("projectId")
	if !h.requireMember(c, actor, projectID, "set mood") {
		return
	}

	mood, err := h.moods.Set(c.Request.Context(), actor, projectID, req.Mood, req.Note)
	if err != nil {
		h.fail(c, err, "set mood")
		return
	}
	_ = c.JSON(200, mood)
}

func (h *SocialHandler) DeleteMood(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")
	if !h.requireMember(c, actor, projectID, "clear mood") {
		return
	}

	if err := h.moods.Delete(c.Request.Context(), actor, projectID); err != nil {
		h.fail(c, err, "clear mood")
		return
	}
	_ = c.JSON(200, dto.MessageResponse{Message: "mood cleared"})
}
