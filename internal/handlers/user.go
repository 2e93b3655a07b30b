package handlers

import (
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/middleware"
	"github.com/dimitrije/teamboard/internal/models"
	"github.com/dimitrije/teamboard/internal/services"
	"github.com/dimitrije/teamboard/pkg/dto"
)

// maxLookup bounds a single batch user lookup.
const maxLookup = 100

type UserHandler struct {
	base
}

func NewUserHandler(userService UserServiceInterface, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{base: base{users: userService, log: log}}
}

func toUserResponse(u *models.User) dto.UserResponse {
	projects := u.Projects
	if projects == nil {
		projects = []string{}
	}
	points := u.Points
	if points == nil {
		points = map[string]int{}
	}
	return dto.UserResponse{
		UID:      u.UID,
		Email:    u.Email,
		Name:     u.Name,
		Avatar:   u.Avatar,
		Role:     u.Role,
		Projects: projects,
		Points:   points,
	}
}

func (h *UserHandler) GetMe(c *drift.Context) {
	uid := middleware.GetUserID(c)
	if uid == "" {
		c.Unauthorized("not authenticated")
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err, "load user")
		return
	}

	_ = c.JSON(200, toUserResponse(user))
}

func (h *UserHandler) UpdateMe(c *drift.Context) {
	uid := middleware.GetUserID(c)
	if uid == "" {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.UpdateUserRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), uid, services.ProfileUpdate{
		Name:   req.Name,
		Avatar: req.Avatar,
		Role:   req.Role,
	})
	if err != nil {
		h.fail(c, err, "update user")
		return
	}

	_ = c.JSON(200, toUserResponse(user))
}

// Lookup resolves a batch of user ids, skipping unknown ones. It backs
// member lists and leaderboards that only hold ids.
func (h *UserHandler) Lookup(c *drift.Context) {
	var req dto.LookupUsersRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if len(req.UIDs) > maxLookup {
		c.BadRequest("too many ids")
		return
	}

	users, err := h.users.GetByIDs(c.Request.Context(), req.UIDs)
	if err != nil {
		h.fail(c, err, "look up users")
		return
	}

	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	_ = c.JSON(200, out)
}
