package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/middleware"
	"github.com/dimitrije/teamboard/internal/services"
)

// base carries what every domain handler needs to identify the caller and
// report failures.
type base struct {
	users UserServiceInterface
	log   logrus.FieldLogger
}

// actor resolves the authenticated caller. A caller without a user document
// is still allowed through under their email.
func (b *base) actor(c *drift.Context) (services.Actor, bool) {
	uid := middleware.GetUserID(c)
	if uid == "" {
		c.Unauthorized("not authenticated")
		return services.Actor{}, false
	}

	name := middleware.GetUserEmail(c)
	if user, err := b.users.GetByID(c.Request.Context(), uid); err == nil && user.Name != "" {
		name = user.Name
	}
	return services.Actor{UID: uid, Name: name}, true
}

// fail maps service errors onto HTTP statuses. action completes the message
// "failed to ..." used for unexpected errors.
func (b *base) fail(c *drift.Context, err error, action string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.BadRequest(err.Error())
	case errors.Is(err, services.ErrForbidden):
		c.Forbidden(err.Error())
	case errors.Is(err, services.ErrNotFound):
		c.NotFound(err.Error())
	case errors.Is(err, docstore.ErrUnavailable):
		_ = c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "store unavailable"})
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		b.log.WithError(err).WithField("path", c.Request.URL.Path).Error("failed to " + action)
		c.InternalServerError("failed to " + action)
	}
}
