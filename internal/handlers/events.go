package handlers

import (
	"context"
	"strconv"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/services"
)

// Live query topics. Project scoped topics take ?project=, comments take ?task=.
const (
	TopicProjects    = "projects"
	TopicProject     = "project"
	TopicTasks       = "tasks"
	TopicLeaderboard = "leaderboard"
	TopicProgress    = "progress"
	TopicActivity    = "activity"
	TopicComments    = "comments"
	TopicShoutouts   = "shoutouts"
	TopicMoods       = "moods"
	TopicAlerts      = "alerts"
)

type subscribeFunc func(ctx context.Context, push func(any, error)) (docstore.Unsubscribe, error)

// feed adapts a typed live query to the untyped stream.
func feed[T any](sub func(context.Context, string, func(T, error)) (docstore.Unsubscribe, error), key string) subscribeFunc {
	return func(ctx context.Context, push func(any, error)) (docstore.Unsubscribe, error) {
		return sub(ctx, key, func(v T, err error) { push(v, err) })
	}
}

type delivery struct {
	value any
	err   error
}

// EventsHandler streams live query results over server-sent events. Every
// event carries the complete current result for its topic.
type EventsHandler struct {
	base
	projects    ProjectServiceInterface
	membership  MembershipServiceInterface
	tasks       TaskServiceInterface
	aggregation AggregationServiceInterface
	activity    ActivityServiceInterface
	comments    CommentServiceInterface
	shoutouts   ShoutoutServiceInterface
	moods       MoodServiceInterface
}

func NewEventsHandler(
	userService UserServiceInterface,
	projectService ProjectServiceInterface,
	membershipService MembershipServiceInterface,
	taskService TaskServiceInterface,
	aggregationService AggregationServiceInterface,
	activityService ActivityServiceInterface,
	commentService CommentServiceInterface,
	shoutoutService ShoutoutServiceInterface,
	moodService MoodServiceInterface,
	log logrus.FieldLogger,
) *EventsHandler {
	return &EventsHandler{
		base:        base{users: userService, log: log},
		projects:    projectService,
		membership:  membershipService,
		tasks:       taskService,
		aggregation: aggregationService,
		activity:    activityService,
		comments:    commentService,
		shoutouts:   shoutoutService,
		moods:       moodService,
	}
}

// resolve authorizes the topic for the caller and returns its subscription.
// It writes the error response itself and returns nil on failure.
func (h *EventsHandler) resolve(c *drift.Context, actor services.Actor, topic string) subscribeFunc {
	ctx := c.Request.Context()

	switch topic {
	case TopicProjects:
		return feed(h.membership.SubscribeMemberships, actor.UID)
	case TopicAlerts:
		return feed(h.aggregation.SubscribeDeadlineAlerts, actor.UID)
	case TopicComments:
		task, err := h.tasks.Get(ctx, c.QueryParam("task"))
		if err != nil {
			h.fail(c, err, "subscribe")
			return nil
		}
		if _, err := h.projects.RequireMember(ctx, task.ProjectID, actor.UID); err != nil {
			h.fail(c, err, "subscribe")
			return nil
		}
		return feed(h.comments.Subscribe, task.ID)
	}

	projectID := c.QueryParam("project")
	if projectID == "" {
		c.BadRequest("project is required")
		return nil
	}

	var sub subscribeFunc
	switch topic {
	case TopicProject:
		sub = feed(h.projects.SubscribeProject, projectID)
	case TopicTasks:
		sub = feed(h.tasks.Subscribe, projectID)
	case TopicLeaderboard:
		sub = feed(h.aggregation.SubscribeLeaderboard, projectID)
	case TopicProgress:
		sub = feed(h.aggregation.SubscribeProgress, projectID)
	case TopicActivity:
		sub = feed(h.activity.Subscribe, projectID)
	case TopicShoutouts:
		sub = feed(h.shoutouts.Subscribe, projectID)
	case TopicMoods:
		sub = feed(h.moods.Subscribe, projectID)
	default:
		c.NotFound("unknown topic: " + topic)
		return nil
	}

	if _, err := h.projects.RequireMember(ctx, projectID, actor.UID); err != nil {
		h.fail(c, err, "subscribe")
		return nil
	}
	return sub
}

func (h *EventsHandler) Stream(c *drift.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	topic := c.Param("topic")
	subscribe := h.resolve(c, actor, topic)
	if subscribe == nil {
		return
	}

	ctx := c.Request.Context()
	log := h.log.WithFields(logrus.Fields{"topic": topic, "uid": actor.UID})

	// Only the newest result matters; a slow client skips intermediate ones.
	updates := make(chan delivery, 1)
	push := func(v any, err error) {
		for {
			select {
			case updates <- delivery{value: v, err: err}:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	}

	unsubscribe, err := subscribe(ctx, push)
	if err != nil {
		h.fail(c, err, "subscribe")
		return
	}
	defer unsubscribe()

	stream := c.SSE()
	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-updates:
			if d.err != nil {
				log.WithError(d.err).Warn("live query failed")
				_ = stream.SendJSON(map[string]string{"error": d.err.Error()}, "error", "")
				return
			}
			seq++
			if err := stream.SendJSON(d.value, topic, strconv.Itoa(seq)); err != nil {
				log.WithError(err).Debug("client stream closed")
				return
			}
		}
	}
}
