package handlers

import (
	"context"
	"io"
	"time"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/models"
	"github.com/dimitrije/teamboard/internal/oauth"
	"github.com/dimitrije/teamboard/internal/services"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.User, error)
	GetByID(ctx context.Context, uid string) (*models.User, error)
	GetByIDs(ctx context.Context, uids []string) ([]*models.User, error)
	UpdateProfile(ctx context.Context, uid string, update services.ProfileUpdate) (*models.User, error)
}

// TokenServiceInterface defines the methods used by handlers from TokenService
type TokenServiceInterface interface {
	StoreRefreshToken(ctx context.Context, uid, tokenHash string, expiresAt time.Time) error
	ValidateRefreshToken(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, uid string) error
	IssueGrant(ctx context.Context, kind services.GrantKind, uid string, ttl time.Duration) (string, error)
	ConsumeGrant(ctx context.Context, kind services.GrantKind, key string) (string, error)
}

// JWTServiceInterface defines the methods used by handlers from JWTService
type JWTServiceInterface interface {
	GenerateTokenPair(userID, email string) (*services.TokenPair, error)
	ValidateRefreshToken(token string) (string, error)
	RefreshExpiry() time.Duration
}

// ProjectServiceInterface defines the methods used by handlers from ProjectService
type ProjectServiceInterface interface {
	Create(ctx context.Context, creator services.Actor, input services.ProjectInput) (*models.Project, error)
	RequireMember(ctx context.Context, projectID, uid string) (*models.Project, error)
	RequireLeader(ctx context.Context, projectID, uid string) (*models.Project, error)
	Update(ctx context.Context, projectID string, update services.ProjectUpdate) (*models.Project, error)
	ListForUser(ctx context.Context, uid string) ([]*models.Project, error)
	SubscribeProject(ctx context.Context, projectID string, fn func(*models.Project, error)) (docstore.Unsubscribe, error)
}

// MembershipServiceInterface defines the methods used by handlers from MembershipService
type MembershipServiceInterface interface {
	InviteByEmail(ctx context.Context, inviter services.Actor, projectID, email, role string) (*models.User, error)
	JoinByCode(ctx context.Context, member services.Actor, code string) (string, error)
	SubscribeMemberships(ctx context.Context, uid string, fn func([]*models.Project, error)) (docstore.Unsubscribe, error)
}

// CascadeServiceInterface defines the methods used by handlers from CascadeService
type CascadeServiceInterface interface {
	DeleteProject(ctx context.Context, projectID string) error
}

// TaskServiceInterface defines the methods used by handlers from TaskService
type TaskServiceInterface interface {
	Create(ctx context.Context, actor services.Actor, projectID string, input services.TaskInput) (*models.Task, error)
	Get(ctx context.Context, taskID string) (*models.Task, error)
	ChangeStatus(ctx context.Context, actor services.Actor, taskID, status string) (*services.StatusChange, error)
	List(ctx context.Context, projectID string, filter services.TaskFilter) ([]*models.Task, error)
	Subscribe(ctx context.Context, projectID string, fn func([]*models.Task, error)) (docstore.Unsubscribe, error)
	ExportCSV(ctx context.Context, projectID string, w io.Writer) error
}

// AggregationServiceInterface defines the methods used by handlers from AggregationService
type AggregationServiceInterface interface {
	Leaderboard(ctx context.Context, projectID string) ([]services.LeaderboardRow, error)
	SubscribeLeaderboard(ctx context.Context, projectID string, fn func([]services.LeaderboardRow, error)) (docstore.Unsubscribe, error)
	Progress(ctx context.Context, projectID string) (int, error)
	SubscribeProgress(ctx context.Context, projectID string, fn func(int, error)) (docstore.Unsubscribe, error)
	DeadlineAlerts(ctx context.Context, uid string) ([]*models.Task, error)
	SubscribeDeadlineAlerts(ctx context.Context, uid string, fn func([]*models.Task, error)) (docstore.Unsubscribe, error)
}

// ActivityServiceInterface defines the methods used by handlers from ActivityService
type ActivityServiceInterface interface {
	List(ctx context.Context, projectID string) ([]*models.ActivityEntry, error)
	Subscribe(ctx context.Context, projectID string, fn func([]*models.ActivityEntry, error)) (docstore.Unsubscribe, error)
}

// CommentServiceInterface defines the methods used by handlers from CommentService
type CommentServiceInterface interface {
	Add(ctx context.Context, author services.Actor, taskID, text string) (*models.Comment, error)
	Edit(ctx context.Context, actor services.Actor, commentID, text string) (*models.Comment, error)
	Delete(ctx context.Context, actor services.Actor, commentID string) error
	List(ctx context.Context, taskID string) ([]*models.Comment, error)
	Subscribe(ctx context.Context, taskID string, fn func([]*models.Comment, error)) (docstore.Unsubscribe, error)
}

// ShoutoutServiceInterface defines the methods used by handlers from ShoutoutService
type ShoutoutServiceInterface interface {
	Add(ctx context.Context, author services.Actor, projectID string, input services.ShoutoutInput) (*models.Shoutout, error)
	Get(ctx context.Context, id string) (*models.Shoutout, error)
	Update(ctx context.Context, actor services.Actor, id, message, toName string) (*models.Shoutout, error)
	Delete(ctx context.Context, actor services.Actor, id string) error
	Cheer(ctx context.Context, id string) error
	List(ctx context.Context, projectID string) ([]*models.Shoutout, error)
	Subscribe(ctx context.Context, projectID string, fn func([]*models.Shoutout, error)) (docstore.Unsubscribe, error)
}

// MoodServiceInterface defines the methods used by handlers from MoodService
type MoodServiceInterface interface {
	Set(ctx context.Context, actor services.Actor, projectID, mood, note string) (*models.Mood, error)
	Delete(ctx context.Context, actor services.Actor, projectID string) error
	List(ctx context.Context, projectID string) ([]*models.Mood, error)
	Subscribe(ctx context.Context, projectID string, fn func([]*models.Mood, error)) (docstore.Unsubscribe, error)
}
