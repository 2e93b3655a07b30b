package models

// Document collections.
const (
	CollectionUsers         = "users"
	CollectionProjects      = "projects"
	CollectionTasks         = "tasks"
	CollectionComments      = "comments"
	CollectionActivities    = "activities"
	CollectionShoutouts     = "shoutouts"
	CollectionMoods         = "moods"
	CollectionRefreshTokens = "refreshTokens"
	CollectionSignInGrants  = "signInGrants"
)

// ProjectScoped lists every collection whose documents carry a projectId and
// are removed together with their project.
var ProjectScoped = []string{
	CollectionComments,
	CollectionTasks,
	CollectionActivities,
	CollectionShoutouts,
	CollectionMoods,
}
