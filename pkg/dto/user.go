package dto

type UserResponse struct {
	UID      string         `json:"uid"`
	Email    string         `json:"email"`
	Name     string         `json:"name"`
	Avatar   string         `json:"avatar,omitempty"`
	Role     string         `json:"role,omitempty"`
	Projects []string       `json:"projects"`
	Points   map[string]int `json:"points"`
}

// UpdateUserRequest leaves nil fields unchanged.
type UpdateUserRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
	Role   *string `json:"role"`
}

type LookupUsersRequest struct {
	UIDs []string `json:"uids"`
}
