package dto

type CommentRequest struct {
	Text string `json:"text"`
}

type CreateShoutoutRequest struct {
	Message string  `json:"message"`
	ToUser  *string `json:"to_user"`
	ToName  string  `json:"to_name"`
}

type UpdateShoutoutRequest struct {
	Message string `json:"message"`
	ToName  string `json:"to_name"`
}

type SetMoodRequest struct {
	Mood string `json:"mood"`
	Note string `json:"note"`
}
