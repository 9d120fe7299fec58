package dto

// Bodies of the collector's write endpoints. No response contract beyond a
// success envelope is relied upon by clients.

type PresenceUpdateRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	LastActive int64  `json:"lastActive"`
	Status     string `json:"status"`
}

type SaveChatRequest struct {
	Email     string `json:"email"`
	Text      string `json:"text"`
	Role      string `json:"role"`
	Timestamp int64  `json:"timestamp"`
}

// UserActivityResponse is one row of the admin listing. The endpoint returns
// a bare array of these, most recently active first.
type UserActivityResponse struct {
	Id         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	LastActive int64  `json:"lastActive"`
	Status     string `json:"status"`
}
