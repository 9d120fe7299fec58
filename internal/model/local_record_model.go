package model

// JSON shapes persisted to the local store. Kept separate from entities so
// the storage format can stay stable while entities evolve.

type MessageRecord struct {
	Id        string `json:"id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	IsError   bool   `json:"isError,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type ChatSessionRecord struct {
	Id        string           `json:"id"`
	Title     string           `json:"title"`
	Messages  []*MessageRecord `json:"messages"`
	CreatedAt int64            `json:"createdAt"`
	UpdatedAt int64            `json:"updatedAt"`
}

type UserRecord struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar,omitempty"`
	Provider  string `json:"provider"`
	IsAdmin   bool   `json:"isAdmin,omitempty"`
}

type UserActivityRecord struct {
	UserRecord
	LastActive int64  `json:"lastActive"`
	Status     string `json:"status"`
}
