package events

import "encoding/json"

// SessionsUpdatedPayload carries a consistent snapshot of the active user's
// session collection for the local persist consumer.
type SessionsUpdatedPayload struct {
	UserId   string          `json:"user_id"`
	Sessions json.RawMessage `json:"sessions"`
}

// ChatLinePayload is one transcript line forwarded to the remote collector.
type ChatLinePayload struct {
	Email     string `json:"email"`
	Text      string `json:"text"`
	Role      string `json:"role"`
	Timestamp int64  `json:"timestamp"`
}

// PresencePayload is a presence change forwarded to the remote collector.
type PresencePayload struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	LastActive int64  `json:"lastActive"`
	Status     string `json:"status"`
}
