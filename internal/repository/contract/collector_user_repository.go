package contract

import (
	"context"
	"time"

	"aayush-bot/internal/model"
)

// CollectorUserRepository persists presence and transcripts on the collector
// side, keyed by email.
type CollectorUserRepository interface {
	// UpsertPresence creates or updates the row for email with the given
	// presence fields.
	UpsertPresence(ctx context.Context, email, name string, online bool, lastActive time.Time) error

	// AppendChatLine pushes one transcript entry onto the user's chats and
	// bumps last_active. Unknown emails get a fresh row.
	AppendChatLine(ctx context.Context, email string, line *model.CollectorChatLine) error

	// FindAllByLastActive returns every known user, most recently active
	// first.
	FindAllByLastActive(ctx context.Context) ([]*model.CollectorUser, error)
}
