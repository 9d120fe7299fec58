package contract

import "context"

// Local store keys. Values are opaque JSON blobs owned by the services.
const (
	LocalKeyUserSession = "user_session"
	LocalKeyUserHistory = "app_user_history"
	LocalKeyThemeMode   = "theme_mode"

	// LocalKeyChatSessionsPrefix + userId holds that user's session
	// collection.
	LocalKeyChatSessionsPrefix = "chat_sessions_"
)

// LocalStoreRepository is durable key-value persistence scoped to the
// device. Each Set replaces the whole value, so a reader never observes a
// partial write. Callers treat failures as best-effort: in-memory state
// stays authoritative for the running process.
type LocalStoreRepository interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
