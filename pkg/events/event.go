package events

// Watermill topics for the store's side-effect channels. Both channels are
// at-most-once: a failed delivery is logged and dropped, never retried, and
// never feeds back into a state transition.
const (
	TopicSessionsUpdated = "chat.sessions.updated"
	TopicChatLine        = "chat.line.appended"
	TopicPresence        = "user.presence.updated"
)
