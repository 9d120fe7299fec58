package store

// Turn is the in-flight streaming state for one session. A session with no
// Turn entry is idle; only one turn may be open per session at a time.
type Turn struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"` // the open placeholder message
	Phase     string `json:"phase"`
}

const (
	// PhaseAwaitingFirstFragment: the placeholder exists but no text has
	// arrived yet.
	PhaseAwaitingFirstFragment = "AWAITING_FIRST_FRAGMENT"
	// PhaseStreaming: at least one fragment has been folded in.
	PhaseStreaming = "STREAMING"
)
