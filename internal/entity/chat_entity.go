package entity

// Message is one turn half in a conversation. Timestamps are Unix
// milliseconds so the local-store round trip is byte-stable.
type Message struct {
	Id        string
	Role      string
	Text      string
	IsError   bool
	CreatedAt int64
}

// ChatSession is one conversation thread. Messages are append-only and
// insertion order is conversation order. Every session carries at least
// the synthetic welcome message.
type ChatSession struct {
	Id        string
	Title     string
	Messages  []*Message
	CreatedAt int64
	UpdatedAt int64
}

// Clone returns a deep copy so snapshot readers never observe in-place
// mutation.
func (s *ChatSession) Clone() *ChatSession {
	messages := make([]*Message, len(s.Messages))
	for i, m := range s.Messages {
		c := *m
		messages[i] = &c
	}
	return &ChatSession{
		Id:        s.Id,
		Title:     s.Title,
		Messages:  messages,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// ChatState is the canonical state owned by the session store for the
// active user.
type ChatState struct {
	Sessions         []*ChatSession
	CurrentSessionId string
}

func (st *ChatState) Clone() *ChatState {
	sessions := make([]*ChatSession, len(st.Sessions))
	for i, s := range st.Sessions {
		sessions[i] = s.Clone()
	}
	return &ChatState{
		Sessions:         sessions,
		CurrentSessionId: st.CurrentSessionId,
	}
}

// CurrentSession returns the session CurrentSessionId points at, or nil.
func (st *ChatState) CurrentSession() *ChatSession {
	return st.Session(st.CurrentSessionId)
}

func (st *ChatState) Session(id string) *ChatSession {
	for _, s := range st.Sessions {
		if s.Id == id {
			return s
		}
	}
	return nil
}
