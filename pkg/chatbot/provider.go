package chatbot

import "context"

// ChatHistory is one prior turn replayed as conversation context.
type ChatHistory struct {
	Chat string
	Role string
}

// Provider opens stateful conversations with a language-generation service.
type Provider interface {
	// InitializeChat establishes a conversation seeded with prior turns.
	// Each returned conversation carries its own context, so sessions can
	// stream concurrently without sharing state.
	InitializeChat(history []*ChatHistory) Conversation
}

// Conversation accepts user utterances against the context established at
// initialization. Successive sends reuse the accumulated context.
type Conversation interface {
	SendMessageStream(ctx context.Context, message string) (Stream, error)
}

// Stream is a single-pass, ordered sequence of reply fragments. Recv returns
// io.EOF after the final fragment of a successful reply; any other error
// carries a *StreamError category when the provider could classify it.
type Stream interface {
	Recv() (string, error)
	Close() error
}
