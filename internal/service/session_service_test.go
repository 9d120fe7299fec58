package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"aayush-bot/internal/constant"
	"aayush-bot/internal/entity"
	"aayush-bot/internal/mapper"
	"aayush-bot/internal/repository/memory"
	"aayush-bot/pkg/chatbot"
	"aayush-bot/pkg/collector"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- test doubles ---

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// scriptedStream delivers fragments handed to it by the test. Closing the
// fragment channel ends the reply with io.EOF.
type scriptedStream struct {
	fragments chan string
	fail      chan error
}

func newScriptedStream() *scriptedStream {
	return &scriptedStream{
		fragments: make(chan string, 16),
		fail:      make(chan error, 1),
	}
}

func (s *scriptedStream) Recv() (string, error) {
	select {
	case f, ok := <-s.fragments:
		if !ok {
			return "", io.EOF
		}
		return f, nil
	case err := <-s.fail:
		return "", err
	}
}

func (s *scriptedStream) Close() error { return nil }

func (s *scriptedStream) send(fragments ...string) {
	for _, f := range fragments {
		s.fragments <- f
	}
}

func (s *scriptedStream) finish() { close(s.fragments) }

// fakeProvider hands out scripted streams keyed by the message that opens
// the turn and records the history each conversation was seeded with. An
// unscripted message gets an immediately finished stream.
type fakeProvider struct {
	mu        sync.Mutex
	histories [][]*chatbot.ChatHistory
	scripts   map[string]*scriptedStream
}

func (p *fakeProvider) script(message string, s *scriptedStream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scripts == nil {
		p.scripts = make(map[string]*scriptedStream)
	}
	p.scripts[message] = s
}

func (p *fakeProvider) historyAt(i int) []*chatbot.ChatHistory {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= len(p.histories) {
		return nil
	}
	return p.histories[i]
}

func (p *fakeProvider) InitializeChat(history []*chatbot.ChatHistory) chatbot.Conversation {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.histories = append(p.histories, history)
	return &fakeConversation{provider: p}
}

type fakeConversation struct {
	provider *fakeProvider
}

func (c *fakeConversation) SendMessageStream(_ context.Context, message string) (chatbot.Stream, error) {
	c.provider.mu.Lock()
	defer c.provider.mu.Unlock()
	if s, ok := c.provider.scripts[message]; ok {
		delete(c.provider.scripts, message)
		return s, nil
	}
	s := newScriptedStream()
	s.finish()
	return s, nil
}

// --- helpers ---

func newTestService(t *testing.T) (ISessionService, *fakeProvider, *memStore) {
	t.Helper()
	provider := &fakeProvider{}
	store := newMemStore()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })

	svc := NewSessionService(
		provider,
		memory.NewTurnRepository(),
		pubSub,
		store,
		nopLogger{},
		5*time.Second,
	)

	// Persistence rides the event bus, so the consumer runs alongside. The
	// collector endpoint is unreachable on purpose; pushes are best-effort.
	consumer := NewConsumerService(pubSub, store, collector.NewSync("http://127.0.0.1:1", nopLogger{}), nopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, consumer.Start(ctx))

	return svc, provider, store
}

func testUser() *entity.User {
	return &entity.User{
		Id:       "u-1",
		Name:     "Dev",
		Email:    "dev@example.com",
		Provider: entity.UserProviderEmail,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never satisfied")
}

func waitIdle(t *testing.T, svc ISessionService, sessionId string) {
	t.Helper()
	waitFor(t, func() bool { return !svc.Busy(sessionId) })
}

func lastMessage(s *entity.ChatSession) *entity.Message {
	return s.Messages[len(s.Messages)-1]
}

// --- tests ---

func TestLoginCreatesWelcomeSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.Login(context.Background(), testUser())

	state := svc.Snapshot()
	require.Len(t, state.Sessions, 1)

	session := state.CurrentSession()
	require.NotNil(t, session)
	assert.Equal(t, constant.DefaultSessionTitle, session.Title)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, constant.WelcomeMessageId, session.Messages[0].Id)
	assert.Equal(t, constant.WelcomeMessageText, session.Messages[0].Text)
	assert.Equal(t, constant.ChatMessageRoleModel, session.Messages[0].Role)
}

func TestLoginPersistsWelcomeSessionImmediately(t *testing.T) {
	svc, _, store := newTestService(t)
	user := testUser()

	// Login is the first publish after wiring; the consumer must already be
	// subscribed or the welcome-only collection never reaches the store.
	svc.Login(context.Background(), user)

	waitFor(t, func() bool {
		blob, ok, _ := store.Get(context.Background(), "chat_sessions_"+user.Id)
		return ok && strings.Contains(string(blob), constant.WelcomeMessageId)
	})

	blob, ok, err := store.Get(context.Background(), "chat_sessions_"+user.Id)
	require.NoError(t, err)
	require.True(t, ok)
	sessions, err := mapper.NewChatMapper().DecodeSessions(blob)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, constant.DefaultSessionTitle, sessions[0].Title)
}

func TestDeleteLastSessionRegeneratesWelcome(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.Login(context.Background(), testUser())

	oldId := svc.Snapshot().CurrentSessionId
	svc.DeleteSession(oldId)

	state := svc.Snapshot()
	require.Len(t, state.Sessions, 1)
	assert.NotEqual(t, oldId, state.CurrentSessionId)

	session := state.CurrentSession()
	require.NotNil(t, session)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, constant.WelcomeMessageId, session.Messages[0].Id)
}

func TestDeleteFallsBackToMostRecentlyUpdated(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.Login(context.Background(), testUser())

	first := svc.Snapshot().CurrentSessionId
	second := svc.CreateSession()

	svc.DeleteSession(second)

	state := svc.Snapshot()
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, first, state.CurrentSessionId)
}

func TestWhitespaceMessageIsNoOp(t *testing.T) {
	svc, provider, _ := newTestService(t)
	svc.Login(context.Background(), testUser())

	before := svc.Snapshot().CurrentSession()
	svc.AppendUserMessage(context.Background(), "   \t  ")

	state := svc.Snapshot()
	session := state.CurrentSession()
	assert.Len(t, session.Messages, len(before.Messages))
	assert.Equal(t, before.UpdatedAt, session.UpdatedAt)
	assert.False(t, svc.Busy(session.Id))
	assert.Nil(t, provider.historyAt(0))
}

func TestTitleDerivedFromFirstMessage(t *testing.T) {
	svc, provider, _ := newTestService(t)
	svc.Login(context.Background(), testUser())
	sessionId := svc.Snapshot().CurrentSessionId

	long := strings.Repeat("abcde ", 7) // 42 runes
	stream := newScriptedStream()
	stream.finish()
	provider.script(strings.TrimSpace(long), stream)

	svc.AppendUserMessage(context.Background(), long)
	waitIdle(t, svc, sessionId)

	title := svc.Snapshot().Session(sessionId).Title
	assert.Equal(t, string([]rune(long)[:constant.SessionTitleMaxLen])+constant.SessionTitleSuffix, title)
	assert.Len(t, []rune(title), constant.SessionTitleMaxLen+len(constant.SessionTitleSuffix))

	// A short first message becomes the title verbatim.
	svc.CreateSession()
	shortId := svc.Snapshot().CurrentSessionId
	stream2 := newScriptedStream()
	stream2.finish()
	provider.script("hello there", stream2)

	svc.AppendUserMessage(context.Background(), "hello there")
	waitIdle(t, svc, shortId)
	assert.Equal(t, "hello there", svc.Snapshot().Session(shortId).Title)
}

func TestFragmentsFoldInOrder(t *testing.T) {
	svc, provider, _ := newTestService(t)
	svc.Login(context.Background(), testUser())
	sessionId := svc.Snapshot().CurrentSessionId

	stream := newScriptedStream()
	provider.script("say hi", stream)

	svc.AppendUserMessage(context.Background(), "say hi")
	require.True(t, svc.Busy(sessionId))

	stream.send("Hel", "lo, ", "world")
	waitFor(t, func() bool {
		return lastMessage(svc.Snapshot().Session(sessionId)).Text == "Hello, world"
	})
	stream.finish()
	waitIdle(t, svc, sessionId)

	reply := lastMessage(svc.Snapshot().Session(sessionId))
	assert.Equal(t, "Hello, world", reply.Text)
	assert.Equal(t, constant.ChatMessageRoleModel, reply.Role)
	assert.False(t, reply.IsError)
}

func TestSecondMessageRejectedWhileStreaming(t *testing.T) {
	svc, provider, _ := newTestService(t)
	svc.Login(context.Background(), testUser())
	sessionId := svc.Snapshot().CurrentSessionId

	stream := newScriptedStream()
	provider.script("first", stream)

	svc.AppendUserMessage(context.Background(), "first")
	countBefore := len(svc.Snapshot().Session(sessionId).Messages)

	svc.AppendUserMessage(context.Background(), "second")
	assert.Len(t, svc.Snapshot().Session(sessionId).Messages, countBefore)

	stream.finish()
	waitIdle(t, svc, sessionId)
}

func TestStaleFragmentsDroppedAfterDelete(t *testing.T) {
	svc, provider, _ := newTestService(t)
	svc.Login(context.Background(), testUser())
	sessionId := svc.Snapshot().CurrentSessionId

	stream := newScriptedStream()
	provider.script("doomed", stream)

	svc.AppendUserMessage(context.Background(), "doomed")
	stream.send("partial")
	waitFor(t, func() bool {
		return lastMessage(svc.Snapshot().Session(sessionId)).Text == "partial"
	})

	svc.DeleteSession(sessionId)
	replacement := svc.Snapshot().CurrentSessionId
	require.NotEqual(t, sessionId, replacement)

	// Late fragments and the close must land nowhere.
	stream.send(" more")
	stream.finish()
	waitIdle(t, svc, sessionId)

	state := svc.Snapshot()
	assert.Nil(t, state.Session(sessionId))
	session := state.Session(replacement)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, constant.WelcomeMessageId, session.Messages[0].Id)
}

func TestConcurrentSessionsStreamIndependently(t *testing.T) {
	svc, provider, _ := newTestService(t)
	svc.Login(context.Background(), testUser())

	sessionA := svc.Snapshot().CurrentSessionId
	streamA := newScriptedStream()
	provider.script("question A", streamA)
	svc.AppendUserMessage(context.Background(), "question A")

	sessionB := svc.CreateSession()
	streamB := newScriptedStream()
	provider.script("question B", streamB)
	svc.AppendUserMessage(context.Background(), "question B")

	require.True(t, svc.Busy(sessionA))
	require.True(t, svc.Busy(sessionB))

	streamB.send("reply B")
	streamB.finish()
	waitIdle(t, svc, sessionB)

	streamA.send("reply A")
	streamA.finish()
	waitIdle(t, svc, sessionA)

	state := svc.Snapshot()
	assert.Equal(t, "reply A", lastMessage(state.Session(sessionA)).Text)
	assert.Equal(t, "reply B", lastMessage(state.Session(sessionB)).Text)
}

func TestQuotaFailureProducesSingleErrorMessage(t *testing.T) {
	svc, provider, _ := newTestService(t)
	svc.Login(context.Background(), testUser())
	sessionId := svc.Snapshot().CurrentSessionId

	stream := newScriptedStream()
	provider.script("burn the quota", stream)

	svc.AppendUserMessage(context.Background(), "burn the quota")
	stream.fail <- &chatbot.StreamError{
		Category:   chatbot.CategoryQuota,
		StatusCode: 429,
		Status:     "RESOURCE_EXHAUSTED",
	}
	waitIdle(t, svc, sessionId)

	session := svc.Snapshot().Session(sessionId)
	reply := lastMessage(session)
	assert.Equal(t, constant.StreamErrorQuotaText, reply.Text)
	assert.True(t, reply.IsError)

	errorCount := 0
	for _, m := range session.Messages {
		if m.IsError {
			errorCount++
		}
	}
	assert.Equal(t, 1, errorCount)
}

func TestOverloadedFailureText(t *testing.T) {
	svc, provider, _ := newTestService(t)
	svc.Login(context.Background(), testUser())
	sessionId := svc.Snapshot().CurrentSessionId

	stream := newScriptedStream()
	provider.script("anything", stream)

	svc.AppendUserMessage(context.Background(), "anything")
	stream.fail <- &chatbot.StreamError{Category: chatbot.CategoryOverloaded, StatusCode: 503}
	waitIdle(t, svc, sessionId)

	reply := lastMessage(svc.Snapshot().Session(sessionId))
	assert.Equal(t, constant.StreamErrorOverloadedText, reply.Text)
	assert.True(t, reply.IsError)
}

func TestHistoryExcludesWelcomeAndErrors(t *testing.T) {
	svc, provider, _ := newTestService(t)
	svc.Login(context.Background(), testUser())
	sessionId := svc.Snapshot().CurrentSessionId

	failing := newScriptedStream()
	provider.script("first question", failing)
	svc.AppendUserMessage(context.Background(), "first question")
	failing.fail <- &chatbot.StreamError{Category: chatbot.CategoryUnknown}
	waitIdle(t, svc, sessionId)

	ok := newScriptedStream()
	ok.finish()
	provider.script("second question", ok)
	svc.AppendUserMessage(context.Background(), "second question")
	waitIdle(t, svc, sessionId)

	// First turn: no prior real messages at all.
	assert.Empty(t, provider.historyAt(0))

	// Second turn: only the first user message survives filtering; the
	// welcome greeting and the error reply are never replayed.
	history := provider.historyAt(1)
	require.Len(t, history, 1)
	assert.Equal(t, "first question", history[0].Chat)
	assert.Equal(t, constant.ChatMessageRoleUser, history[0].Role)
}

func TestLoginRestoresPersistedSessions(t *testing.T) {
	svc, _, store := newTestService(t)
	user := testUser()

	older := &entity.ChatSession{
		Id:        "s-old",
		Title:     "older one",
		Messages:  []*entity.Message{{Id: "m1", Role: constant.ChatMessageRoleUser, Text: "hi", CreatedAt: 100}},
		CreatedAt: 100,
		UpdatedAt: 100,
	}
	newer := &entity.ChatSession{
		Id:        "s-new",
		Title:     "newer one",
		Messages:  []*entity.Message{{Id: "m2", Role: constant.ChatMessageRoleUser, Text: "yo", CreatedAt: 200}},
		CreatedAt: 200,
		UpdatedAt: 200,
	}
	blob, err := mapper.NewChatMapper().EncodeSessions([]*entity.ChatSession{older, newer})
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), "chat_sessions_"+user.Id, blob))

	svc.Login(context.Background(), user)

	state := svc.Snapshot()
	require.Len(t, state.Sessions, 2)
	assert.Equal(t, "s-new", state.CurrentSessionId)
	assert.Equal(t, "older one", state.Session("s-old").Title)
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	svc, provider, store := newTestService(t)
	alice := &entity.User{Id: "alice", Name: "Alice", Email: "alice@example.com", Provider: entity.UserProviderEmail}
	bob := &entity.User{Id: "bob", Name: "Bob", Email: "bob@example.com", Provider: entity.UserProviderEmail}

	svc.Login(context.Background(), alice)
	aliceSession := svc.Snapshot().CurrentSessionId
	stream := newScriptedStream()
	stream.finish()
	provider.script("alice's secret", stream)
	svc.AppendUserMessage(context.Background(), "alice's secret")
	waitIdle(t, svc, aliceSession)

	// Wait for the consumer to flush the collection to the local store.
	waitFor(t, func() bool {
		blob, ok, _ := store.Get(context.Background(), "chat_sessions_alice")
		return ok && strings.Contains(string(blob), "alice's secret")
	})

	svc.Login(context.Background(), bob)
	state := svc.Snapshot()
	require.Len(t, state.Sessions, 1)
	assert.Nil(t, state.Session(aliceSession))

	// Alice's collection comes back intact.
	svc.Login(context.Background(), alice)
	restored := svc.Snapshot().Session(aliceSession)
	require.NotNil(t, restored)
	assert.Equal(t, "alice's secret", restored.Title)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.Login(context.Background(), testUser())

	snap := svc.Snapshot()
	snap.Sessions[0].Title = "mutated"
	snap.Sessions[0].Messages[0].Text = "mutated"

	fresh := svc.Snapshot()
	assert.Equal(t, constant.DefaultSessionTitle, fresh.Sessions[0].Title)
	assert.Equal(t, constant.WelcomeMessageText, fresh.Sessions[0].Messages[0].Text)
}

func TestSnapshotOrdersByMostRecentlyUpdated(t *testing.T) {
	svc, provider, _ := newTestService(t)
	svc.Login(context.Background(), testUser())

	first := svc.Snapshot().CurrentSessionId
	svc.CreateSession()

	// Touch the first session so it sorts ahead again. The sleep keeps the
	// two UpdatedAt millisecond stamps distinct.
	time.Sleep(5 * time.Millisecond)
	svc.SelectSession(first)
	stream := newScriptedStream()
	stream.finish()
	provider.script("bump", stream)
	svc.AppendUserMessage(context.Background(), "bump")
	waitIdle(t, svc, first)

	state := svc.Snapshot()
	require.Len(t, state.Sessions, 2)
	assert.Equal(t, first, state.Sessions[0].Id)
}
