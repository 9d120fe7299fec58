package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"aayush-bot/internal/constant"
	"aayush-bot/internal/entity"
	"aayush-bot/internal/mapper"
	"aayush-bot/internal/pkg/logger"
	"aayush-bot/internal/repository/contract"
	"aayush-bot/internal/repository/memory"
	"aayush-bot/pkg/chatbot"
	"aayush-bot/pkg/events"
	"aayush-bot/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ISessionService is the single authoritative holder of the active user's
// chat sessions. Every mutation keeps two invariants: the collection is
// never empty while a user is logged in, and the current session id always
// points into the collection.
type ISessionService interface {
	Login(ctx context.Context, user *entity.User)
	Logout(ctx context.Context)
	CurrentUser() *entity.User

	CreateSession() string
	SelectSession(id string)
	DeleteSession(id string)
	AppendUserMessage(ctx context.Context, text string)

	Snapshot() *entity.ChatState
	Busy(sessionId string) bool
	Updates() <-chan struct{}
}

type sessionService struct {
	provider      chatbot.Provider
	turnRepo      *memory.TurnRepository
	publisher     message.Publisher
	localStore    contract.LocalStoreRepository
	chatMapper    *mapper.ChatMapper
	log           logger.ILogger
	streamTimeout time.Duration

	mu    sync.Mutex
	user  *entity.User
	state entity.ChatState

	updates chan struct{}
}

func NewSessionService(
	provider chatbot.Provider,
	turnRepo *memory.TurnRepository,
	publisher message.Publisher,
	localStore contract.LocalStoreRepository,
	log logger.ILogger,
	streamTimeout time.Duration,
) ISessionService {
	return &sessionService{
		provider:      provider,
		turnRepo:      turnRepo,
		publisher:     publisher,
		localStore:    localStore,
		chatMapper:    mapper.NewChatMapper(),
		log:           log,
		streamTimeout: streamTimeout,
		updates:       make(chan struct{}, 1),
	}
}

// Login swaps in the given user's session collection, loading it from the
// local store when present. There is no cross-user merging.
func (cs *sessionService) Login(ctx context.Context, user *entity.User) {
	cs.mu.Lock()

	cs.user = user
	cs.state = entity.ChatState{}

	key := contract.LocalKeyChatSessionsPrefix + user.Id
	blob, found, err := cs.localStore.Get(ctx, key)
	if err != nil {
		cs.log.Warn("session-store", "local load failed, starting fresh", map[string]interface{}{
			"user_id": user.Id, "error": err.Error(),
		})
	}
	if found && err == nil {
		if sessions, decodeErr := cs.chatMapper.DecodeSessions(blob); decodeErr == nil && len(sessions) > 0 {
			cs.state.Sessions = sessions
			cs.state.CurrentSessionId = mostRecentlyUpdated(sessions).Id
		}
	}
	if len(cs.state.Sessions) == 0 {
		cs.createSessionLocked()
	}
	snapshot := cs.persistPayloadLocked()
	cs.mu.Unlock()

	cs.publishSessionsUpdated(snapshot)
	cs.signal()
}

// Logout discards the collection. Any in-flight streams drain in the
// background; their turn-state clears are keyed by session id and the stale
// fragment checks make them no-ops.
func (cs *sessionService) Logout(ctx context.Context) {
	cs.mu.Lock()
	cs.user = nil
	cs.state = entity.ChatState{}
	cs.mu.Unlock()
	cs.signal()
}

func (cs *sessionService) CurrentUser() *entity.User {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.user == nil {
		return nil
	}
	u := *cs.user
	return &u
}

// CreateSession never fails: it appends a fresh welcome-only session and
// makes it current.
func (cs *sessionService) CreateSession() string {
	cs.mu.Lock()
	session := cs.createSessionLocked()
	snapshot := cs.persistPayloadLocked()
	cs.mu.Unlock()

	cs.publishSessionsUpdated(snapshot)
	cs.signal()
	return session.Id
}

func (cs *sessionService) SelectSession(id string) {
	cs.mu.Lock()
	if cs.state.Session(id) != nil {
		cs.state.CurrentSessionId = id
	}
	cs.mu.Unlock()
	cs.signal()
}

// DeleteSession removes the session; the post-condition "collection is
// non-empty and current points into it" always holds.
func (cs *sessionService) DeleteSession(id string) {
	cs.mu.Lock()
	if cs.state.Session(id) == nil {
		cs.mu.Unlock()
		return
	}

	remaining := make([]*entity.ChatSession, 0, len(cs.state.Sessions)-1)
	for _, s := range cs.state.Sessions {
		if s.Id != id {
			remaining = append(remaining, s)
		}
	}
	cs.state.Sessions = remaining
	cs.turnRepo.Delete(id)

	if cs.state.CurrentSessionId == id {
		if len(remaining) > 0 {
			cs.state.CurrentSessionId = mostRecentlyUpdated(remaining).Id
		} else {
			cs.createSessionLocked()
		}
	}
	snapshot := cs.persistPayloadLocked()
	cs.mu.Unlock()

	cs.publishSessionsUpdated(snapshot)
	cs.signal()
}

// AppendUserMessage opens a conversation turn: user message, title
// derivation, empty placeholder, stream goroutine. Rejections (blank text,
// no user, no current session, turn already in flight) are silent no-ops.
func (cs *sessionService) AppendUserMessage(ctx context.Context, text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}

	cs.mu.Lock()
	if cs.user == nil {
		cs.mu.Unlock()
		return
	}
	session := cs.state.CurrentSession()
	if session == nil {
		cs.mu.Unlock()
		return
	}
	if _, inFlight := cs.turnRepo.Get(session.Id); inFlight {
		cs.mu.Unlock()
		return
	}

	history := replayableHistory(session)
	now := time.Now().UnixMilli()

	if realMessageCount(session) <= 1 {
		session.Title = deriveTitle(trimmed)
	}

	session.Messages = append(session.Messages, &entity.Message{
		Id:        newMessageId(),
		Role:      constant.ChatMessageRoleUser,
		Text:      trimmed,
		CreatedAt: now,
	})

	placeholder := &entity.Message{
		Id:        newMessageId(),
		Role:      constant.ChatMessageRoleModel,
		Text:      "",
		CreatedAt: now,
	}
	session.Messages = append(session.Messages, placeholder)
	session.UpdatedAt = now

	cs.turnRepo.Save(&store.Turn{
		SessionID: session.Id,
		MessageID: placeholder.Id,
		Phase:     store.PhaseAwaitingFirstFragment,
	})

	sessionId := session.Id
	messageId := placeholder.Id
	email := cs.user.Email
	snapshot := cs.persistPayloadLocked()
	cs.mu.Unlock()

	cs.publishSessionsUpdated(snapshot)
	cs.publishChatLine(email, trimmed, constant.ChatMessageRoleUser, now)
	cs.signal()

	go cs.runStream(sessionId, messageId, email, trimmed, history)
}

func (cs *sessionService) Snapshot() *entity.ChatState {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	snap := cs.state.Clone()
	// Display order: most recently updated first.
	sort.SliceStable(snap.Sessions, func(i, j int) bool {
		return snap.Sessions[i].UpdatedAt > snap.Sessions[j].UpdatedAt
	})
	return snap
}

func (cs *sessionService) Busy(sessionId string) bool {
	_, inFlight := cs.turnRepo.Get(sessionId)
	return inFlight
}

// Updates is a coalescing change signal for the presentation layer.
func (cs *sessionService) Updates() <-chan struct{} {
	return cs.updates
}

// runStream drains one conversation turn. It owns the turn's lifecycle end
// to end; all state access goes through the keyed apply/finalize helpers so
// a session deleted mid-stream degrades to dropped fragments.
func (cs *sessionService) runStream(sessionId, messageId, email, text string, history []*chatbot.ChatHistory) {
	ctx, cancel := context.WithTimeout(context.Background(), cs.streamTimeout)
	defer cancel()

	conversation := cs.provider.InitializeChat(history)
	stream, err := conversation.SendMessageStream(ctx, text)
	if err != nil {
		cs.finalizeStream(sessionId, messageId, email, "", err)
		return
	}
	defer stream.Close()

	var full strings.Builder
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			cs.finalizeStream(sessionId, messageId, email, full.String(), nil)
			return
		}
		if err != nil {
			cs.finalizeStream(sessionId, messageId, email, "", err)
			return
		}
		full.WriteString(fragment)
		cs.applyStreamFragment(sessionId, messageId, fragment)
	}
}

// applyStreamFragment folds one fragment into the open placeholder. A
// fragment whose session or placeholder is gone, or that does not match the
// open turn, is dropped without error.
func (cs *sessionService) applyStreamFragment(sessionId, messageId, fragment string) {
	cs.mu.Lock()

	turn, ok := cs.turnRepo.Get(sessionId)
	if !ok || turn.MessageID != messageId {
		cs.mu.Unlock()
		return
	}
	session := cs.state.Session(sessionId)
	if session == nil {
		cs.mu.Unlock()
		return
	}
	msg := findMessage(session, messageId)
	if msg == nil {
		cs.mu.Unlock()
		return
	}

	msg.Text += fragment
	session.UpdatedAt = time.Now().UnixMilli()

	if turn.Phase == store.PhaseAwaitingFirstFragment {
		turn.Phase = store.PhaseStreaming
		cs.turnRepo.Save(turn)
	}

	snapshot := cs.persistPayloadLocked()
	cs.mu.Unlock()

	cs.publishSessionsUpdated(snapshot)
	cs.signal()
}

// finalizeStream closes the turn. The turn-state clear is keyed by session
// id, so it holds even when the session was deleted mid-stream.
func (cs *sessionService) finalizeStream(sessionId, messageId, email, fullText string, streamErr error) {
	now := time.Now().UnixMilli()

	cs.mu.Lock()
	cs.turnRepo.Delete(sessionId)

	session := cs.state.Session(sessionId)
	if session != nil {
		if msg := findMessage(session, messageId); msg != nil {
			if streamErr != nil {
				msg.Text = streamFailureText(streamErr)
				msg.IsError = true
			}
			session.UpdatedAt = now
		}
	}
	snapshot := cs.persistPayloadLocked()
	cs.mu.Unlock()

	cs.publishSessionsUpdated(snapshot)
	if streamErr == nil && fullText != "" {
		cs.publishChatLine(email, fullText, constant.ChatMessageRoleModel, now)
	}
	if streamErr != nil {
		cs.log.Error("session-store", "stream failed", map[string]interface{}{
			"session_id": sessionId,
			"category":   string(chatbot.CategoryOf(streamErr)),
			"error":      streamErr.Error(),
		})
	}
	cs.signal()
}

func (cs *sessionService) createSessionLocked() *entity.ChatSession {
	now := time.Now().UnixMilli()
	session := &entity.ChatSession{
		Id:    newSessionId(),
		Title: constant.DefaultSessionTitle,
		Messages: []*entity.Message{
			{
				Id:        constant.WelcomeMessageId,
				Role:      constant.ChatMessageRoleModel,
				Text:      constant.WelcomeMessageText,
				CreatedAt: now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	cs.state.Sessions = append([]*entity.ChatSession{session}, cs.state.Sessions...)
	cs.state.CurrentSessionId = session.Id
	return session
}

// persistPayloadLocked encodes the sessions-updated event payload under the
// store lock so the blob is a consistent snapshot.
func (cs *sessionService) persistPayloadLocked() []byte {
	if cs.user == nil {
		return nil
	}
	blob, err := cs.chatMapper.EncodeSessions(cs.state.Sessions)
	if err != nil {
		cs.log.Error("session-store", "encode sessions failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	payload, err := json.Marshal(events.SessionsUpdatedPayload{
		UserId:   cs.user.Id,
		Sessions: blob,
	})
	if err != nil {
		return nil
	}
	return payload
}

func (cs *sessionService) publishSessionsUpdated(payload []byte) {
	if payload == nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := cs.publisher.Publish(events.TopicSessionsUpdated, msg); err != nil {
		cs.log.Warn("session-store", "persist event dropped", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (cs *sessionService) publishChatLine(email, text, role string, timestamp int64) {
	payload, err := json.Marshal(events.ChatLinePayload{
		Email:     email,
		Text:      text,
		Role:      role,
		Timestamp: timestamp,
	})
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := cs.publisher.Publish(events.TopicChatLine, msg); err != nil {
		cs.log.Warn("session-store", "chat line event dropped", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (cs *sessionService) signal() {
	select {
	case cs.updates <- struct{}{}:
	default:
	}
}

func streamFailureText(err error) string {
	switch chatbot.CategoryOf(err) {
	case chatbot.CategoryQuota:
		return constant.StreamErrorQuotaText
	case chatbot.CategoryOverloaded:
		return constant.StreamErrorOverloadedText
	default:
		return constant.StreamErrorGenericText
	}
}

func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= constant.SessionTitleMaxLen {
		return text
	}
	return string(runes[:constant.SessionTitleMaxLen]) + constant.SessionTitleSuffix
}

// replayableHistory collects the turns sent as model context: no welcome
// message, no error messages, no empty placeholders.
func replayableHistory(session *entity.ChatSession) []*chatbot.ChatHistory {
	history := make([]*chatbot.ChatHistory, 0, len(session.Messages))
	for _, m := range session.Messages {
		if m.Id == constant.WelcomeMessageId || m.IsError || m.Text == "" {
			continue
		}
		history = append(history, &chatbot.ChatHistory{
			Chat: m.Text,
			Role: m.Role,
		})
	}
	return history
}

func realMessageCount(session *entity.ChatSession) int {
	n := 0
	for _, m := range session.Messages {
		if m.Id != constant.WelcomeMessageId {
			n++
		}
	}
	return n
}

func findMessage(session *entity.ChatSession, id string) *entity.Message {
	for _, m := range session.Messages {
		if m.Id == id {
			return m
		}
	}
	return nil
}

func mostRecentlyUpdated(sessions []*entity.ChatSession) *entity.ChatSession {
	best := sessions[0]
	for _, s := range sessions[1:] {
		if s.UpdatedAt > best.UpdatedAt {
			best = s
		}
	}
	return best
}

// Ids are time-derived and effectively unique within a device. The counter
// keeps ids distinct when two are minted in the same nanosecond.
var idCounter atomic.Int64

func newSessionId() string {
	return strconv.FormatInt(time.Now().UnixNano()+idCounter.Add(1), 10)
}

func newMessageId() string {
	return strconv.FormatInt(time.Now().UnixNano()+idCounter.Add(1), 10)
}
