package mapper

import (
	"encoding/json"

	"aayush-bot/internal/entity"
	"aayush-bot/internal/model"
)

// ChatMapper converts between chat entities and their local-store records.
type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) MessageToRecord(msg *entity.Message) *model.MessageRecord {
	return &model.MessageRecord{
		Id:        msg.Id,
		Role:      msg.Role,
		Text:      msg.Text,
		IsError:   msg.IsError,
		Timestamp: msg.CreatedAt,
	}
}

func (m *ChatMapper) MessageToEntity(rec *model.MessageRecord) *entity.Message {
	return &entity.Message{
		Id:        rec.Id,
		Role:      rec.Role,
		Text:      rec.Text,
		IsError:   rec.IsError,
		CreatedAt: rec.Timestamp,
	}
}

func (m *ChatMapper) SessionToRecord(s *entity.ChatSession) *model.ChatSessionRecord {
	messages := make([]*model.MessageRecord, 0, len(s.Messages))
	for _, msg := range s.Messages {
		messages = append(messages, m.MessageToRecord(msg))
	}
	return &model.ChatSessionRecord{
		Id:        s.Id,
		Title:     s.Title,
		Messages:  messages,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (m *ChatMapper) SessionToEntity(rec *model.ChatSessionRecord) *entity.ChatSession {
	messages := make([]*entity.Message, 0, len(rec.Messages))
	for _, msg := range rec.Messages {
		messages = append(messages, m.MessageToEntity(msg))
	}
	return &entity.ChatSession{
		Id:        rec.Id,
		Title:     rec.Title,
		Messages:  messages,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// EncodeSessions serializes a session collection into the blob stored under
// chat_sessions_<userId>.
func (m *ChatMapper) EncodeSessions(sessions []*entity.ChatSession) ([]byte, error) {
	records := make([]*model.ChatSessionRecord, 0, len(sessions))
	for _, s := range sessions {
		records = append(records, m.SessionToRecord(s))
	}
	return json.Marshal(records)
}

func (m *ChatMapper) DecodeSessions(blob []byte) ([]*entity.ChatSession, error) {
	var records []*model.ChatSessionRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, err
	}
	sessions := make([]*entity.ChatSession, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, m.SessionToEntity(rec))
	}
	return sessions, nil
}
