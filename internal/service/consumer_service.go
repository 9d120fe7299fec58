package service

import (
	"context"
	"encoding/json"

	"aayush-bot/internal/pkg/logger"
	"aayush-bot/internal/repository/contract"
	"aayush-bot/pkg/collector"
	"aayush-bot/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// IConsumerService runs the store's two side-effect channels: the local
// persist channel and the remote sync channel. Both are at-most-once;
// every failure is logged and dropped, and nothing here feeds back into a
// state transition.
type IConsumerService interface {
	Start(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	localStore contract.LocalStoreRepository
	sync       *collector.Sync
	log        logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	localStore contract.LocalStoreRepository,
	sync *collector.Sync,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		localStore: localStore,
		sync:       sync,
		log:        log,
	}
}

// Start subscribes to all three topics before returning, so publishes that
// happen right after wiring are never dropped by the non-persistent channel.
// The consuming goroutines run until ctx is done.
func (s *consumerService) Start(ctx context.Context) error {
	sessionsCh, err := s.subscriber.Subscribe(ctx, events.TopicSessionsUpdated)
	if err != nil {
		return err
	}
	chatLineCh, err := s.subscriber.Subscribe(ctx, events.TopicChatLine)
	if err != nil {
		return err
	}
	presenceCh, err := s.subscriber.Subscribe(ctx, events.TopicPresence)
	if err != nil {
		return err
	}

	go s.consumeSessionsUpdated(ctx, sessionsCh)
	go s.consumeChatLines(ctx, chatLineCh)
	go s.consumePresence(ctx, presenceCh)

	return nil
}

func (s *consumerService) consumeSessionsUpdated(ctx context.Context, ch <-chan *message.Message) {
	for msg := range ch {
		var payload events.SessionsUpdatedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			s.log.Warn("persist-consumer", "bad payload, dropping", map[string]interface{}{
				"error": err.Error(),
			})
			msg.Ack()
			continue
		}

		key := contract.LocalKeyChatSessionsPrefix + payload.UserId
		if err := s.localStore.Set(ctx, key, payload.Sessions); err != nil {
			// Best-effort: in-memory state stays authoritative.
			s.log.Warn("persist-consumer", "local write failed, dropping", map[string]interface{}{
				"key": key, "error": err.Error(),
			})
		}
		msg.Ack()
	}
}

func (s *consumerService) consumeChatLines(ctx context.Context, ch <-chan *message.Message) {
	for msg := range ch {
		var payload events.ChatLinePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			msg.Ack()
			continue
		}
		s.sync.PushChatLine(ctx, &collector.ChatLine{
			Email:     payload.Email,
			Text:      payload.Text,
			Role:      payload.Role,
			Timestamp: payload.Timestamp,
		})
		msg.Ack()
	}
}

func (s *consumerService) consumePresence(ctx context.Context, ch <-chan *message.Message) {
	for msg := range ch {
		var payload events.PresencePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			msg.Ack()
			continue
		}
		s.sync.PushPresence(ctx, &collector.PresenceUpdate{
			Email:      payload.Email,
			Name:       payload.Name,
			LastActive: payload.LastActive,
			Status:     payload.Status,
		})
		msg.Ack()
	}
}
