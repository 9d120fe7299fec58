package service

import (
	"context"
	"encoding/json"
	"time"

	"aayush-bot/internal/entity"
	"aayush-bot/internal/mapper"
	"aayush-bot/internal/pkg/logger"
	"aayush-bot/internal/repository/contract"
	"aayush-bot/pkg/collector"
	"aayush-bot/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// IActivityService maintains the device's known-user history and builds the
// administrative projection. The projection is always computed, never stored
// as independently mutable state.
type IActivityService interface {
	// RecordLogin upserts the user into the device history and announces
	// presence on the sync channel.
	RecordLogin(ctx context.Context, user *entity.User)
	// RecordLogout announces offline presence.
	RecordLogout(ctx context.Context, user *entity.User)

	// KnownUsers returns the device's activity history snapshots.
	KnownUsers(ctx context.Context) []*entity.UserActivity

	// ProjectActivity derives presence by comparing each known user's email
	// against the active user's. Pure; activeUser may be nil.
	ProjectActivity(known []*entity.UserActivity, activeUser *entity.User) []*entity.UserActivity

	// RefreshFromCollector pulls the collector's listing. (nil, nil) means
	// "no update" and the caller keeps what it had.
	RefreshFromCollector(ctx context.Context) ([]*entity.UserActivity, error)
}

type activityService struct {
	localStore contract.LocalStoreRepository
	reader     *collector.Reader
	publisher  message.Publisher
	userMapper *mapper.UserMapper
	log        logger.ILogger
}

func NewActivityService(
	localStore contract.LocalStoreRepository,
	reader *collector.Reader,
	publisher message.Publisher,
	log logger.ILogger,
) IActivityService {
	return &activityService{
		localStore: localStore,
		reader:     reader,
		publisher:  publisher,
		userMapper: mapper.NewUserMapper(),
		log:        log,
	}
}

func (s *activityService) RecordLogin(ctx context.Context, user *entity.User) {
	now := time.Now().UnixMilli()

	history := s.KnownUsers(ctx)
	updated := false
	for _, item := range history {
		if item.Email == user.Email {
			item.Id = user.Id
			item.Name = user.Name
			item.Provider = user.Provider
			item.IsAdmin = user.IsAdmin
			item.LastActive = now
			item.Status = entity.ActivityStatusOnline
			updated = true
			break
		}
	}
	if !updated {
		history = append(history, &entity.UserActivity{
			Id:         user.Id,
			Name:       user.Name,
			Email:      user.Email,
			Provider:   user.Provider,
			IsAdmin:    user.IsAdmin,
			LastActive: now,
			Status:     entity.ActivityStatusOnline,
		})
	}
	s.saveHistory(ctx, history)

	s.publishPresence(user, now, entity.ActivityStatusOnline)
}

func (s *activityService) RecordLogout(ctx context.Context, user *entity.User) {
	now := time.Now().UnixMilli()

	history := s.KnownUsers(ctx)
	for _, item := range history {
		if item.Email == user.Email {
			item.LastActive = now
			item.Status = entity.ActivityStatusOffline
			break
		}
	}
	s.saveHistory(ctx, history)

	s.publishPresence(user, now, entity.ActivityStatusOffline)
}

func (s *activityService) KnownUsers(ctx context.Context) []*entity.UserActivity {
	blob, found, err := s.localStore.Get(ctx, contract.LocalKeyUserHistory)
	if err != nil || !found {
		return nil
	}
	history, err := s.userMapper.DecodeActivities(blob)
	if err != nil {
		return nil
	}
	return history
}

func (s *activityService) ProjectActivity(known []*entity.UserActivity, activeUser *entity.User) []*entity.UserActivity {
	projected := make([]*entity.UserActivity, 0, len(known))
	for _, item := range known {
		c := *item
		if activeUser != nil && c.Email == activeUser.Email {
			c.Status = entity.ActivityStatusOnline
		} else {
			c.Status = entity.ActivityStatusOffline
		}
		projected = append(projected, &c)
	}
	return projected
}

func (s *activityService) RefreshFromCollector(ctx context.Context) ([]*entity.UserActivity, error) {
	records, err := s.reader.FetchActivity(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		return nil, nil
	}

	items := make([]*entity.UserActivity, 0, len(records))
	for _, rec := range records {
		items = append(items, &entity.UserActivity{
			Id:         rec.Id,
			Name:       rec.Name,
			Email:      rec.Email,
			Provider:   entity.UserProvider(rec.Provider),
			IsAdmin:    rec.IsAdmin,
			LastActive: rec.LastActive,
			Status:     entity.ActivityStatus(rec.Status),
		})
	}
	return items, nil
}

func (s *activityService) saveHistory(ctx context.Context, history []*entity.UserActivity) {
	blob, err := s.userMapper.EncodeActivities(history)
	if err != nil {
		return
	}
	if err := s.localStore.Set(ctx, contract.LocalKeyUserHistory, blob); err != nil {
		s.log.Warn("activity", "history write failed, dropping", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *activityService) publishPresence(user *entity.User, at int64, status entity.ActivityStatus) {
	payload, err := json.Marshal(events.PresencePayload{
		Email:      user.Email,
		Name:       user.Name,
		LastActive: at,
		Status:     string(status),
	})
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.publisher.Publish(events.TopicPresence, msg); err != nil {
		s.log.Warn("activity", "presence event dropped", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
