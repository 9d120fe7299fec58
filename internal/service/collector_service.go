package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"aayush-bot/internal/dto"
	"aayush-bot/internal/entity"
	"aayush-bot/internal/model"
	"aayush-bot/internal/pkg/logger"
	"aayush-bot/internal/repository/contract"
)

// ICollectorService is the server-side counterpart of the client's sync
// adapter: it records presence beats and chat lines, and serves the admin
// activity listing.
type ICollectorService interface {
	UpdatePresence(ctx context.Context, req *dto.PresenceUpdateRequest) error
	SaveChatLine(ctx context.Context, req *dto.SaveChatRequest) error
	ListUsers(ctx context.Context) ([]*dto.UserActivityResponse, error)
}

type collectorService struct {
	userRepo contract.CollectorUserRepository
	log      logger.ILogger
}

func NewCollectorService(userRepo contract.CollectorUserRepository, log logger.ILogger) ICollectorService {
	return &collectorService{
		userRepo: userRepo,
		log:      log,
	}
}

func (s *collectorService) UpdatePresence(ctx context.Context, req *dto.PresenceUpdateRequest) error {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return errors.New("email is required")
	}

	lastActive := time.UnixMilli(req.LastActive)
	if req.LastActive == 0 {
		lastActive = time.Now()
	}
	online := req.Status == string(entity.ActivityStatusOnline)

	if err := s.userRepo.UpsertPresence(ctx, email, req.Name, online, lastActive); err != nil {
		s.log.Error("collector_service", "failed to upsert presence", map[string]interface{}{
			"email": email,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (s *collectorService) SaveChatLine(ctx context.Context, req *dto.SaveChatRequest) error {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return errors.New("email is required")
	}
	if req.Text == "" {
		return errors.New("text is required")
	}

	line := &model.CollectorChatLine{
		Text:      req.Text,
		Role:      req.Role,
		Timestamp: req.Timestamp,
	}
	if line.Timestamp == 0 {
		line.Timestamp = time.Now().UnixMilli()
	}

	if err := s.userRepo.AppendChatLine(ctx, email, line); err != nil {
		s.log.Error("collector_service", "failed to append chat line", map[string]interface{}{
			"email": email,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (s *collectorService) ListUsers(ctx context.Context) ([]*dto.UserActivityResponse, error) {
	users, err := s.userRepo.FindAllByLastActive(ctx)
	if err != nil {
		s.log.Error("collector_service", "failed to list users", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	records := make([]*dto.UserActivityResponse, 0, len(users))
	for _, u := range users {
		status := entity.ActivityStatusOffline
		if u.IsOnline {
			status = entity.ActivityStatusOnline
		}
		records = append(records, &dto.UserActivityResponse{
			Id:         u.Id.String(),
			Name:       u.Name,
			Email:      u.Email,
			LastActive: u.LastActive.UnixMilli(),
			Status:     string(status),
		})
	}
	return records, nil
}
