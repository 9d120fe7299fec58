package service

import (
	"context"

	"aayush-bot/internal/entity"
	"aayush-bot/internal/mapper"
	"aayush-bot/internal/pkg/logger"
	"aayush-bot/internal/repository/contract"
)

const (
	ThemeModeDark  = "dark"
	ThemeModeLight = "light"
)

// IPreferenceService owns the small process-wide flags on the local store:
// theme mode and the last logged-in user.
type IPreferenceService interface {
	ThemeMode(ctx context.Context) string
	SetThemeMode(ctx context.Context, mode string)

	SavedUser(ctx context.Context) (*entity.User, bool)
	SaveUser(ctx context.Context, user *entity.User)
	ClearUser(ctx context.Context)
}

type preferenceService struct {
	localStore contract.LocalStoreRepository
	userMapper *mapper.UserMapper
	log        logger.ILogger
}

func NewPreferenceService(localStore contract.LocalStoreRepository, log logger.ILogger) IPreferenceService {
	return &preferenceService{
		localStore: localStore,
		userMapper: mapper.NewUserMapper(),
		log:        log,
	}
}

func (s *preferenceService) ThemeMode(ctx context.Context) string {
	blob, found, err := s.localStore.Get(ctx, contract.LocalKeyThemeMode)
	if err != nil || !found {
		return ThemeModeLight
	}
	if string(blob) == ThemeModeDark {
		return ThemeModeDark
	}
	return ThemeModeLight
}

func (s *preferenceService) SetThemeMode(ctx context.Context, mode string) {
	if mode != ThemeModeDark && mode != ThemeModeLight {
		return
	}
	if err := s.localStore.Set(ctx, contract.LocalKeyThemeMode, []byte(mode)); err != nil {
		s.log.Warn("preferences", "theme write failed, dropping", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *preferenceService) SavedUser(ctx context.Context) (*entity.User, bool) {
	blob, found, err := s.localStore.Get(ctx, contract.LocalKeyUserSession)
	if err != nil || !found {
		return nil, false
	}
	user, err := s.userMapper.DecodeUser(blob)
	if err != nil {
		return nil, false
	}
	return user, true
}

func (s *preferenceService) SaveUser(ctx context.Context, user *entity.User) {
	blob, err := s.userMapper.EncodeUser(user)
	if err != nil {
		return
	}
	if err := s.localStore.Set(ctx, contract.LocalKeyUserSession, blob); err != nil {
		s.log.Warn("preferences", "user write failed, dropping", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *preferenceService) ClearUser(ctx context.Context) {
	if err := s.localStore.Remove(ctx, contract.LocalKeyUserSession); err != nil {
		s.log.Warn("preferences", "user clear failed, dropping", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
