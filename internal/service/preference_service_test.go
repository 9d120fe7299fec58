package service

import (
	"context"
	"testing"

	"aayush-bot/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemeModeDefaultsToLight(t *testing.T) {
	svc := NewPreferenceService(newMemStore(), nopLogger{})
	assert.Equal(t, ThemeModeLight, svc.ThemeMode(context.Background()))
}

func TestThemeModeRoundTrip(t *testing.T) {
	svc := NewPreferenceService(newMemStore(), nopLogger{})
	ctx := context.Background()

	svc.SetThemeMode(ctx, ThemeModeDark)
	assert.Equal(t, ThemeModeDark, svc.ThemeMode(ctx))

	// Unknown modes are ignored, not stored.
	svc.SetThemeMode(ctx, "hotdog-stand")
	assert.Equal(t, ThemeModeDark, svc.ThemeMode(ctx))
}

func TestSavedUserRoundTrip(t *testing.T) {
	svc := NewPreferenceService(newMemStore(), nopLogger{})
	ctx := context.Background()

	_, ok := svc.SavedUser(ctx)
	assert.False(t, ok)

	svc.SaveUser(ctx, &entity.User{
		Id:       "u-1",
		Name:     "Dev",
		Email:    "dev@example.com",
		Provider: entity.UserProviderGoogle,
		IsAdmin:  true,
	})

	user, ok := svc.SavedUser(ctx)
	require.True(t, ok)
	assert.Equal(t, "u-1", user.Id)
	assert.Equal(t, entity.UserProviderGoogle, user.Provider)
	assert.True(t, user.IsAdmin)

	svc.ClearUser(ctx)
	_, ok = svc.SavedUser(ctx)
	assert.False(t, ok)
}
