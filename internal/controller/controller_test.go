package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aayush-bot/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCollectorService struct {
	presence []*dto.PresenceUpdateRequest
	lines    []*dto.SaveChatRequest
	users    []*dto.UserActivityResponse
}

func (f *fakeCollectorService) UpdatePresence(_ context.Context, req *dto.PresenceUpdateRequest) error {
	if req.Email == "" {
		return errEmailRequired
	}
	f.presence = append(f.presence, req)
	return nil
}

func (f *fakeCollectorService) SaveChatLine(_ context.Context, req *dto.SaveChatRequest) error {
	if req.Email == "" {
		return errEmailRequired
	}
	f.lines = append(f.lines, req)
	return nil
}

func (f *fakeCollectorService) ListUsers(_ context.Context) ([]*dto.UserActivityResponse, error) {
	return f.users, nil
}

var errEmailRequired = fiber.NewError(fiber.StatusBadRequest, "email is required")

func newTestApp(svc *fakeCollectorService) *fiber.App {
	app := fiber.New()
	api := app.Group("/api")
	NewUserController(svc).RegisterRoutes(api)
	NewAdminController(svc).RegisterRoutes(api)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	require.NoError(t, err)
	return res
}

func TestUpdateStatusEndpoint(t *testing.T) {
	svc := &fakeCollectorService{}
	app := newTestApp(svc)

	res := postJSON(t, app, "/api/user/status", dto.PresenceUpdateRequest{
		Email:      "dev@example.com",
		Name:       "Dev",
		LastActive: 1234,
		Status:     "online",
	})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	require.Len(t, svc.presence, 1)
	assert.Equal(t, "dev@example.com", svc.presence[0].Email)
}

func TestUpdateStatusRejectsMissingEmail(t *testing.T) {
	app := newTestApp(&fakeCollectorService{})

	res := postJSON(t, app, "/api/user/status", dto.PresenceUpdateRequest{Status: "online"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSaveChatEndpoint(t *testing.T) {
	svc := &fakeCollectorService{}
	app := newTestApp(svc)

	res := postJSON(t, app, "/api/user/save-chat", dto.SaveChatRequest{
		Email:     "dev@example.com",
		Text:      "hello",
		Role:      "user",
		Timestamp: 99,
	})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	require.Len(t, svc.lines, 1)
	assert.Equal(t, "hello", svc.lines[0].Text)
}

func TestGetUsersRequiresAdminToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newTestApp(&fakeCollectorService{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/get-users", nil)
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	// A valid token without the admin role is still rejected.
	req = httptest.NewRequest(http.MethodGet, "/api/admin/get-users", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "test-secret", "user"))
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestGetUsersReturnsBareArray(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	svc := &fakeCollectorService{
		users: []*dto.UserActivityResponse{
			{Id: "1", Name: "Dev", Email: "dev@example.com", LastActive: 5, Status: "online"},
		},
	}
	app := newTestApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/get-users", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "test-secret", "admin"))
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// Bare array, not an envelope: clients sniff the leading bracket.
	var listing []*dto.UserActivityResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&listing))
	require.Len(t, listing, 1)
	assert.Equal(t, "dev@example.com", listing[0].Email)
}

func mintToken(t *testing.T, secret, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}
