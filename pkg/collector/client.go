package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"aayush-bot/internal/pkg/logger"
)

// Request bodies match the collector's JSON contract. No response body is
// relied upon.

type PresenceUpdate struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	LastActive int64  `json:"lastActive"`
	Status     string `json:"status"`
}

type ChatLine struct {
	Email     string `json:"email"`
	Text      string `json:"text"`
	Role      string `json:"role"`
	Timestamp int64  `json:"timestamp"`
}

type ActivityRecord struct {
	Id         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Provider   string `json:"provider,omitempty"`
	IsAdmin    bool   `json:"isAdmin,omitempty"`
	LastActive int64  `json:"lastActive"`
	Status     string `json:"status"`
}

// Sync is the write-only, fire-and-forget side of the collector. Every
// transport or server error is logged and dropped here; callers cannot
// observe a failure and the core never reads through this type.
type Sync struct {
	baseURL string
	client  *http.Client
	log     logger.ILogger
}

func NewSync(baseURL string, log logger.ILogger) *Sync {
	return &Sync{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

func (s *Sync) PushPresence(ctx context.Context, update *PresenceUpdate) {
	s.post(ctx, "/api/user/status", update)
}

func (s *Sync) PushChatLine(ctx context.Context, line *ChatLine) {
	s.post(ctx, "/api/user/save-chat", line)
}

func (s *Sync) post(ctx context.Context, path string, payload interface{}) {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("collector-sync", "marshal failed, dropping", map[string]interface{}{
			"path": path, "error": err.Error(),
		})
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewBuffer(payloadJson))
	if err != nil {
		s.log.Warn("collector-sync", "request build failed, dropping", map[string]interface{}{
			"path": path, "error": err.Error(),
		})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("collector-sync", "push failed, dropping", map[string]interface{}{
			"path": path, "error": err.Error(),
		})
		return
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		s.log.Warn("collector-sync", "push rejected, dropping", map[string]interface{}{
			"path": path, "status": res.StatusCode,
		})
	}
}

// Reader performs the explicit administrative pull. It is deliberately not
// part of Sync: the sync channel never reads.
type Reader struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewReader(baseURL, token string) *Reader {
	return &Reader{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchActivity returns the collector's user listing. A non-array response
// yields (nil, nil): no update.
func (r *Reader) FetchActivity(ctx context.Context) ([]*ActivityRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/admin/get-users", nil)
	if err != nil {
		return nil, err
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	res, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"collector: activity fetch got status %d with body %s",
			res.StatusCode, string(body),
		)
	}

	var records []*ActivityRecord
	if err := json.Unmarshal(body, &records); err != nil {
		// Anything but an array means "no update".
		return nil, nil
	}
	return records, nil
}
