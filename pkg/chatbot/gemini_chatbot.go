package chatbot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

type GeminiChatParts struct {
	Text string `json:"text"`
}

type GeminiChatContent struct {
	Parts []*GeminiChatParts `json:"parts"`
	Role  string             `json:"role,omitempty"`
}

type GeminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type GeminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type GeminiChatRequest struct {
	Contents          []*GeminiChatContent    `json:"contents"`
	SystemInstruction *GeminiChatContent      `json:"systemInstruction,omitempty"`
	SafetySettings    []*GeminiSafetySetting  `json:"safetySettings,omitempty"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiChatCandidate struct {
	Content *GeminiChatContent `json:"content"`
}

type GeminiChatResponse struct {
	Candidates []*GeminiChatCandidate `json:"candidates"`
}

const (
	ChatMessageRoleUser  = "user"
	ChatMessageRoleModel = "model"

	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-3-flash-preview"
)

// Safety thresholds are a fixed per-instance policy, not renegotiable per
// call.
var safetySettings = []*GeminiSafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_ONLY_HIGH"},
}

type GeminiConfig struct {
	APIKey            string
	BaseURL           string // defaults to the public endpoint
	Model             string
	SystemInstruction string
	Temperature       float64
}

// GeminiClient streams replies from the Gemini generateContent SSE endpoint.
type GeminiClient struct {
	cfg    GeminiConfig
	client *http.Client
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &GeminiClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

func (c *GeminiClient) InitializeChat(history []*ChatHistory) Conversation {
	contents := make([]*GeminiChatContent, 0, len(history))
	for _, h := range history {
		contents = append(contents, &GeminiChatContent{
			Parts: []*GeminiChatParts{{Text: h.Chat}},
			Role:  h.Role,
		})
	}
	return &geminiConversation{
		client:   c,
		contents: contents,
	}
}

// geminiConversation accumulates contents across sends so repeated calls
// reuse the context established at initialization.
type geminiConversation struct {
	client *GeminiClient

	mu       sync.Mutex
	contents []*GeminiChatContent
}

func (conv *geminiConversation) SendMessageStream(ctx context.Context, message string) (Stream, error) {
	conv.mu.Lock()
	conv.contents = append(conv.contents, &GeminiChatContent{
		Parts: []*GeminiChatParts{{Text: message}},
		Role:  ChatMessageRoleUser,
	})
	contents := make([]*GeminiChatContent, len(conv.contents))
	copy(contents, conv.contents)
	conv.mu.Unlock()

	cfg := conv.client.cfg
	payload := GeminiChatRequest{
		Contents:       contents,
		SafetySettings: safetySettings,
		GenerationConfig: &GeminiGenerationConfig{
			Temperature: cfg.Temperature,
		},
	}
	if cfg.SystemInstruction != "" {
		payload.SystemInstruction = &GeminiChatContent{
			Parts: []*GeminiChatParts{{Text: cfg.SystemInstruction}},
		}
	}

	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf(
		"%s/models/%s:streamGenerateContent?alt=sse",
		cfg.BaseURL, cfg.Model,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadJson))
	if err != nil {
		return nil, err
	}

	req.Header.Set("x-goog-api-key", cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := conv.client.client.Do(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		resBody, readErr := io.ReadAll(res.Body)
		_ = res.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		return nil, classify(res.StatusCode, resBody)
	}

	scanner := bufio.NewScanner(res.Body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	return &geminiStream{
		conv:    conv,
		body:    res.Body,
		scanner: scanner,
	}, nil
}

// recordReply folds the completed model turn back into the conversation
// context.
func (conv *geminiConversation) recordReply(text string) {
	conv.mu.Lock()
	defer conv.mu.Unlock()
	conv.contents = append(conv.contents, &GeminiChatContent{
		Parts: []*GeminiChatParts{{Text: text}},
		Role:  ChatMessageRoleModel,
	})
}

// geminiStream parses SSE data lines into text fragments. Single-pass, not
// replayable.
type geminiStream struct {
	conv    *geminiConversation
	body    io.ReadCloser
	scanner *bufio.Scanner
	full    strings.Builder
	done    bool
}

func (s *geminiStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk GeminiChatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("chatbot: decoding stream chunk: %w", err)
		}
		text := chunkText(&chunk)
		if text == "" {
			continue
		}
		s.full.WriteString(text)
		return text, nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("chatbot: reading stream: %w", err)
	}

	s.done = true
	s.conv.recordReply(s.full.String())
	return "", io.EOF
}

func (s *geminiStream) Close() error {
	return s.body.Close()
}

func chunkText(chunk *GeminiChatResponse) string {
	if len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range chunk.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
