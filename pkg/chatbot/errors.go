package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCategory is the provider-level failure taxonomy the session store
// maps to user-facing messages.
type ErrorCategory string

const (
	CategoryQuota      ErrorCategory = "quota"
	CategoryOverloaded ErrorCategory = "overloaded"
	CategoryUnknown    ErrorCategory = "unknown"
)

// StreamError is a classified stream transport failure.
type StreamError struct {
	Category   ErrorCategory
	StatusCode int
	Status     string
	Message    string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf(
		"chatbot: stream failed (%s), got status %d %s: %s",
		e.Category, e.StatusCode, e.Status, e.Message,
	)
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// classify builds a StreamError from an HTTP status and error body. The
// structured Gemini status field is the primary signal; lowercase substring
// sniffing of the body is only the fallback for providers that omit it.
func classify(statusCode int, body []byte) *StreamError {
	se := &StreamError{
		Category:   CategoryUnknown,
		StatusCode: statusCode,
		Message:    string(body),
	}

	var parsed geminiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Status != "" {
		se.Status = parsed.Error.Status
		se.Message = parsed.Error.Message
	}

	switch {
	case se.Status == "RESOURCE_EXHAUSTED" || statusCode == http.StatusTooManyRequests:
		se.Category = CategoryQuota
	case se.Status == "UNAVAILABLE" || statusCode == http.StatusServiceUnavailable:
		se.Category = CategoryOverloaded
	default:
		lower := strings.ToLower(string(body))
		if strings.Contains(lower, "quota") {
			se.Category = CategoryQuota
		} else if strings.Contains(lower, "overload") {
			se.Category = CategoryOverloaded
		}
	}

	return se
}

// CategoryOf extracts the category from any stream error. Deadline expiry is
// a transient failure by contract.
func CategoryOf(err error) ErrorCategory {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryOverloaded
	}
	return CategoryUnknown
}
