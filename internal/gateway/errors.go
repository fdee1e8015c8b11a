package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultErrorMessage is used when the backend error body carries no message.
const DefaultErrorMessage = "An error occurred"

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	msg := DefaultErrorMessage
	if m := errorMessage(body); m != "" {
		msg = m
	}
	return &APIError{Status: status, Message: msg}
}

// errorMessage extracts a message from a FastAPI-style error body. Validation
// errors carry a list under "detail"; the first entry's "msg" is used.
func errorMessage(body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "message", "error"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
			return items[0].Msg
		}
	}
	return ""
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Message returns the operator-facing text for err: the server message for
// API errors, fallback for anything else.
func Message(err error, fallback string) string {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Message
	}
	return fallback
}
