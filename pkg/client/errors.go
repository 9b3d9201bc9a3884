package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrRateLimited is returned when the client-side limiter gives up waiting.
var ErrRateLimited = errors.New("client rate limit exceeded")

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Message    string
	// Fields holds per-field validation messages, when the API sent them.
	Fields map[string][]string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}

// AuthError represents an authentication error.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication error: %s", e.Message)
}

// ConnectionError represents a connection failure.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// decodeError builds an APIError from a failed response body. The backend
// answers with {"detail": ...}, {"error": ...} or a map of field errors.
func decodeError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(body, &generic); err != nil {
		e.Message = strings.TrimSpace(string(body))
		if e.Message == "" {
			e.Message = fmt.Sprintf("unexpected status %d", status)
		}
		return e
	}

	for _, key := range []string{"detail", "error", "non_field_errors"} {
		raw, ok := generic[key]
		if !ok {
			continue
		}
		if msgs := messages(raw); len(msgs) > 0 {
			e.Message = strings.Join(msgs, "; ")
			delete(generic, key)
			break
		}
	}

	if len(generic) > 0 {
		e.Fields = make(map[string][]string, len(generic))
		keys := make([]string, 0, len(generic))
		for k, raw := range generic {
			e.Fields[k] = messages(raw)
			keys = append(keys, k)
		}
		if e.Message == "" {
			sort.Strings(keys)
			parts := make([]string, 0, len(keys))
			for _, k := range keys {
				parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
			}
			e.Message = strings.Join(parts, "; ")
		}
	}

	if e.Message == "" {
		e.Message = fmt.Sprintf("unexpected status %d", status)
	}
	return e
}

func messages(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return []string{string(raw)}
}
