package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnavailable indicates the backend is unreachable.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrTimeout indicates a call exceeded the configured timeout.
	ErrTimeout = errors.New("backend request timed out")

	// ErrUnauthorized indicates a missing, expired or insufficient token.
	ErrUnauthorized = errors.New("not authorized")

	// ErrNotFound indicates the addressed record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownResource indicates a resource name with no endpoint table.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrNoSpreadsheetEndpoint indicates a resource without spreadsheet support.
	ErrNoSpreadsheetEndpoint = errors.New("resource has no spreadsheet endpoint")
)

// StatusError is a non-2xx response. Detail holds the first field error of
// a validation body, formatted as "field - message".
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Detail)
}

// Is maps auth and not-found statuses onto the sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// messageKeys carry a plain message rather than a field error.
var messageKeys = map[string]bool{"detail": true, "error": true, "message": true, "non_field_errors": true}

const maxDetailLen = 200

// errorDetail extracts a readable message from an error body. JSON objects
// yield their first key in document order.
func errorDetail(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	if body[0] != '{' {
		return truncate(string(body))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if _, err := dec.Token(); err != nil {
		return truncate(string(body))
	}
	if !dec.More() {
		return ""
	}
	tok, err := dec.Token()
	if err != nil {
		return truncate(string(body))
	}
	field, _ := tok.(string)
	var value any
	if err := dec.Decode(&value); err != nil {
		return truncate(string(body))
	}
	msg := firstMessage(value)
	if messageKeys[field] {
		return truncate(msg)
	}
	return truncate(field + " - " + msg)
}

func firstMessage(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			return firstMessage(t[0])
		}
		return ""
	case map[string]any:
		for _, inner := range t {
			return firstMessage(inner)
		}
		return ""
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxDetailLen {
		return string(r[:maxDetailLen]) + "…"
	}
	return s
}
