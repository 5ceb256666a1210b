package openrouter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRecoveryExhausted is returned when context truncation cannot make
// the transcript small enough: either the system prompt alone is still
// rejected, or the attempt cap was reached.
var ErrRecoveryExhausted = errors.New("context recovery exhausted")

// APIError is a generic request failure: a non-200 response that does
// not match the context-length signature.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// ContextLengthError indicates the transcript exceeded the model's
// input capacity. Handled internally by the Chat retry loop; it only
// surfaces when no truncation callback is available.
type ContextLengthError struct {
	Body string
}

func (e *ContextLengthError) Error() string {
	return fmt.Sprintf("context too long: %s", e.Body)
}

// contextLengthKeywords are matched (case-insensitive) against 400
// response bodies to classify context-length rejections.
var contextLengthKeywords = []string{"context", "token", "length", "too long", "maximum"}

func isContextLengthBody(body string) bool {
	lower := strings.ToLower(body)
	for _, kw := range contextLengthKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
