package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Janghoon33/AI-Pick/internal/redact"
)

var quotaKeywords = []string{"quota", "credit", "exceeded", "billing"}

// "exceeded" alone also describes plain rate limiting, so it sets the flag but not the kind
var quotaKindKeywords = []string{"quota", "credit", "billing"}

// ParseErrorBody classifies a non-2xx provider response.
// The message is taken from error.message, then message, then a string error field,
// with any echoed credential masked.
func ParseErrorBody(status int, body []byte) *CallFailure {
	failure := &CallFailure{
		HTTPStatus: status,
		Message:    redact.Secrets(errorMessage(status, body)),
	}

	lower := strings.ToLower(failure.Message)
	failure.Quota = containsAny(lower, quotaKeywords)

	failure.Kind = classify(status, containsAny(lower, quotaKindKeywords))
	return failure
}

func errorMessage(status int, body []byte) string {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = "unknown error"
		}
		return fmt.Sprintf("HTTP %d: %s", status, text)
	}

	if msg, ok := lookup(doc, "error.message").(string); ok && msg != "" {
		return msg
	}
	if msg, ok := doc["message"].(string); ok && msg != "" {
		return msg
	}
	if msg, ok := doc["error"].(string); ok && msg != "" {
		return msg
	}
	return fmt.Sprintf("HTTP %d error", status)
}

func classify(status int, quota bool) FailureKind {
	switch {
	case quota:
		return FailureQuotaExceeded
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FailureAuthentication
	case status == http.StatusTooManyRequests:
		return FailureRateLimited
	case status >= 500:
		return FailureUpstream
	default:
		return FailureInvalidRequest
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
