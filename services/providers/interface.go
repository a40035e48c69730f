package providers

// NoAnswer is returned as the answer text when a successful response carries none
const NoAnswer = "응답 없음"

// Adapter translates between the gateway's uniform call shape and one provider wire format.
// Implementations hold no mutable state and are safe for concurrent use.
type Adapter interface {
	// BuildRequestBody returns the JSON-encodable payload for a single-turn question
	BuildRequestBody(question string) any

	// BuildHeaders returns the outbound HTTP headers, including authentication
	BuildHeaders(secret string) map[string]string

	// ResolveEndpoint returns the URL to POST to
	ResolveEndpoint(secret string) string

	// ParseSuccess extracts the answer and token usage from a 2xx body.
	// It never fails: missing fields degrade to NoAnswer and zero counts.
	ParseSuccess(body []byte) Completion

	// ParseError classifies a non-2xx response. It never fails.
	ParseError(status int, body []byte) *CallFailure
}

// Completion is the normalized payload of a successful provider call
type Completion struct {
	Answer string `json:"answer"`
	Usage  Usage  `json:"usage"`
}

// Usage represents token usage statistics
type Usage struct {
	// InputTokens used in the request
	InputTokens int `json:"input"`

	// OutputTokens used in the response
	OutputTokens int `json:"output"`

	// TotalTokens as reported by the provider, or the sum when it reports none
	TotalTokens int `json:"total"`
}

// FailureKind classifies why a provider rejected a call
type FailureKind string

const (
	FailureAuthentication FailureKind = "authentication"
	FailureRateLimited    FailureKind = "rate_limited"
	FailureQuotaExceeded  FailureKind = "quota_exceeded"
	FailureInvalidRequest FailureKind = "invalid_request"
	FailureUpstream       FailureKind = "upstream_error"
)

// CallFailure describes a non-2xx provider response
type CallFailure struct {
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
	HTTPStatus int         `json:"http_status"`

	// Quota is set when the message mentions billing or exhausted credit
	Quota bool `json:"quota"`
}

// Error implements the error interface
func (f *CallFailure) Error() string {
	return f.Message
}
