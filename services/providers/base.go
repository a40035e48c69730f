package providers

// DefaultMaxTokens caps completion length for families that accept a limit
const DefaultMaxTokens = 1000

// Message is a single chat turn in OpenAI-style payloads
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserTurn returns the one-message conversation for a question
func UserTurn(question string) []Message {
	return []Message{{Role: "user", Content: question}}
}

// Base carries the parts every adapter shares. Family packages embed it
// and supply BuildRequestBody and BuildHeaders.
type Base struct {
	Descriptor Descriptor
	Schema     ResponseSchema
}

// ParseSuccess implements Adapter
func (b Base) ParseSuccess(body []byte) Completion {
	return b.Schema.Parse(body)
}

// ParseError implements Adapter
func (b Base) ParseError(status int, body []byte) *CallFailure {
	return ParseErrorBody(status, body)
}

// ResolveEndpoint implements Adapter. The endpoint is the descriptor's, unchanged.
func (b Base) ResolveEndpoint(string) string {
	return b.Descriptor.Endpoint
}

// Headers returns Content-Type, the descriptor's static headers and auth, in increasing precedence
func (b Base) Headers(auth map[string]string) map[string]string {
	h := make(map[string]string, 1+len(b.Descriptor.Headers)+len(auth))
	h["Content-Type"] = "application/json"
	for k, v := range b.Descriptor.Headers {
		h[k] = v
	}
	for k, v := range auth {
		h[k] = v
	}
	return h
}
