// Package anthropic implements the Messages API wire format.
package anthropic

import (
	"github.com/Janghoon33/AI-Pick/services/providers"
)

// Family is the catalog family name for this wire format
const Family providers.Family = "anthropic"

// APIVersion is sent as anthropic-version on every request
const APIVersion = "2023-06-01"

var schema = providers.ResponseSchema{
	Answer:       "content.0.text",
	InputTokens:  "usage.input_tokens",
	OutputTokens: "usage.output_tokens",
}

// MessagesRequest is the Messages API request body
type MessagesRequest struct {
	Model     string              `json:"model"`
	MaxTokens int                 `json:"max_tokens"`
	Messages  []providers.Message `json:"messages"`
}

type Adapter struct {
	providers.Base
}

// New creates an adapter bound to one descriptor
func New(d providers.Descriptor) providers.Adapter {
	return &Adapter{Base: providers.Base{Descriptor: d, Schema: schema}}
}

func (a *Adapter) BuildRequestBody(question string) any {
	return MessagesRequest{
		Model:     a.Descriptor.Model,
		MaxTokens: providers.DefaultMaxTokens,
		Messages:  providers.UserTurn(question),
	}
}

func (a *Adapter) BuildHeaders(secret string) map[string]string {
	return a.Headers(map[string]string{
		"x-api-key":         secret,
		"anthropic-version": APIVersion,
	})
}
