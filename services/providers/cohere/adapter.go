// Package cohere implements the Cohere v2 chat wire format.
package cohere

import (
	"github.com/Janghoon33/AI-Pick/services/providers"
)

// Family is the catalog family name for this wire format
const Family providers.Family = "cohere"

var schema = providers.ResponseSchema{
	Answer:       "message.content.0.text",
	InputTokens:  "usage.tokens.input_tokens",
	OutputTokens: "usage.tokens.output_tokens",
}

// ChatRequest is the v2 chat request body
type ChatRequest struct {
	Model    string              `json:"model"`
	Messages []providers.Message `json:"messages"`
}

type Adapter struct {
	providers.Base
}

// New creates an adapter bound to one descriptor
func New(d providers.Descriptor) providers.Adapter {
	return &Adapter{Base: providers.Base{Descriptor: d, Schema: schema}}
}

func (a *Adapter) BuildRequestBody(question string) any {
	return ChatRequest{
		Model:    a.Descriptor.Model,
		Messages: providers.UserTurn(question),
	}
}

func (a *Adapter) BuildHeaders(secret string) map[string]string {
	return a.Headers(map[string]string{"Authorization": "Bearer " + secret})
}
