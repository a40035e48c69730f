// Package openai serves every provider that speaks the OpenAI chat completions format:
// OpenAI itself, Groq, DeepSeek, Mistral, OpenRouter and Together.
package openai

import (
	"github.com/Janghoon33/AI-Pick/services/providers"
)

// Family is the catalog family name for this wire format
const Family providers.Family = "openai"

var schema = providers.ResponseSchema{
	Answer:       "choices.0.message.content",
	InputTokens:  "usage.prompt_tokens",
	OutputTokens: "usage.completion_tokens",
	TotalTokens:  "usage.total_tokens",
}

// ChatRequest is the chat completions request body
type ChatRequest struct {
	Model     string              `json:"model"`
	Messages  []providers.Message `json:"messages"`
	MaxTokens int                 `json:"max_tokens"`
}

// Adapter implements providers.Adapter for OpenAI-compatible APIs
type Adapter struct {
	providers.Base
}

// New creates an adapter bound to one descriptor
func New(d providers.Descriptor) providers.Adapter {
	return &Adapter{Base: providers.Base{Descriptor: d, Schema: schema}}
}

// BuildRequestBody implements providers.Adapter
func (a *Adapter) BuildRequestBody(question string) any {
	return ChatRequest{
		Model:     a.Descriptor.Model,
		Messages:  providers.UserTurn(question),
		MaxTokens: providers.DefaultMaxTokens,
	}
}

// BuildHeaders implements providers.Adapter
func (a *Adapter) BuildHeaders(secret string) map[string]string {
	return a.Headers(map[string]string{"Authorization": "Bearer " + secret})
}
