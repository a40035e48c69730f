// Package google implements the Gemini generateContent wire format.
// The API key travels as a query parameter rather than a header.
package google

import (
	"net/url"
	"strings"

	"github.com/Janghoon33/AI-Pick/services/providers"
)

// Family is the catalog family name for this wire format
const Family providers.Family = "google"

var schema = providers.ResponseSchema{
	Answer:       "candidates.0.content.parts.0.text",
	InputTokens:  "usageMetadata.promptTokenCount",
	OutputTokens: "usageMetadata.candidatesTokenCount",
	TotalTokens:  "usageMetadata.totalTokenCount",
}

type Part struct {
	Text string `json:"text"`
}

type Content struct {
	Parts []Part `json:"parts"`
}

// GenerateContentRequest is the generateContent request body
type GenerateContentRequest struct {
	Contents []Content `json:"contents"`
}

type Adapter struct {
	providers.Base
}

// New creates an adapter bound to one descriptor
func New(d providers.Descriptor) providers.Adapter {
	return &Adapter{Base: providers.Base{Descriptor: d, Schema: schema}}
}

func (a *Adapter) BuildRequestBody(question string) any {
	return GenerateContentRequest{
		Contents: []Content{{Parts: []Part{{Text: question}}}},
	}
}

// BuildHeaders sends no credentials; see ResolveEndpoint
func (a *Adapter) BuildHeaders(string) map[string]string {
	return a.Headers(nil)
}

// ResolveEndpoint appends key=<secret>, keeping any query already on the endpoint
func (a *Adapter) ResolveEndpoint(secret string) string {
	endpoint := a.Descriptor.Endpoint
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "key=" + url.QueryEscape(secret)
}
