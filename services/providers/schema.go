package providers

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ResponseSchema locates the answer and token counts in a success body.
// Paths are dot separated; numeric segments index arrays ("choices.0.message.content").
// An empty TotalTokens path means the total is input plus output.
type ResponseSchema struct {
	Answer       string
	InputTokens  string
	OutputTokens string
	TotalTokens  string
}

// Parse extracts a Completion from body. Malformed or partial bodies
// degrade to NoAnswer and zero counts.
func (s ResponseSchema) Parse(body []byte) Completion {
	out := Completion{Answer: NoAnswer}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return out
	}

	if text, ok := lookup(doc, s.Answer).(string); ok && text != "" {
		out.Answer = text
	}

	out.Usage.InputTokens = count(lookup(doc, s.InputTokens))
	out.Usage.OutputTokens = count(lookup(doc, s.OutputTokens))
	if s.TotalTokens != "" {
		out.Usage.TotalTokens = count(lookup(doc, s.TotalTokens))
	} else {
		out.Usage.TotalTokens = out.Usage.InputTokens + out.Usage.OutputTokens
	}

	return out
}

// lookup walks a decoded JSON document. It returns nil when any segment is missing.
func lookup(doc any, path string) any {
	if path == "" {
		return nil
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

func count(v any) int {
	if n, ok := v.(float64); ok && n > 0 {
		return int(n)
	}
	return 0
}
