// Package redact masks credential-shaped substrings in text that may reach
// clients or logs, such as provider error messages that echo the caller's key.
package redact

import (
	"regexp"
	"sort"
)

// Kind identifies the family of a detected secret
type Kind string

const (
	KindOpenAIKey    Kind = "openai_key"
	KindAnthropicKey Kind = "anthropic_key"
	KindGoogleKey    Kind = "google_key"
	KindGroqKey      Kind = "groq_key"
	KindXAIKey       Kind = "xai_key"
	KindBearerToken  Kind = "bearer_token"
	KindJWT          Kind = "jwt"
	KindQueryKey     Kind = "query_key"
)

// Match is one detected secret within a string
type Match struct {
	Kind  Kind
	Start int
	End   int
}

type pattern struct {
	kind Kind
	re   *regexp.Regexp
	// group selects the submatch to mask; 0 masks the whole match
	group int
}

// Order matters: more specific prefixes are listed first so overlapping
// generic matches are skipped.
var patterns = []pattern{
	{kind: KindAnthropicKey, re: regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_\-]{8,}`)},
	{kind: KindOpenAIKey, re: regexp.MustCompile(`\bsk-[A-Za-z0-9_\-*]{8,}`)},
	{kind: KindGoogleKey, re: regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{35}\b`)},
	{kind: KindGroqKey, re: regexp.MustCompile(`\bgsk_[A-Za-z0-9]{16,}\b`)},
	{kind: KindXAIKey, re: regexp.MustCompile(`\bxai-[A-Za-z0-9]{16,}\b`)},
	{kind: KindJWT, re: regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`)},
	{kind: KindBearerToken, re: regexp.MustCompile(`(?i)\bbearer\s+([A-Za-z0-9_\-.=]{16,})`), group: 1},
	{kind: KindQueryKey, re: regexp.MustCompile(`(?i)[?&](?:key|api_key|apikey)=([^&\s"']+)`), group: 1},
}

// Detect returns the non-overlapping secrets found in text, ordered by position
func Detect(text string) []Match {
	var found []Match
	for _, p := range patterns {
		for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := idx[2*p.group], idx[2*p.group+1]
			if start < 0 || overlaps(found, start, end) {
				continue
			}
			found = append(found, Match{Kind: p.kind, Start: start, End: end})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Start < found[j].Start })
	return found
}

// Secrets replaces every detected secret with a placeholder naming its kind
func Secrets(text string) string {
	matches := Detect(text)
	if len(matches) == 0 {
		return text
	}

	out := make([]byte, 0, len(text))
	last := 0
	for _, m := range matches {
		out = append(out, text[last:m.Start]...)
		out = append(out, placeholder(m.Kind)...)
		last = m.End
	}
	out = append(out, text[last:]...)
	return string(out)
}

func placeholder(kind Kind) string {
	switch kind {
	case KindJWT:
		return "[JWT_REDACTED]"
	case KindBearerToken:
		return "[TOKEN_REDACTED]"
	default:
		return "[API_KEY_REDACTED]"
	}
}

func overlaps(found []Match, start, end int) bool {
	for _, m := range found {
		if start < m.End && end > m.Start {
			return true
		}
	}
	return false
}
