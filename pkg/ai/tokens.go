package ai

import (
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used by the gpt-4o / text-embedding-3 families.
const DefaultEncoding = "cl100k_base"

// runesPerToken approximates token counts when no BPE is available.
const runesPerToken = 3

// Tokenizer counts and truncates prompt text against a token budget.
// The zero value uses a rune-based approximation.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer loads the named encoding. tiktoken fetches the BPE ranks on
// first use, so an error here usually means no network or cache; callers
// fall back to NewApproxTokenizer.
func NewTokenizer(encoding string) (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{enc: enc}, nil
}

// NewApproxTokenizer returns a tokenizer that estimates one token per three
// runes.
func NewApproxTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	if t == nil || t.enc == nil {
		n := len([]rune(text))
		return (n + runesPerToken - 1) / runesPerToken
	}
	return len(t.enc.EncodeOrdinary(text))
}

// Truncate keeps the leading maxTokens tokens of text. It reports whether
// anything was cut. maxTokens <= 0 disables truncation.
func (t *Tokenizer) Truncate(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return text, false
	}
	if t == nil || t.enc == nil {
		runes := []rune(text)
		limit := maxTokens * runesPerToken
		if len(runes) <= limit {
			return text, false
		}
		return string(runes[:limit]), true
	}

	tokens := t.enc.EncodeOrdinary(text)
	if len(tokens) <= maxTokens {
		return text, false
	}
	return t.enc.Decode(tokens[:maxTokens]), true
}
