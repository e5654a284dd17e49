package prompt

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// charsPerToken is the average character-per-token ratio used by the
// cheap estimator. 4 is conservative for English prose, so estimates
// err toward truncating slightly early rather than overflowing the
// model's context window.
const charsPerToken = 4

const (
	headMarker = " [...]"
	tailMarker = "[...] "
)

// EstimateTokens approximates the token count of text from its byte
// length. It is monotonic in input length and returns 0 for "".
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// Truncate returns text unchanged when it fits within maxTokens.
// Otherwise it keeps the head of the text up to the implied character
// budget and appends a truncation marker. The marker is paid for out of
// the budget, so applying Truncate twice with the same limit is a no-op.
func Truncate(text string, maxTokens int) string {
	if EstimateTokens(text) <= maxTokens {
		return text
	}
	if maxTokens <= 0 {
		return ""
	}
	budget := maxTokens * charsPerToken
	if budget <= len(headMarker) {
		return text[:floorRuneBoundary(text, budget)]
	}
	keep := floorRuneBoundary(text, budget-len(headMarker))
	return text[:keep] + headMarker
}

// TruncateTail is Truncate keeping the newest (trailing) text instead
// of the head. Used for the living document, where recent entries carry
// the current coaching state.
func TruncateTail(text string, maxTokens int) string {
	if EstimateTokens(text) <= maxTokens {
		return text
	}
	if maxTokens <= 0 {
		return ""
	}
	budget := maxTokens * charsPerToken
	if budget <= len(tailMarker) {
		start := ceilRuneBoundary(text, len(text)-budget)
		return text[start:]
	}
	start := ceilRuneBoundary(text, len(text)-(budget-len(tailMarker)))
	return tailMarker + text[start:]
}

// floorRuneBoundary backs i up to the start of the rune containing it,
// so a head cut never splits a UTF-8 sequence.
func floorRuneBoundary(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// ceilRuneBoundary advances i to the next rune start.
func ceilRuneBoundary(s string, i int) int {
	if i < 0 {
		return 0
	}
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

// TiktokenCounter is the precise alternative to EstimateTokens, backed
// by a real BPE tokenizer. The assembler's budgeting deliberately uses
// the cheap estimator; this counter exists for diagnostics and usage
// reporting, falling back to the estimate when the encoding is
// unavailable (e.g. offline without a cached vocabulary).
type TiktokenCounter struct {
	encoder *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter using the cl100k_base encoding,
// which approximates most modern chat models closely enough for
// reporting purposes.
func NewTiktokenCounter() *TiktokenCounter {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &TiktokenCounter{}
	}
	return &TiktokenCounter{encoder: encoder}
}

// Count returns the tokenized length of text, or the cheap estimate
// when no encoder is available.
func (tc *TiktokenCounter) Count(text string) int {
	if tc.encoder == nil {
		return EstimateTokens(text)
	}
	return len(tc.encoder.Encode(text, nil, nil))
}
