// Package router classifies inbound messages into a cost/capability
// tier and selects a model for each tier. Classification is a pure
// ordered decision table over the message text: no I/O, no per-call
// state, first match wins.
package router

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Tier is the coarse cost/capability class of a message.
type Tier string

const (
	TierFast     Tier = "fast"
	TierBalanced Tier = "balanced"
	TierDeep     Tier = "deep"
)

// ModelRef names a concrete model at a provider.
type ModelRef struct {
	Provider string
	Model    string
}

// ModelMap assigns a model to each tier.
type ModelMap map[Tier]ModelRef

// DefaultModelMap is used when the configuration does not override the
// tier assignments.
func DefaultModelMap() ModelMap {
	return ModelMap{
		TierFast:     {Provider: "openai", Model: "gpt-4o-mini"},
		TierBalanced: {Provider: "openai", Model: "gpt-4o"},
		TierDeep:     {Provider: "anthropic", Model: "claude-3-5-sonnet-20241022"},
	}
}

// Decision is the routing outcome for one message. Reasoning records
// which rule fired, for observability.
type Decision struct {
	Tier      Tier
	Model     string
	Provider  string
	Reasoning string
}

const (
	shortMessageChars = 20
	longMessageChars  = 600
)

// greetingPattern matches simple greetings and acknowledgements that
// need no capable model at all.
var greetingPattern = regexp.MustCompile(`(?i)^(hi|hiya|hey|hello|yo|ok|okay|sure|yes|no|yep|nope|maybe|thanks|thank you|ty|got it|sounds good|will do|good morning|good night|goodnight|bye|goodbye|see you)[.!? ]*$`)

// deepPatterns match existential or root-cause phrasings that deserve
// the most capable model.
var deepPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwhy (do|does|am|are|is|can'?t|don'?t|won'?t|keep|always|never)\b`),
	regexp.MustCompile(`(?i)\bwhat does (it|this|that) (really )?mean\b`),
	regexp.MustCompile(`(?i)\bwhat('s| is) the (point|meaning|purpose) of\b`),
	regexp.MustCompile(`(?i)\bhow (do|can|should|would) i\b`),
	regexp.MustCompile(`(?i)\bstruggling (with|to)\b`),
	regexp.MustCompile(`(?i)\broot cause\b`),
	regexp.MustCompile(`(?i)\bwho am i\b`),
	regexp.MustCompile(`(?i)\bpurpose in life\b`),
}

// emotionKeywords push a message to the balanced tier: emotionally
// loaded content deserves more care than a fast model gives.
var emotionKeywords = []string{
	"overwhelmed", "anxious", "anxiety", "stressed", "stress",
	"frustrated", "frustrating", "burned out", "burnout", "exhausted",
	"sad", "angry", "afraid", "scared", "worried", "guilty", "ashamed",
	"lonely", "hopeless", "stuck", "depressed", "panic",
}

// Router maps classified tiers to configured models. The model map can
// be swapped on config reload; classification itself never changes.
type Router struct {
	mu     sync.RWMutex
	models ModelMap
}

// New creates a Router. A nil or incomplete model map falls back to the
// defaults per tier.
func New(models ModelMap) *Router {
	merged := DefaultModelMap()
	for tier, ref := range models {
		merged[tier] = ref
	}
	return &Router{models: merged}
}

// SetModels replaces the tier→model assignments (used on config reload).
// Tiers missing from the new map keep their defaults.
func (r *Router) SetModels(models ModelMap) {
	merged := DefaultModelMap()
	for tier, ref := range models {
		merged[tier] = ref
	}
	r.mu.Lock()
	r.models = merged
	r.mu.Unlock()
}

// Route classifies a message and returns the tier, model, and the rule
// that fired. Rules are evaluated in order; the first match wins.
func (r *Router) Route(content string) Decision {
	trimmed := strings.TrimSpace(content)

	if greetingPattern.MatchString(trimmed) {
		return r.decide(TierFast, "matched greeting/acknowledgement pattern")
	}
	if len(trimmed) < shortMessageChars {
		return r.decide(TierFast, fmt.Sprintf("short message (%d chars, threshold %d)", len(trimmed), shortMessageChars))
	}

	for _, p := range deepPatterns {
		if p.MatchString(trimmed) {
			return r.decide(TierDeep, fmt.Sprintf("matched deep-question pattern %q", p.String()))
		}
	}

	lower := strings.ToLower(trimmed)
	for _, kw := range emotionKeywords {
		if strings.Contains(lower, kw) {
			return r.decide(TierBalanced, fmt.Sprintf("contains emotional vocabulary %q", kw))
		}
	}
	if len(trimmed) > longMessageChars {
		return r.decide(TierBalanced, fmt.Sprintf("long message (%d chars, threshold %d)", len(trimmed), longMessageChars))
	}

	return r.decide(TierFast, "no routing rule matched, defaulting to fast tier")
}

func (r *Router) decide(tier Tier, reasoning string) Decision {
	r.mu.RLock()
	ref := r.models[tier]
	r.mu.RUnlock()
	return Decision{
		Tier:      tier,
		Model:     ref.Model,
		Provider:  ref.Provider,
		Reasoning: reasoning,
	}
}
