package prompt

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StalenessAnalyzer is the default GapAnalyzer: it flags living-document
// sections that have not been touched recently so the assistant can ask
// about developments instead of reasoning from stale notes.
type StalenessAnalyzer struct {
	MaxAge time.Duration
	Now    func() time.Time // overridable for tests; nil means time.Now
}

// NewStalenessAnalyzer flags sections older than maxAge.
func NewStalenessAnalyzer(maxAge time.Duration) *StalenessAnalyzer {
	return &StalenessAnalyzer{MaxAge: maxAge}
}

// SectionGap returns a hint naming the stale sections, or "" when
// everything is fresh or no section carries a timestamp.
func (a *StalenessAnalyzer) SectionGap(_ context.Context, sections []DocumentSection) (string, error) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	cutoff := now().Add(-a.MaxAge).Unix()

	var stale []string
	for _, s := range sections {
		if s.UpdatedAt > 0 && s.UpdatedAt < cutoff {
			stale = append(stale, s.Title)
		}
	}
	if len(stale) == 0 {
		return "", nil
	}

	days := int(a.MaxAge.Hours() / 24)
	return fmt.Sprintf(
		"The following client context sections have not been updated in over %d days: %s. Consider gently asking about recent developments in these areas.",
		days, strings.Join(stale, ", ")), nil
}
