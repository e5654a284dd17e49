package prompt

import (
	"strings"

	"github.com/rs/zerolog"
)

// section is one candidate block of the system prompt: what to say,
// under which heading, and how many tokens it may spend. A section
// whose text is empty or whitespace-only is omitted entirely.
type section struct {
	name   string
	label  string
	text   string
	budget int
	tail   bool // keep the newest text when over budget instead of the head
}

const sectionSeparator = "\n\n---\n\n"

// renderSections truncates each section to its allocation, drops the
// blank ones, and joins the survivors with headings and separators.
// The heading and separator are charged against the section's budget,
// so the rendered size of every block stays within its allocation.
func renderSections(logger zerolog.Logger, sections []section) string {
	var blocks []string
	for _, s := range sections {
		text := strings.TrimSpace(s.text)
		if text == "" {
			continue
		}

		heading := "## " + s.label + "\n\n"
		overhead := EstimateTokens(heading) + EstimateTokens(sectionSeparator)
		if s.tail {
			text = TruncateTail(text, s.budget-overhead)
		} else {
			text = Truncate(text, s.budget-overhead)
		}
		if text == "" {
			continue
		}

		blocks = append(blocks, heading+text)
		logger.Debug().
			Str("section", s.name).
			Int("tokens", EstimateTokens(text)).
			Int("budget", s.budget).
			Msg("section rendered")
	}
	return strings.Join(blocks, sectionSeparator)
}
