package validation

import (
	"strings"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// DefaultForbiddenPhrases are hedging and filler phrases that must never
// appear in a delivered narrative
var DefaultForbiddenPhrases = []string{
	"as an AI",
	"I cannot",
	"world-class",
	"best-in-class",
	"it goes without saying",
	"needless to say",
	"synergy",
	"low-hanging fruit",
}

// ForbiddenMatches scans every section body for forbidden phrases,
// case-insensitively, and returns the distinct phrases found in their
// original casing
func ForbiddenMatches(draft *types.Draft, phrases []string) []string {
	if len(phrases) == 0 {
		return nil
	}

	var body strings.Builder
	for _, section := range draft.Sections {
		body.WriteString(section.Title)
		body.WriteString("\n")
		body.WriteString(section.Body)
		body.WriteString("\n")
	}
	normalizedBody := strings.ToLower(body.String())

	var found []string
	seen := make(map[string]bool)
	for _, phrase := range phrases {
		normalized := strings.ToLower(strings.TrimSpace(phrase))
		if normalized == "" || seen[normalized] {
			continue
		}
		if strings.Contains(normalizedBody, normalized) {
			found = append(found, phrase)
			seen[normalized] = true
		}
	}

	if len(found) == 0 {
		return nil
	}
	return found
}
