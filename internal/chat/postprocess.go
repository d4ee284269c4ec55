package chat

import (
	"regexp"
	"strings"
)

// newlineRuns matches runs of 3 or more newlines (blank-line padding the
// model sometimes emits).
var newlineRuns = regexp.MustCompile(`\n{3,}`)

// PostProcess cleans a generated response: whitespace trimmed, runs of 3+
// newlines collapsed to 2, and the whole text hard-truncated to maxChars.
func PostProcess(response string, maxChars int) string {
	cleaned := strings.TrimSpace(response)
	cleaned = newlineRuns.ReplaceAllString(cleaned, "\n\n")

	if maxChars > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxChars {
			cleaned = strings.TrimSpace(string(runes[:maxChars]))
		}
	}
	return cleaned
}
