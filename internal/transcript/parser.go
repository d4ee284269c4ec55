// Package transcript turns raw chat export text into typed message records
// for one participant.
//
// Export formats differ by platform and locale, so parsing tries an ordered
// list of timestamp grammars per line; the first match wins and unmatched
// lines are dropped silently. System notices (media placeholders, encryption
// banners) are filtered out before the participant filter is applied.
package transcript

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/scrypster/reverie/pkg/types"
)

// grammar is one supported timestamp pattern. The regexp must expose the
// named groups date, time, sender and content.
type grammar struct {
	name    string
	pattern *regexp.Regexp
}

// grammars is the ordered list of supported line formats. Order matters:
// the bracketed variants are tried first because their prefix is unambiguous.
var grammars = []grammar{
	{
		// [12/31/21, 9:15:30 PM] Mom: see you soon
		name:    "bracketed-12h",
		pattern: regexp.MustCompile(`^\[(?P<date>\d{1,2}/\d{1,2}/\d{2,4}),?\s+(?P<time>\d{1,2}:\d{2}(?::\d{2})?\s?[AP]M)\]\s+(?P<sender>[^:]+):\s?(?P<content>.*)$`),
	},
	{
		// [31.12.21, 21:15:30] Mom: see you soon
		name:    "bracketed-24h",
		pattern: regexp.MustCompile(`^\[(?P<date>\d{1,2}[./]\d{1,2}[./]\d{2,4}),?\s+(?P<time>\d{1,2}:\d{2}(?::\d{2})?)\]\s+(?P<sender>[^:]+):\s?(?P<content>.*)$`),
	},
	{
		// 12/31/21, 21:15 - Mom: see you soon
		name:    "dash-separated",
		pattern: regexp.MustCompile(`^(?P<date>\d{1,2}/\d{1,2}/\d{2,4}),?\s+(?P<time>\d{1,2}:\d{2}(?:\s?[AP]M)?)\s+-\s+(?P<sender>[^:]+):\s?(?P<content>.*)$`),
	},
	{
		// 31.12.2021, 21:15 - Mom: see you soon
		name:    "dot-date",
		pattern: regexp.MustCompile(`^(?P<date>\d{1,2}\.\d{1,2}\.\d{2,4}),?\s+(?P<time>\d{1,2}:\d{2}(?::\d{2})?)\s+-\s+(?P<sender>[^:]+):\s?(?P<content>.*)$`),
	},
}

// systemMessageMarkers are case-insensitive substrings identifying platform
// notices rather than real participant messages.
var systemMessageMarkers = []string{
	"<media omitted>",
	"image omitted",
	"video omitted",
	"audio omitted",
	"sticker omitted",
	"gif omitted",
	"document omitted",
	"missed voice call",
	"missed video call",
	"messages and calls are end-to-end encrypted",
	"this message was deleted",
	"you deleted this message",
	"created group",
	"changed the subject",
	"security code changed",
}

// minContentLength is the shortest content (in characters) kept after
// trimming; anything at or below it carries no stylistic signal.
const minContentLength = 3

// timestampLayouts are tried in order when reconstructing a sortable time
// from the extracted date and time strings.
var timestampLayouts = []string{
	"1/2/06, 3:04:05 PM",
	"1/2/06, 3:04 PM",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006, 3:04 PM",
	"1/2/06, 15:04:05",
	"1/2/06, 15:04",
	"1/2/2006, 15:04:05",
	"1/2/2006, 15:04",
	"2.1.06, 15:04:05",
	"2.1.06, 15:04",
	"2.1.2006, 15:04:05",
	"2.1.2006, 15:04",
}

// Stats reports what the parser did with the raw input.
type Stats struct {
	TotalLines    int
	MatchedLines  int
	SkippedSystem int
	SkippedShort  int
	Kept          int
}

// Parse extracts the messages authored by participant from raw export text.
//
// Validation failures are returned as *types.ValidationError: empty input,
// fewer than 5 non-blank lines, zero qualifying messages for the
// participant, or fewer than minMessages qualifying messages (too little
// data for a useful style profile).
//
// The returned messages are chronologically sorted by their reconstructed
// timestamps.
func Parse(raw string, participant string, minMessages int) ([]types.Message, *Stats, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil, types.NewValidationError("transcript is empty")
	}
	if strings.TrimSpace(participant) == "" {
		return nil, nil, types.NewValidationError("participant name is required")
	}

	lines := strings.Split(raw, "\n")
	stats := &Stats{}
	nonBlank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonBlank++
		}
	}
	stats.TotalLines = nonBlank
	if nonBlank < 5 {
		return nil, stats, types.NewValidationError("transcript has only %d non-blank lines, need at least 5", nonBlank)
	}

	var messages []types.Message
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimPrefix(line, "‎"))
		if line == "" {
			continue
		}

		msg, ok := parseLine(line)
		if !ok {
			continue
		}
		stats.MatchedLines++

		if isSystemMessage(msg.Content) {
			stats.SkippedSystem++
			continue
		}
		if len([]rune(msg.Content)) <= minContentLength {
			stats.SkippedShort++
			continue
		}
		if msg.Sender != participant {
			continue
		}

		stats.Kept++
		messages = append(messages, msg)
	}

	if len(messages) == 0 {
		return nil, stats, types.NewValidationError("participant %q has no messages in this transcript", participant)
	}
	if len(messages) < minMessages {
		return nil, stats, types.NewValidationError("participant %q has only %d messages, need at least %d for a useful profile", participant, len(messages), minMessages)
	}

	sortChronologically(messages)
	return messages, stats, nil
}

// parseLine tries each grammar in order and extracts a message from the
// first match. Returns false when no grammar matches.
func parseLine(line string) (types.Message, bool) {
	for _, g := range grammars {
		match := g.pattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		groups := map[string]string{}
		for i, name := range g.pattern.SubexpNames() {
			if name != "" && i < len(match) {
				groups[name] = match[i]
			}
		}

		content := strings.TrimSpace(groups["content"])
		sender := strings.TrimSpace(groups["sender"])
		if sender == "" {
			return types.Message{}, false
		}
		return types.Message{
			Content:   content,
			Sender:    sender,
			Timestamp: groups["date"] + ", " + groups["time"],
		}, true
	}
	return types.Message{}, false
}

// isSystemMessage reports whether content contains any system-notice marker,
// matched case-insensitively.
func isSystemMessage(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range systemMessageMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// sortChronologically sorts messages by their reconstructed timestamps.
// Timestamps that fail to parse under every known layout keep their original
// relative order (stable sort against zero times).
func sortChronologically(messages []types.Message) {
	type keyed struct {
		at  time.Time
		msg types.Message
	}
	entries := make([]keyed, len(messages))
	for i, m := range messages {
		entries[i] = keyed{at: parseTimestamp(m.Timestamp), msg: m}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].at.IsZero() || entries[j].at.IsZero() {
			return false
		}
		return entries[i].at.Before(entries[j].at)
	})
	for i, e := range entries {
		messages[i] = e.msg
	}
}

// parseTimestamp attempts each known layout and returns the zero time when
// none matches.
func parseTimestamp(ts string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}
