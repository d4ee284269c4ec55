package chat

import (
	"strings"

	"github.com/scrypster/reverie/internal/styleprofile"
)

// RepetitionReport flags ways the new utterance repeats recent ones.
type RepetitionReport struct {
	// IsRepetitive is true when any repetition class fired.
	IsRepetitive bool

	// IdenticalRepeat: the normalized utterance matches a recent one exactly.
	IdenticalRepeat bool

	// TravelRepeat: another travel/planning-style question after a recent one.
	TravelRepeat bool

	// BareLocationRepeat: another bare "where"/"which" question after a
	// recent one.
	BareLocationRepeat bool
}

// travelMarkers identify travel/planning-style questions.
var travelMarkers = []string{
	"travel", "trip", "vacation", "holiday", "visit", "fly", "flight",
	"where should we go", "where to go", "destination",
}

// DetectRepetition compares the new utterance against the last K user
// utterances (most recent first). Pattern classes are deliberately simple:
// exact normalized repeats, repeated travel/planning questions, and
// repeated bare where/which questions.
func DetectRepetition(utterance string, recentUserMessages []string, window int) RepetitionReport {
	report := RepetitionReport{}
	if window <= 0 {
		window = 5
	}
	if len(recentUserMessages) > window {
		recentUserMessages = recentUserMessages[:window]
	}

	normalized := normalize(utterance)
	for _, prev := range recentUserMessages {
		if normalize(prev) == normalized {
			report.IdenticalRepeat = true
			break
		}
	}

	if isTravelQuestion(utterance) {
		for _, prev := range recentUserMessages {
			if isTravelQuestion(prev) {
				report.TravelRepeat = true
				break
			}
		}
	}

	if isBareLocationQuestion(utterance) {
		for _, prev := range recentUserMessages {
			if isBareLocationQuestion(prev) {
				report.BareLocationRepeat = true
				break
			}
		}
	}

	report.IsRepetitive = report.IdenticalRepeat || report.TravelRepeat || report.BareLocationRepeat
	return report
}

// Directives renders mitigation instructions for the flagged classes.
func (r RepetitionReport) Directives() []string {
	if !r.IsRepetitive {
		return nil
	}
	directives := []string{
		"The user is repeating themselves. Acknowledge that naturally instead of answering as if it were new.",
		"Vary your phrasing; do not reuse the wording of your previous answers.",
	}
	if r.TravelRepeat || r.BareLocationRepeat {
		directives = append(directives, "Avoid asking basic follow-up questions about the same plans again.")
	}
	return directives
}

// normalize lowercases and collapses an utterance to its token sequence so
// trivial punctuation or spacing differences still count as repeats.
func normalize(utterance string) string {
	return strings.Join(styleprofile.Tokenize(utterance), " ")
}

func isTravelQuestion(utterance string) bool {
	if !strings.Contains(utterance, "?") {
		return false
	}
	lower := strings.ToLower(utterance)
	for _, marker := range travelMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// isBareLocationQuestion matches short questions opening with where/which.
func isBareLocationQuestion(utterance string) bool {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	if !strings.HasSuffix(lower, "?") {
		return false
	}
	if !strings.HasPrefix(lower, "where") && !strings.HasPrefix(lower, "which") {
		return false
	}
	return len(strings.Fields(lower)) <= 5
}
