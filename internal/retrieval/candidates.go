package retrieval

import (
	"strings"

	"github.com/scrypster/reverie/internal/styleprofile"
)

// maxCandidates bounds the targeted search fan-out per utterance.
const maxCandidates = 8

// minCandidateLength filters out tokens too short to be meaningful topics.
const minCandidateLength = 4

// ExtractCandidates derives topic/entity search candidates from an
// utterance: significant tokens above the length/stopword filter, adjacent
// two-word phrases of those tokens, and configured topic expansions
// triggered by matching tokens. The order is deterministic: tokens in
// utterance order, then phrases, then expansions.
func (r *Retriever) ExtractCandidates(utterance string) []string {
	tokens := styleprofile.Tokenize(utterance)

	var significant []string
	seen := make(map[string]struct{})
	for _, token := range tokens {
		if len(token) < minCandidateLength || r.lex.IsStopword(token) {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		significant = append(significant, token)
	}

	candidates := make([]string, 0, maxCandidates)
	add := func(c string) {
		if len(candidates) == maxCandidates {
			return
		}
		for _, existing := range candidates {
			if existing == c {
				return
			}
		}
		candidates = append(candidates, c)
	}

	for _, token := range significant {
		add(token)
	}

	// Two-word phrases from adjacent significant tokens.
	for i := 0; i+1 < len(significant); i++ {
		add(significant[i] + " " + significant[i+1])
	}

	// Hand-triggered topic expansions, e.g. a work-like token pulls in
	// "work situation".
	for _, token := range significant {
		for _, expansion := range r.lex.TopicExpansions[token] {
			add(expansion)
		}
	}
	return candidates
}

// containsFold reports whether text contains candidate, case-insensitively.
func containsFold(text, candidate string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(candidate))
}
