// Package chat assembles bounded generation payloads and runs the
// synchronous chat turn: retrieval, composition, generation and
// post-processing, with graceful degradation at every external edge.
package chat

import (
	"sort"

	"github.com/scrypster/reverie/internal/lexicon"
	"github.com/scrypster/reverie/pkg/types"
)

// ClassifyTopic tags an utterance with the topic category whose configured
// keywords match it most. Ties break in category order (alphabetical), so
// classification is deterministic. No match yields TopicGeneral.
func ClassifyTopic(utterance string, lex *lexicon.Lexicon) types.TopicCategory {
	best := types.TopicGeneral
	bestCount := 0

	categories := make([]types.TopicCategory, 0, len(lex.Topics))
	for cat := range lex.Topics {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	for _, cat := range categories {
		if count := lexicon.MatchCount(utterance, lex.Topics[cat]); count > bestCount {
			best = cat
			bestCount = count
		}
	}
	return best
}

// ClassifyTone tags an utterance with the emotional tone whose configured
// keywords match it most. No match yields ToneNeutral.
func ClassifyTone(utterance string, lex *lexicon.Lexicon) types.EmotionalTone {
	best := types.ToneNeutral
	bestCount := 0

	tones := make([]types.EmotionalTone, 0, len(lex.Emotions))
	for tone := range lex.Emotions {
		tones = append(tones, tone)
	}
	sort.Slice(tones, func(i, j int) bool { return tones[i] < tones[j] })

	for _, tone := range tones {
		if count := lexicon.MatchCount(utterance, lex.Emotions[tone]); count > bestCount {
			best = tone
			bestCount = count
		}
	}
	return best
}
