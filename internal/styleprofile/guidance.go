package styleprofile

import (
	"fmt"
	"strings"

	"github.com/scrypster/reverie/pkg/types"
)

// Guidance renders a style profile as human-readable instructions for the
// generation prompt. The text states concrete, imitable habits rather than
// raw statistics.
func Guidance(p *types.StyleProfile) string {
	if p == nil || p.TotalMessages == 0 {
		return ""
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Writing style, derived from %d real messages:\n", p.TotalMessages)

	// Length habits.
	switch {
	case p.Length.VeryShortPct+p.Length.ShortPct >= 70:
		b.WriteString("- Keep replies short, often just a few words. Long paragraphs are out of character.\n")
	case p.Length.LongPct >= 30:
		b.WriteString("- Write fuller messages, several sentences at a time.\n")
	default:
		fmt.Fprintf(&b, "- Typical message length is about %.0f words.\n", p.Length.MeanWords)
	}

	// Punctuation habits.
	if p.Punctuation.NoTerminalPct >= 60 {
		b.WriteString("- Usually skip the final period.\n")
	}
	if p.Punctuation.ExclamationsPerMessage >= 0.5 {
		b.WriteString("- Use exclamation marks freely.\n")
	}
	if p.Punctuation.EllipsesPerMessage >= 0.3 {
		b.WriteString("- Trail off with ellipses sometimes...\n")
	}

	// Pattern habits.
	if p.Patterns.EmojiPct >= 20 {
		b.WriteString("- Use emojis regularly.\n")
	} else if p.Patterns.EmojiPct < 5 {
		b.WriteString("- Rarely use emojis.\n")
	}
	if p.Patterns.LaughterPct >= 10 {
		b.WriteString("- Laugh in text often (haha, lol).\n")
	}
	if p.Patterns.AbbreviationPct >= 15 {
		b.WriteString("- Use casual abbreviations (u, idk, btw).\n")
	}
	if p.Patterns.OneWordPct >= 20 {
		b.WriteString("- One-word replies are common and natural.\n")
	}

	// Personality.
	if p.Personality.EnthusiasmScore >= 0.5 {
		b.WriteString("- Sound enthusiastic and warm.\n")
	}
	if len(p.Personality.AddressTerms) > 0 {
		fmt.Fprintf(&b, "- Address the other person as: %s.\n", strings.Join(p.Personality.AddressTerms, ", "))
	}
	if len(p.Personality.ConversationStarters) > 0 {
		fmt.Fprintf(&b, "- Often open with: %s.\n", strings.Join(p.Personality.ConversationStarters, ", "))
	}
	if len(p.Personality.AgreementTokens) > 0 {
		fmt.Fprintf(&b, "- Agree using words like: %s.\n", strings.Join(p.Personality.AgreementTokens, ", "))
	}

	// Signature vocabulary.
	if len(p.Lexical.TopTokens) > 0 {
		words := make([]string, 0, len(p.Lexical.TopTokens))
		for i, t := range p.Lexical.TopTokens {
			if i == 8 {
				break
			}
			words = append(words, t.Token)
		}
		fmt.Fprintf(&b, "- Characteristic vocabulary: %s.\n", strings.Join(words, ", "))
	}

	// Questions.
	if p.Questions.QuestionPct >= 25 {
		if p.Questions.Style == "direct" {
			b.WriteString("- Ask short, direct questions often.\n")
		} else {
			b.WriteString("- Ask questions often, usually elaborated ones.\n")
		}
	}

	// Nostalgia.
	switch p.Nostalgia.Level {
	case "high":
		b.WriteString("- Bring up shared memories frequently.\n")
	case "moderate":
		b.WriteString("- Occasionally reference shared memories.\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// TopicGuidance renders the contextual snippet for one topic style bucket.
func TopicGuidance(style types.TopicStyle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "When the conversation is about %s topics, stay %s.", style.Topic, style.Formality)
	if len(style.SamplePhrases) > 0 {
		b.WriteString(" Real examples of how they talk about this:\n")
		for _, phrase := range style.SamplePhrases {
			fmt.Fprintf(&b, "  %q\n", phrase)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// EmotionGuidance renders the contextual snippet for one emotional bucket.
func EmotionGuidance(lex types.EmotionalLexicon) string {
	var b strings.Builder
	fmt.Fprintf(&b, "When the mood reads as %s, match it the way they would.", lex.Tone)
	if len(lex.SamplePhrases) > 0 {
		b.WriteString(" Real examples in that mood:\n")
		for _, phrase := range lex.SamplePhrases {
			fmt.Fprintf(&b, "  %q\n", phrase)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
