package chat

import (
	"fmt"
	"strings"

	"github.com/scrypster/reverie/internal/lexicon"
	"github.com/scrypster/reverie/internal/llm"
	"github.com/scrypster/reverie/internal/styleprofile"
	"github.com/scrypster/reverie/pkg/types"
)

// Payload is the bounded generation payload plus its metadata.
type Payload struct {
	// Instructions is the system prompt: persona identity rules, style
	// guidance, contextual snippets, memories and repetition directives.
	Instructions string

	// History is the bounded few-shot turn history, oldest first.
	History []llm.TurnPair

	// Utterance is the new user message.
	Utterance string

	// ContextUsed is true when at least one retrieved memory was injected.
	ContextUsed bool

	// RelevantCount is the number of relevant memories injected.
	RelevantCount int
}

// Composer builds generation payloads from profile, memories and history.
type Composer struct {
	lex *lexicon.Lexicon

	// payloadBudget bounds the characters spent on memories plus history.
	payloadBudget int

	// historyLimit bounds the turns injected as few-shot pairs.
	historyLimit int
}

// NewComposer creates a composer. Zero budget/limit select defaults.
func NewComposer(lex *lexicon.Lexicon, payloadBudget, historyLimit int) *Composer {
	if lex == nil {
		lex = lexicon.Default()
	}
	if payloadBudget <= 0 {
		payloadBudget = 6000
	}
	if historyLimit <= 0 {
		historyLimit = 6
	}
	return &Composer{lex: lex, payloadBudget: payloadBudget, historyLimit: historyLimit}
}

// Compose assembles the generation payload. turnHistory is most recent
// first, as the turn store returns it; it is reversed into chronological
// order for the prompt. retrieved carries the merged memory examples with
// the relevant count.
func (c *Composer) Compose(session *types.Session, utterance string, memories []string, relevantCount int, turnHistory []types.Turn, repetition RepetitionReport) *Payload {
	var b strings.Builder

	// Persona identity rules: the entity is a real person, never an
	// assistant.
	fmt.Fprintf(&b, "You are %s, a real person, texting with someone close to you.\n", session.PersonName)
	b.WriteString("Never describe yourself as an AI, assistant, or language model.\n")
	b.WriteString("Never offer generic assistance; respond the way this person actually texts.\n")
	b.WriteString("Stay in first person and keep the relationship warm and familiar.\n")

	// Style guidance from the profile.
	if guidance := styleprofile.Guidance(session.Profile); guidance != "" {
		b.WriteString("\n")
		b.WriteString(guidance)
		b.WriteString("\n")
	}

	// Contextual snippets keyed by the utterance's topic and tone.
	for _, snippet := range c.contextSnippets(session.Profile, utterance) {
		b.WriteString("\n")
		b.WriteString(snippet)
		b.WriteString("\n")
	}

	// Repetition mitigation.
	for _, directive := range repetition.Directives() {
		b.WriteString("\n")
		b.WriteString(directive)
	}
	if repetition.IsRepetitive {
		b.WriteString("\n")
	}

	// Memories, bounded by the payload budget.
	budget := c.payloadBudget
	injected := 0
	if len(memories) > 0 {
		b.WriteString("\nReal messages you have sent, for voice and memory reference:\n")
		for _, memory := range memories {
			cost := len(memory) + 4
			if cost > budget {
				break
			}
			budget -= cost
			fmt.Fprintf(&b, "- %q\n", memory)
			injected++
		}
	}

	// History, bounded by the remaining budget and the turn limit,
	// reversed into chronological order.
	history := c.boundedHistory(turnHistory, budget)

	contextUsed := injected > 0 && relevantCount > 0
	if relevantCount > injected {
		relevantCount = injected
	}
	return &Payload{
		Instructions:  b.String(),
		History:       history,
		Utterance:     utterance,
		ContextUsed:   contextUsed,
		RelevantCount: relevantCount,
	}
}

// contextSnippets selects profile guidance matching the utterance's topic
// and emotional classification.
func (c *Composer) contextSnippets(profile *types.StyleProfile, utterance string) []string {
	if profile == nil {
		return nil
	}
	var snippets []string

	topic := ClassifyTopic(utterance, c.lex)
	if topic != types.TopicGeneral {
		for _, style := range profile.Topics {
			if style.Topic == topic {
				snippets = append(snippets, styleprofile.TopicGuidance(style))
				break
			}
		}
	}

	tone := ClassifyTone(utterance, c.lex)
	if tone != types.ToneNeutral {
		for _, emotion := range profile.Emotions {
			if emotion.Tone == tone {
				snippets = append(snippets, styleprofile.EmotionGuidance(emotion))
				break
			}
		}
	}
	return snippets
}

// boundedHistory converts stored turns (most recent first) into
// chronological few-shot pairs within the character budget.
func (c *Composer) boundedHistory(turnHistory []types.Turn, budget int) []llm.TurnPair {
	limit := c.historyLimit
	if len(turnHistory) < limit {
		limit = len(turnHistory)
	}

	var pairs []llm.TurnPair
	for i := 0; i < limit; i++ {
		turn := turnHistory[i]
		cost := len(turn.UserMessage) + len(turn.AIResponse)
		if cost > budget {
			break
		}
		budget -= cost
		pairs = append(pairs, llm.TurnPair{User: turn.UserMessage, Assistant: turn.AIResponse})
	}

	// Stored order is newest first; the prompt wants oldest first.
	for i, j := 0, len(pairs)-1; i < j; i, j = i+1, j-1 {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	}
	return pairs
}
