// Package lexicon holds the keyword lists that drive topic and emotion
// classification, style profiling and targeted retrieval.
//
// The lists are configuration data, not control flow: built-in defaults
// cover common English chat usage, and a YAML file can override any list
// for other languages or product tuning.
package lexicon

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/reverie/pkg/types"
)

// Lexicon bundles every keyword list the pipeline consults.
type Lexicon struct {
	// Stopwords are excluded from significant-token extraction.
	Stopwords []string `yaml:"stopwords"`

	// Topics maps topic categories to their trigger keywords.
	Topics map[types.TopicCategory][]string `yaml:"topics"`

	// Emotions maps emotional tones to their trigger keywords.
	Emotions map[types.EmotionalTone][]string `yaml:"emotions"`

	// Enthusiasm tokens contribute to the enthusiasm score alongside
	// exclamation marks.
	Enthusiasm []string `yaml:"enthusiasm"`

	// Laughter markers ("haha", "lol", ...) feed the laughter usage rate.
	Laughter []string `yaml:"laughter"`

	// Abbreviations are common chat shorthand tokens.
	Abbreviations []string `yaml:"abbreviations"`

	// AddressTerms are terms of address worth surfacing in the profile.
	AddressTerms []string `yaml:"address_terms"`

	// Starters are conversation-opening tokens.
	Starters []string `yaml:"starters"`

	// Agreement tokens signal assent.
	Agreement []string `yaml:"agreement"`

	// MemoryReferences trigger the nostalgia rate.
	MemoryReferences []string `yaml:"memory_references"`

	// TopicExpansions maps a trigger token to extra search candidates,
	// e.g. a work-like token expands into "work situation".
	TopicExpansions map[string][]string `yaml:"topic_expansions"`

	stopwordSet map[string]struct{}
}

// Default returns the built-in English lexicon.
func Default() *Lexicon {
	lex := &Lexicon{
		Stopwords: []string{
			"a", "an", "the", "and", "or", "but", "if", "then", "so", "of",
			"to", "in", "on", "at", "for", "with", "from", "by", "about",
			"is", "are", "was", "were", "be", "been", "being", "am",
			"i", "you", "he", "she", "it", "we", "they", "me", "him", "her",
			"my", "your", "his", "its", "our", "their", "this", "that",
			"these", "those", "what", "which", "who", "whom", "will",
			"would", "can", "could", "should", "do", "does", "did", "have",
			"has", "had", "not", "no", "yes", "just", "like", "get", "got",
			"there", "here", "when", "how", "all", "some", "any", "out",
			"up", "down", "now", "too", "very", "really", "one", "also",
		},
		Topics: map[types.TopicCategory][]string{
			types.TopicWork: {
				"work", "job", "office", "boss", "meeting", "project",
				"deadline", "colleague", "shift", "interview", "salary",
				"client", "email",
			},
			types.TopicPersonal: {
				"family", "mom", "dad", "home", "love", "miss", "feel",
				"health", "doctor", "sleep", "tired", "dream", "birthday",
			},
			types.TopicSocial: {
				"party", "dinner", "drinks", "friends", "weekend", "movie",
				"concert", "trip", "travel", "plans", "visit", "holiday",
			},
		},
		Emotions: map[types.EmotionalTone][]string{
			types.ToneHappy: {
				"happy", "glad", "great", "wonderful", "amazing", "lovely",
				"nice", "good news", "proud",
			},
			types.ToneExcited: {
				"excited", "can't wait", "cant wait", "awesome", "yay",
				"finally", "so cool",
			},
			types.ToneSad: {
				"sad", "miss", "lonely", "cry", "sorry", "hurt", "lost",
				"upset",
			},
			types.ToneStressed: {
				"stressed", "stress", "overwhelmed", "anxious", "worried",
				"pressure", "exhausted", "deadline",
			},
			types.ToneBusy: {
				"busy", "swamped", "no time", "later", "running late",
				"packed", "hectic",
			},
		},
		Enthusiasm: []string{
			"amazing", "awesome", "love", "great", "fantastic", "wonderful",
			"best", "incredible", "yay", "woo",
		},
		Laughter: []string{
			"haha", "hahaha", "lol", "lmao", "rofl", "hehe", "jaja", "😂", "🤣",
		},
		Abbreviations: []string{
			"omg", "btw", "idk", "tbh", "imo", "brb", "np", "thx", "pls",
			"u", "ur", "rn", "bc", "cuz", "gonna", "wanna", "gotta",
		},
		AddressTerms: []string{
			"honey", "dear", "sweetie", "babe", "love", "buddy", "dude",
			"man", "bro", "sis",
		},
		Starters: []string{
			"hey", "hi", "hello", "good morning", "morning", "yo", "sup",
			"guess what",
		},
		Agreement: []string{
			"yes", "yeah", "yep", "yup", "sure", "ok", "okay", "of course",
			"definitely", "exactly", "totally", "right",
		},
		MemoryReferences: []string{
			"remember", "back then", "used to", "those days",
			"last time", "when we", "miss those", "good times", "old days",
		},
		TopicExpansions: map[string][]string{
			"work":    {"work situation", "how work is going"},
			"job":     {"work situation", "job stress"},
			"boss":    {"work situation", "problems with boss"},
			"trip":    {"travel plans", "places we went"},
			"travel":  {"travel plans", "places we went"},
			"family":  {"family news", "how the family is doing"},
			"weekend": {"weekend plans"},
		},
	}
	lex.buildSets()
	return lex
}

// Load reads a YAML lexicon from path and overlays it on the defaults.
// Only lists present in the file replace their default counterparts.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: read %s: %w", path, err)
	}

	var override Lexicon
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("lexicon: parse %s: %w", path, err)
	}

	lex := Default()
	if len(override.Stopwords) > 0 {
		lex.Stopwords = override.Stopwords
	}
	if len(override.Topics) > 0 {
		lex.Topics = override.Topics
	}
	if len(override.Emotions) > 0 {
		lex.Emotions = override.Emotions
	}
	if len(override.Enthusiasm) > 0 {
		lex.Enthusiasm = override.Enthusiasm
	}
	if len(override.Laughter) > 0 {
		lex.Laughter = override.Laughter
	}
	if len(override.Abbreviations) > 0 {
		lex.Abbreviations = override.Abbreviations
	}
	if len(override.AddressTerms) > 0 {
		lex.AddressTerms = override.AddressTerms
	}
	if len(override.Starters) > 0 {
		lex.Starters = override.Starters
	}
	if len(override.Agreement) > 0 {
		lex.Agreement = override.Agreement
	}
	if len(override.MemoryReferences) > 0 {
		lex.MemoryReferences = override.MemoryReferences
	}
	if len(override.TopicExpansions) > 0 {
		lex.TopicExpansions = override.TopicExpansions
	}
	lex.buildSets()
	return lex, nil
}

func (l *Lexicon) buildSets() {
	l.stopwordSet = make(map[string]struct{}, len(l.Stopwords))
	for _, w := range l.Stopwords {
		l.stopwordSet[strings.ToLower(w)] = struct{}{}
	}
}

// IsStopword reports whether token (lowercased) is a stopword.
func (l *Lexicon) IsStopword(token string) bool {
	_, ok := l.stopwordSet[strings.ToLower(token)]
	return ok
}

// ContainsAny reports whether the lowercased text contains any of the
// keywords as a substring.
func ContainsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// MatchCount returns how many of the keywords appear in the lowercased text.
func MatchCount(text string, keywords []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}
