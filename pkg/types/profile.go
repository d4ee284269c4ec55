package types

// StyleProfile is the deterministic statistical fingerprint of one
// participant's messaging patterns. It is computed once per session from the
// immutable corpus; identical corpora always produce identical profiles.
type StyleProfile struct {
	TotalMessages int `json:"total_messages"`

	Length      LengthStats        `json:"length"`
	Punctuation PunctuationStats   `json:"punctuation"`
	Lexical     LexicalStats       `json:"lexical"`
	Patterns    PatternRates       `json:"patterns"`
	Personality PersonalityMarkers `json:"personality"`
	Topics      []TopicStyle       `json:"topics"`
	Emotions    []EmotionalLexicon `json:"emotions"`
	Nostalgia   NostalgiaStats     `json:"nostalgia"`
	Questions   QuestionStyle      `json:"questions"`
}

// LengthStats captures message length distribution in characters and words.
type LengthStats struct {
	MeanChars   float64 `json:"mean_chars"`
	MedianChars float64 `json:"median_chars"`
	MeanWords   float64 `json:"mean_words"`
	MedianWords float64 `json:"median_words"`

	// Bucketed percentages of the corpus by character length.
	VeryShortPct float64 `json:"very_short_pct"` // <= 10 chars
	ShortPct     float64 `json:"short_pct"`      // 11-30 chars
	MediumPct    float64 `json:"medium_pct"`     // 31-100 chars
	LongPct      float64 `json:"long_pct"`       // > 100 chars
}

// PunctuationStats captures terminal punctuation habits and mark density.
type PunctuationStats struct {
	// NoTerminalPct is the percentage of messages lacking terminal punctuation.
	NoTerminalPct float64 `json:"no_terminal_pct"`

	QuestionsPerMessage    float64 `json:"questions_per_message"`
	ExclamationsPerMessage float64 `json:"exclamations_per_message"`
	EllipsesPerMessage     float64 `json:"ellipses_per_message"`
}

// LexicalStats captures vocabulary breadth and characteristic tokens.
type LexicalStats struct {
	VocabularySize int     `json:"vocabulary_size"`
	RichnessRatio  float64 `json:"richness_ratio"` // unique / total tokens

	// TopTokens are the most frequent significant tokens after stopword
	// removal, ordered by descending count then lexicographically.
	TopTokens []TokenCount `json:"top_tokens"`
}

// TokenCount pairs a token with its corpus frequency.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// PatternRates captures stylistic pattern usage as corpus percentages.
type PatternRates struct {
	EmojiPct        float64 `json:"emoji_pct"`
	LaughterPct     float64 `json:"laughter_pct"`
	AllCapsPct      float64 `json:"all_caps_pct"`
	AbbreviationPct float64 `json:"abbreviation_pct"`
	OneWordPct      float64 `json:"one_word_pct"`
	QuestionPct     float64 `json:"question_pct"`
}

// PersonalityMarkers captures conversational habits that carry voice.
type PersonalityMarkers struct {
	// EnthusiasmScore is the density of exclamation marks and enthusiasm
	// tokens across the corpus, 0.0 to 1.0.
	EnthusiasmScore float64 `json:"enthusiasm_score"`

	AddressTerms         []string `json:"address_terms"`
	ConversationStarters []string `json:"conversation_starters"`
	AgreementTokens      []string `json:"agreement_tokens"`
}

// TopicStyle is a keyword-triggered sublanguage sample for one topic area.
type TopicStyle struct {
	Topic TopicCategory `json:"topic"`

	// SamplePhrases are representative messages that matched the topic's
	// keyword triggers, in corpus order.
	SamplePhrases []string `json:"sample_phrases"`

	// Formality is "casual" or "formal", derived from abbreviation and
	// punctuation habits within the topic sample.
	Formality string `json:"formality"`
}

// EmotionalLexicon holds representative phrases for one emotional bucket.
type EmotionalLexicon struct {
	Tone          EmotionalTone `json:"tone"`
	SamplePhrases []string      `json:"sample_phrases"`
}

// NostalgiaStats captures how often the participant references shared memories.
type NostalgiaStats struct {
	// ReferencePct is the percentage of messages containing memory-reference
	// keywords.
	ReferencePct float64 `json:"reference_pct"`

	// Level is "low", "moderate" or "high", derived from ReferencePct.
	Level string `json:"level"`
}

// QuestionStyle categorizes the participant's questions.
type QuestionStyle struct {
	// QuestionPct is the percentage of messages that are questions.
	QuestionPct float64 `json:"question_pct"`

	YesNoCount     int `json:"yes_no_count"`
	OpenEndedCount int `json:"open_ended_count"`
	CheckInCount   int `json:"check_in_count"`
	ChoiceCount    int `json:"choice_count"`

	// Style is "direct" or "elaborate", classified by average question
	// word count.
	Style string `json:"style"`
}
