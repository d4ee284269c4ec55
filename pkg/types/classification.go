package types

// TopicCategory tags an utterance or corpus sample with a coarse topic.
// Classification is keyword-driven; the keyword lists live in configuration,
// not in control flow.
type TopicCategory string

const (
	TopicWork     TopicCategory = "work"
	TopicPersonal TopicCategory = "personal"
	TopicSocial   TopicCategory = "social"
	TopicGeneral  TopicCategory = "general"
)

// EmotionalTone tags an utterance with a coarse emotional reading.
type EmotionalTone string

const (
	ToneStressed EmotionalTone = "stressed"
	ToneHappy    EmotionalTone = "happy"
	ToneExcited  EmotionalTone = "excited"
	ToneSad      EmotionalTone = "sad"
	ToneBusy     EmotionalTone = "busy"
	ToneNeutral  EmotionalTone = "neutral"
)

// Valid reports whether the category is one of the defined values.
func (t TopicCategory) Valid() bool {
	switch t {
	case TopicWork, TopicPersonal, TopicSocial, TopicGeneral:
		return true
	}
	return false
}

// Valid reports whether the tone is one of the defined values.
func (t EmotionalTone) Valid() bool {
	switch t {
	case ToneStressed, ToneHappy, ToneExcited, ToneSad, ToneBusy, ToneNeutral:
		return true
	}
	return false
}
