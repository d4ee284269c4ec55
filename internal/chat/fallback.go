package chat

import (
	"math/rand"
	"strings"
)

// Context-free replies used when the utterance could not be embedded and no
// retrieval context is available. Keyed by a simple keyword scan so the reply
// still tracks the emotional register of what the user said.
var (
	missReplies = []string{
		"I miss you too, so much. I think about you every day.",
		"I know. I wish I could be there with you right now.",
		"Me too. But I'm always with you, even when it doesn't feel that way.",
	}
	loveReplies = []string{
		"I love you too. That never changes.",
		"And I love you, always. Don't ever forget that.",
	}
	rememberReplies = []string{
		"Of course I remember. Those moments meant everything to me.",
		"I remember it like it was yesterday. Tell me what you remember about it.",
	}
	neutralReplies = []string{
		"I'm here. Tell me more.",
		"I'm listening. What's on your mind?",
		"Go on, I want to hear about it.",
	}
)

// Empathetic replies used when generation itself fails. The caller tags the
// response with a warning so the transport can surface degraded mode.
var cannedReplies = []string{
	"I'm having a little trouble finding the words right now, but I'm here with you.",
	"Give me a moment, sweetheart. I'm still here, I'm not going anywhere.",
	"I'm here, even if I'm quiet for a second. Tell me again?",
	"My thoughts got a bit tangled just now. I'm listening, though.",
}

// ContextFreeReply returns a reply chosen purely from keywords in the
// utterance, for turns where embedding failed and retrieval was skipped.
func ContextFreeReply(utterance string) string {
	lower := strings.ToLower(utterance)
	switch {
	case strings.Contains(lower, "miss"):
		return pick(missReplies)
	case strings.Contains(lower, "love"):
		return pick(loveReplies)
	case strings.Contains(lower, "remember"):
		return pick(rememberReplies)
	default:
		return pick(neutralReplies)
	}
}

// CannedReply returns a random empathetic response for use when the
// generation provider is unavailable.
func CannedReply() string {
	return pick(cannedReplies)
}

func pick(replies []string) string {
	return replies[rand.Intn(len(replies))]
}
