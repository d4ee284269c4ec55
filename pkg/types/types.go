// Package types defines the core data model for the Reverie system.
//
// Types here are shared across the ingestion pipeline, the retrieval and
// composition layers, and the storage backends. They carry no behavior
// beyond validation and simple derived accessors.
package types

import (
	"errors"
	"fmt"
	"time"
)

// Message is a single parsed transcript message for one participant.
// Messages are immutable once parsed; the ingestion pipeline owns them
// until they are embedded, after which copies live in the vector index
// payload and the in-memory session corpus.
type Message struct {
	// Content is the trimmed message text.
	Content string `json:"content"`

	// Sender is the participant name exactly as it appeared in the transcript.
	Sender string `json:"sender"`

	// Timestamp is the reconstructed "date, time" string from the transcript
	// line. It is kept as a string because export formats vary; chronological
	// ordering is established at parse time.
	Timestamp string `json:"timestamp"`
}

// EmbeddedMessage is a Message paired with its embedding vector.
// Created by the embedding batcher, stored in the vector index, never mutated.
type EmbeddedMessage struct {
	Message

	// ID is the vector-point identifier (UUID).
	ID string `json:"id"`

	// Vector is the embedding produced by the embedding provider.
	Vector []float32 `json:"vector"`
}

// Session represents one reconstructed persona, backed by exactly one
// vector-index collection. Sessions are created when ingestion reaches the
// complete stage and evicted by a periodic sweep after an inactivity TTL.
type Session struct {
	// ID is the opaque session identifier (UUID).
	ID string `json:"id"`

	// PersonName is the display name for the reconstructed persona.
	PersonName string `json:"person_name"`

	// SelectedParticipant is the transcript sender the persona was built from.
	SelectedParticipant string `json:"selected_participant"`

	// MessageCount is the number of qualifying messages in the corpus.
	MessageCount int `json:"message_count"`

	// CollectionRef names the vector-index collection holding this session's
	// embedded messages. Exactly one collection per session, created before
	// the session is registered and deleted exactly once at eviction.
	CollectionRef string `json:"collection_ref"`

	// CreatedAt is when ingestion completed.
	CreatedAt time.Time `json:"created_at"`

	// LastActivity is updated on every chat turn and drives TTL eviction.
	LastActivity time.Time `json:"last_activity"`

	// DetectedLanguages lists writing systems observed in the corpus,
	// e.g. ["latin", "cyrillic"].
	DetectedLanguages []string `json:"detected_languages"`

	// EmbeddingWarning is set when the ingestion failure rate exceeded the
	// configured threshold but enough vectors were still produced to proceed.
	EmbeddingWarning bool `json:"embedding_warning,omitempty"`

	// Corpus holds the full parsed message corpus, used for style profiling
	// and for the literal-match retrieval fallback.
	Corpus []Message `json:"-"`

	// Profile is the lazily computed style profile. Nil until first use;
	// the corpus does not change post-ingestion, so it is computed once.
	Profile *StyleProfile `json:"-"`
}

// Turn is one user-utterance/generated-response pair, appended to the
// turn store after each chat exchange.
type Turn struct {
	SessionID        string    `json:"session_id"`
	UserMessage      string    `json:"user_message"`
	AIResponse       string    `json:"ai_response"`
	ContextUsed      bool      `json:"context_used"`
	RelevantCount    int       `json:"relevant_count"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// Stage is an ingestion progress stage. Stages advance strictly forward;
// StageError is reachable from any non-terminal stage.
type Stage string

const (
	StageReading    Stage = "reading"
	StageParsing    Stage = "parsing"
	StageAnalyzing  Stage = "analyzing"
	StageFinalizing Stage = "finalizing"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// stageOrder maps each stage to its position in the pipeline.
var stageOrder = map[Stage]int{
	StageReading:    0,
	StageParsing:    1,
	StageAnalyzing:  2,
	StageFinalizing: 3,
	StageComplete:   4,
	StageError:      4,
}

// Terminal reports whether the stage ends the progress sequence.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// CanTransitionTo reports whether a transition from s to next is legal:
// forward-only, with error reachable from any non-terminal stage.
func (s Stage) CanTransitionTo(next Stage) bool {
	if s.Terminal() {
		return false
	}
	if next == StageError {
		return true
	}
	from, ok := stageOrder[s]
	if !ok {
		return false
	}
	to, ok := stageOrder[next]
	if !ok {
		return false
	}
	return to >= from
}

// IngestionProgress is the ephemeral progress record for one upload.
// Records are overwritten in place per UploadID and discarded once a
// terminal stage has been observed by the consumer.
type IngestionProgress struct {
	UploadID       string `json:"upload_id"`
	Stage          Stage  `json:"stage"`
	Percent        int    `json:"percent"`
	Message        string `json:"message"`
	TotalItems     int    `json:"total_items"`
	ProcessedItems int    `json:"processed_items"`
}

// ValidationError is a caller error: the request or transcript is unusable
// and must be corrected and resubmitted. It is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks that a message carries the fields the pipeline requires.
func (m *Message) Validate() error {
	if m.Content == "" {
		return NewValidationError("message content is required")
	}
	if m.Sender == "" {
		return NewValidationError("message sender is required")
	}
	return nil
}

// Touch updates the session's last-activity timestamp.
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

// IdleSince reports whether the session has been inactive longer than ttl.
func (s *Session) IdleSince(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastActivity) > ttl
}
