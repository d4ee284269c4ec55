package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/reverie/pkg/types"
)

func record(stage types.Stage, percent int) types.IngestionProgress {
	return types.IngestionProgress{UploadID: "up-1", Stage: stage, Percent: percent}
}

func TestProgressBroker_PercentNeverDecreases(t *testing.T) {
	b := NewProgressBroker()
	ch, cancel := b.Subscribe("up-1")
	defer cancel()

	b.Publish(record(types.StageReading, 5))
	b.Publish(record(types.StageParsing, 15))
	b.Publish(record(types.StageAnalyzing, 10)) // below previous, clamped
	b.Publish(record(types.StageAnalyzing, 60))
	b.Publish(record(types.StageFinalizing, 80))
	b.Publish(record(types.StageComplete, 100))

	last := -1
	for p := range ch {
		assert.GreaterOrEqual(t, p.Percent, last, "stage %s", p.Stage)
		last = p.Percent
	}
	assert.Equal(t, 100, last)
}

func TestProgressBroker_TerminalClosesSubscribers(t *testing.T) {
	b := NewProgressBroker()
	ch, cancel := b.Subscribe("up-1")
	defer cancel()

	b.Publish(record(types.StageReading, 5))
	b.Publish(record(types.StageError, 5))

	var stages []types.Stage
	for p := range ch {
		stages = append(stages, p.Stage)
	}
	require.Len(t, stages, 2)
	assert.Equal(t, types.StageError, stages[1])

	// Publishing after terminal is ignored.
	b.Publish(record(types.StageComplete, 100))
	got, ok := b.Snapshot("up-1")
	require.True(t, ok)
	assert.Equal(t, types.StageError, got.Stage)
}

func TestProgressBroker_StageRegressionIgnored(t *testing.T) {
	b := NewProgressBroker()
	b.Publish(record(types.StageAnalyzing, 50))
	b.Publish(record(types.StageParsing, 60))

	got, ok := b.Snapshot("up-1")
	require.True(t, ok)
	assert.Equal(t, types.StageAnalyzing, got.Stage)
	assert.Equal(t, 50, got.Percent)
}

func TestProgressBroker_SubscribeReplaysCurrent(t *testing.T) {
	b := NewProgressBroker()
	b.Publish(record(types.StageParsing, 15))

	ch, cancel := b.Subscribe("up-1")
	defer cancel()
	first := <-ch
	assert.Equal(t, types.StageParsing, first.Stage)
	assert.Equal(t, 15, first.Percent)
}

func TestProgressBroker_CompleteForces100(t *testing.T) {
	b := NewProgressBroker()
	b.Publish(record(types.StageFinalizing, 95))
	b.Publish(record(types.StageComplete, 97))

	got, ok := b.Snapshot("up-1")
	require.True(t, ok)
	assert.Equal(t, 100, got.Percent)
}

func TestProgressBroker_SnapshotDiscardsTerminal(t *testing.T) {
	b := NewProgressBroker()
	b.Publish(record(types.StageComplete, 100))

	_, ok := b.Snapshot("up-1")
	require.True(t, ok)
	_, ok = b.Snapshot("up-1")
	assert.False(t, ok)
}

func TestProgressBroker_UnknownUpload(t *testing.T) {
	b := NewProgressBroker()
	_, ok := b.Snapshot("nope")
	assert.False(t, ok)
}

func TestProgressBroker_PeekDoesNotConsumeTerminal(t *testing.T) {
	b := NewProgressBroker()
	b.Publish(record(types.StageComplete, 100))

	// Repeated peeks leave the terminal record in place.
	got, ok := b.Peek("up-1")
	require.True(t, ok)
	assert.Equal(t, types.StageComplete, got.Stage)
	_, ok = b.Peek("up-1")
	require.True(t, ok)

	// A real observation through Snapshot still discards it.
	_, ok = b.Snapshot("up-1")
	require.True(t, ok)
	_, ok = b.Snapshot("up-1")
	assert.False(t, ok)
	_, ok = b.Peek("up-1")
	assert.False(t, ok)
}

func TestProgressBroker_SlowSubscriberStillGetsTerminal(t *testing.T) {
	b := NewProgressBroker()
	ch, cancel := b.Subscribe("up-1")
	defer cancel()

	// Overrun the subscriber buffer without draining, then finish.
	b.Publish(record(types.StageReading, 5))
	b.Publish(record(types.StageParsing, 15))
	for percent := 25; percent <= 75; percent++ {
		b.Publish(record(types.StageAnalyzing, percent))
	}
	b.Publish(record(types.StageComplete, 100))

	var last types.IngestionProgress
	received := 0
	for p := range ch {
		last = p
		received++
	}
	require.Greater(t, received, 0)
	assert.Equal(t, types.StageComplete, last.Stage)
	assert.Equal(t, 100, last.Percent)
}

func TestProgressBroker_CancelDetaches(t *testing.T) {
	b := NewProgressBroker()
	ch, cancel := b.Subscribe("up-1")
	cancel()

	// Channel is closed by cancel; publish must not panic.
	_, open := <-ch
	assert.False(t, open)
	b.Publish(record(types.StageReading, 5))
}
