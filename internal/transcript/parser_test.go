package transcript

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/reverie/pkg/types"
)

const sampleTranscript = `[12/31/21, 9:15:30 PM] Mom: see you soon sweetheart
[12/31/21, 9:16:02 PM] Alex: ok mom, driving now
[12/31/21, 9:17:45 PM] Mom: drive safe! love you
[1/1/22, 10:05:12 AM] Mom: happy new year!!
[1/1/22, 10:06:01 AM] Alex: happy new year
[1/1/22, 10:07:30 AM] Mom: <Media omitted>
[1/1/22, 10:08:00 AM] Mom: did you sleep well?
random junk line without a timestamp
[1/2/22, 8:30:00 AM] Mom: ok
[1/2/22, 8:31:00 AM] Mom: call me when you wake up
`

func TestParse_ExtractsParticipantMessages(t *testing.T) {
	messages, stats, err := Parse(sampleTranscript, "Mom", 1)
	require.NoError(t, err)

	// "<Media omitted>" is a system notice, "ok" is below the content floor.
	require.Len(t, messages, 5)
	for _, m := range messages {
		assert.Equal(t, "Mom", m.Sender)
	}
	assert.Equal(t, "see you soon sweetheart", messages[0].Content)
	assert.Equal(t, "call me when you wake up", messages[4].Content)

	assert.Equal(t, 10, stats.TotalLines)
	assert.Equal(t, 9, stats.MatchedLines)
	assert.Equal(t, 1, stats.SkippedSystem)
	assert.Equal(t, 1, stats.SkippedShort)
	assert.Equal(t, 5, stats.Kept)
}

func TestParse_UnmatchedLinesAreDropped(t *testing.T) {
	messages, _, err := Parse(sampleTranscript, "Mom", 1)
	require.NoError(t, err)
	for _, m := range messages {
		assert.NotContains(t, m.Content, "random junk")
	}
}

func TestParse_AllGrammars(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"bracketed-12h", "[12/31/21, 9:15:30 PM] Mom: hello from the past"},
		{"bracketed-24h", "[31.12.21, 21:15:30] Mom: hello from the past"},
		{"dash-separated", "12/31/21, 21:15 - Mom: hello from the past"},
		{"dot-date", "31.12.2021, 21:15 - Mom: hello from the past"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := parseLine(tt.line)
			require.True(t, ok, "line should match a grammar")
			assert.Equal(t, "Mom", msg.Sender)
			assert.Equal(t, "hello from the past", msg.Content)
		})
	}
}

func TestParse_EmptyTranscript(t *testing.T) {
	_, _, err := Parse("   \n\n  ", "Mom", 1)
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestParse_TooFewLines(t *testing.T) {
	_, _, err := Parse("[12/31/21, 9:15:30 PM] Mom: hello there\n\n", "Mom", 1)
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestParse_UnknownParticipant(t *testing.T) {
	_, _, err := Parse(sampleTranscript, "Grandpa", 1)
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
	assert.Contains(t, err.Error(), "Grandpa")
}

func TestParse_BelowMinimumMessages(t *testing.T) {
	_, _, err := Parse(sampleTranscript, "Alex", 10)
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestParse_ShortFilterCountsRunes(t *testing.T) {
	raw := strings.Join([]string{
		"[1/1/22, 9:00:00 AM] Mom: 好的",
		"[1/1/22, 9:01:00 AM] Mom: 今晚过来吃饺子哦",
		"[1/1/22, 9:02:00 AM] Mom: dinner is at seven",
		"[1/1/22, 9:03:00 AM] Mom: bring your appetite",
		"[1/1/22, 9:04:00 AM] Mom: love you lots",
	}, "\n")

	messages, stats, err := Parse(raw, "Mom", 1)
	require.NoError(t, err)

	// 好的 is two characters even though it is six bytes.
	assert.Equal(t, 1, stats.SkippedShort)
	assert.Equal(t, 4, stats.Kept)
	for _, m := range messages {
		assert.NotEqual(t, "好的", m.Content)
	}
}

func TestParse_SystemMessagesCaseInsensitive(t *testing.T) {
	assert.True(t, isSystemMessage("<MEDIA OMITTED>"))
	assert.True(t, isSystemMessage("IMAGE omitted"))
	assert.True(t, isSystemMessage("Missed Voice Call"))
	assert.False(t, isSystemMessage("I omitted nothing from my story"))
}

func TestParse_SortsChronologically(t *testing.T) {
	// Out-of-order input across two grammars.
	raw := strings.Join([]string{
		"[1/2/22, 8:30:00 AM] Mom: third message here",
		"[12/31/21, 9:15:30 PM] Mom: first message here",
		"[1/1/22, 10:05:12 AM] Mom: second message here",
		"[1/3/22, 9:00:00 AM] Mom: fourth message here",
		"[1/4/22, 9:00:00 AM] Mom: fifth message here",
	}, "\n")

	messages, _, err := Parse(raw, "Mom", 1)
	require.NoError(t, err)
	require.Len(t, messages, 5)
	assert.Equal(t, "first message here", messages[0].Content)
	assert.Equal(t, "second message here", messages[1].Content)
	assert.Equal(t, "third message here", messages[2].Content)
	assert.Equal(t, "fourth message here", messages[3].Content)
	assert.Equal(t, "fifth message here", messages[4].Content)
}

func TestParse_LargeTranscript(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&sb, "[1/%d/22, %d:%02d:00 AM] Mom: message number %d with some content\n",
			i%27+1, i%11+1, i%60, i)
	}

	messages, stats, err := Parse(sb.String(), "Mom", 10)
	require.NoError(t, err)
	assert.Len(t, messages, 500)
	assert.Equal(t, 500, stats.Kept)
}
