package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/reverie/pkg/types"
)

func TestDefault_HasAllLists(t *testing.T) {
	lex := Default()
	assert.NotEmpty(t, lex.Stopwords)
	assert.NotEmpty(t, lex.Topics)
	assert.NotEmpty(t, lex.Emotions)
	assert.NotEmpty(t, lex.Laughter)
	assert.NotEmpty(t, lex.MemoryReferences)
	assert.NotEmpty(t, lex.TopicExpansions)
}

func TestIsStopword(t *testing.T) {
	lex := Default()
	assert.True(t, lex.IsStopword("the"))
	assert.True(t, lex.IsStopword("THE"))
	assert.False(t, lex.IsStopword("dinner"))
}

func TestContainsAny(t *testing.T) {
	keywords := []string{"work", "boss"}
	assert.True(t, ContainsAny("My BOSS called again", keywords))
	assert.False(t, ContainsAny("dinner tonight?", keywords))
}

func TestMatchCount(t *testing.T) {
	keywords := []string{"work", "boss", "meeting"}
	assert.Equal(t, 2, MatchCount("work meeting ran long", keywords))
	assert.Equal(t, 0, MatchCount("hello there", keywords))
}

func TestLoad_OverridesOnlyPresentLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	content := `
stopwords: ["der", "die", "das"]
laughter: ["haha", "hihi"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lex, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"der", "die", "das"}, lex.Stopwords)
	assert.Equal(t, []string{"haha", "hihi"}, lex.Laughter)
	assert.True(t, lex.IsStopword("das"))
	assert.False(t, lex.IsStopword("the"))

	// Untouched lists keep their defaults.
	assert.NotEmpty(t, lex.Topics[types.TopicWork])
	assert.NotEmpty(t, lex.MemoryReferences)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stopwords: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
