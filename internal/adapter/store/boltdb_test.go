package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptgen/internal/domain"
)

func openStore(t *testing.T) *BoltStore {
	t.Helper()
	st, err := NewBoltStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestBoltStore_PutGet(t *testing.T) {
	st := openStore(t)
	r := domain.PromptResult{Length: 16, Prompt: "Alice was beginn", TokenCount: 16}

	_, ok, err := st.GetPrompt("byte", "source", 16)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.PutPrompt("byte", "source", r))

	got, ok, err := st.GetPrompt("byte", "source", 16)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, r, got)

	// Every key component matters.
	for _, probe := range []struct {
		model, text string
		length      int
	}{
		{"byte-bos", "source", 16},
		{"byte", "source!", 16},
		{"byte", "source", 17},
	} {
		_, ok, err := st.GetPrompt(probe.model, probe.text, probe.length)
		require.NoError(t, err)
		assert.False(t, ok, "%+v", probe)
	}
}

func TestBoltStore_StatsAndDelete(t *testing.T) {
	st := openStore(t)
	for _, n := range []int{1, 2, 3} {
		require.NoError(t, st.PutPrompt("byte", "text", domain.PromptResult{Length: n, TokenCount: n}))
	}
	require.NoError(t, st.PutPrompt("tiktoken:cl100k_base", "text", domain.PromptResult{Length: 4, TokenCount: 4}))

	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Equal(t, []ModelStats{
		{ModelID: "byte", Prompts: 3},
		{ModelID: "tiktoken:cl100k_base", Prompts: 1},
	}, stats)

	require.NoError(t, st.DeleteModel("byte"))
	require.NoError(t, st.DeleteModel("missing"))

	stats, err = st.Stats()
	require.NoError(t, err)
	assert.Len(t, stats, 1)
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	st, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, st.PutPrompt("byte", "text", domain.PromptResult{Length: 2, Prompt: "te", TokenCount: 2}))
	require.NoError(t, st.Close())

	st, err = NewBoltStore(path)
	require.NoError(t, err)
	defer st.Close()

	got, ok, err := st.GetPrompt("byte", "text", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "te", got.Prompt)
}

func TestTextKey(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", TextKey(""))
	assert.NotEqual(t, TextKey("a"), TextKey("b"))
}
