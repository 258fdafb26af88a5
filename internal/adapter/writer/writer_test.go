package writer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptgen/internal/domain"
)

func records(prompts ...string) []domain.PromptRecord {
	out := make([]domain.PromptRecord, len(prompts))
	for i, p := range prompts {
		out[i] = domain.PromptRecord{Prompt: p, TokenSize: len(p), ModelID: "byte"}
	}
	return out
}

func TestWritePrompts_JSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.jsonl")

	err := New(Options{}).WritePrompts(path, records("a <b> & c", "总结"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"prompt":"a <b> & c","token_size":9,"model_id":"byte"}`, lines[0])
	assert.Equal(t, `{"prompt":"总结","token_size":6,"model_id":"byte"}`, lines[1])

	got, err := ReadJSONL(path)
	require.NoError(t, err)
	assert.Equal(t, records("a <b> & c", "总结"), got)

	other := flock.New(path + ".lock")
	locked, err := other.TryLock()
	require.NoError(t, err)
	assert.True(t, locked, "lock is released after writing")
	other.Unlock()
}

func TestWritePrompts_LockFileStays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w := New(Options{Overwrite: true})

	require.NoError(t, w.WritePrompts(path, records("first")))
	first, err := os.Stat(path + ".lock")
	require.NoError(t, err, "lock file is left in place")

	require.NoError(t, w.WritePrompts(path, records("second")))
	second, err := os.Stat(path + ".lock")
	require.NoError(t, err)
	assert.True(t, os.SameFile(first, second), "later writers lock the same file")
}

func TestWritePrompts_TXT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt_16.txt")

	require.NoError(t, New(Options{}).WritePrompts(path, records("exact prompt\n")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "exact prompt\n", string(data))

	err = New(Options{Overwrite: true}).WritePrompts(path, records("a", "b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one prompt")
}

func TestWritePrompts_Conflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("original\n"), 0644))

	err := New(Options{}).WritePrompts(path, records("new"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOutputConflict)
	assert.ErrorIs(t, err, fs.ErrExist)

	var cerr *domain.OutputConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, path, cerr.Path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(data), "existing file is untouched")
}

func TestWritePrompts_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("old line\n", 50)), 0644))

	require.NoError(t, New(Options{Overwrite: true}).WritePrompts(path, records("new")))

	got, err := ReadJSONL(path)
	require.NoError(t, err)
	assert.Equal(t, records("new"), got, "file is fully replaced")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"out.jsonl", "out.jsonl.lock"}, names, "no temp files left behind")
}

func TestWritePrompts_LockHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	other := flock.New(path + ".lock")
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	err = New(Options{LockTimeout: 100 * time.Millisecond}).WritePrompts(path, records("x"))
	assert.ErrorIs(t, err, ErrLockTimeout)
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, fs.ErrNotExist))
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatTXT, FormatFor("a/b.txt"))
	assert.Equal(t, FormatTXT, FormatFor("B.TXT"))
	assert.Equal(t, FormatJSONL, FormatFor("a/b.jsonl"))
	assert.Equal(t, FormatJSONL, FormatFor("out"))
}

func TestReadJSONL_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"prompt\":\"a\"}\n\nnot json\n"), 0644))

	_, err := ReadJSONL(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":3:")
}
