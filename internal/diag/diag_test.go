package diag

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptgen/internal/domain"
)

func TestClassify(t *testing.T) {
	_, statErr := os.Stat("/definitely/not/here")

	tests := []struct {
		err  error
		want Code
	}{
		{nil, CodeUnknown},
		{&domain.CapacityError{Requested: 10, Available: 3}, CodeCapacity},
		{fmt.Errorf("length 10: %w", &domain.CapacityError{Requested: 10, Available: 3}), CodeCapacity},
		{&domain.VerificationError{Length: 4, Got: 5, Stage: domain.StageCount}, CodeVerification},
		{&domain.TokenizerResolutionError{Handle: "x", Err: errors.New("boom")}, CodeTokenizer},
		{&domain.OutputConflictError{Path: "out.jsonl"}, CodeConflict},
		{fmt.Errorf("%w: 0", domain.ErrInvalidLength), CodeInput},
		{fmt.Errorf("read source: %w", statErr), CodeIO},
		{errors.New("something else"), CodeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
}

func TestNewLogger_JSONCarriesRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json", "abc123")

	logger.Debug("tokenizer bound", "model", "byte")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc123", line["run"])
	assert.Equal(t, "byte", line["model"])
	assert.Equal(t, "tokenizer bound", line["msg"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "logfmt", "")

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, log.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, log.InfoLevel, ParseLevel(""))
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
	assert.False(t, strings.Contains(a, "-"))
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))
	l := Discard()
	assert.Same(t, l, OrDiscard(l))
}

func TestEcho(t *testing.T) {
	var buf bytes.Buffer
	echo := NewEcho(&buf, true)

	echo.Prompt("byte", domain.PromptResult{Length: 3, Prompt: "abc", TokenCount: 3}, domain.TokenSequence{97, 98, 99})
	echo.Failure(domain.Outcome{Length: 9, Err: &domain.CapacityError{Requested: 9, Available: 3}})

	out := buf.String()
	assert.Contains(t, out, "3 tokens")
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "97")
	assert.Contains(t, out, "9 tokens failed (capacity)")
}
