package usecase

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptgen/internal/domain"
)

const sample = "Alice was beginning to get very tired of sitting by her sister on the bank."

func TestMatch_ByteTokenizer(t *testing.T) {
	tok := resolve(t, "byte")
	tokens, err := tok.Encode(sample)
	require.NoError(t, err)

	m := NewLengthMatcher(tok)
	for _, length := range []int{1, 5, 16, 32, len(sample)} {
		r, err := m.Match(tokens, length)
		require.NoError(t, err, "length %d", length)
		assert.Equal(t, length, r.Length)
		assert.Equal(t, length, r.TokenCount)
		assert.Equal(t, sample[:length], r.Prompt)

		ids, err := tok.Encode(r.Prompt)
		require.NoError(t, err)
		assert.Len(t, ids, length)
	}
}

func TestMatch_BOSTokenizer(t *testing.T) {
	tok := resolve(t, "byte-bos")
	tokens, err := tok.Encode(sample)
	require.NoError(t, err)
	require.Len(t, tokens, len(sample)+1)

	m := NewLengthMatcher(tok)

	r, err := m.Match(tokens, 6)
	require.NoError(t, err)
	assert.Equal(t, "Alice", r.Prompt)
	assert.Equal(t, 6, r.TokenCount)

	// A single token is the BOS alone, which decodes to the empty prompt.
	r, err = m.Match(tokens, 1)
	require.NoError(t, err)
	assert.Equal(t, "", r.Prompt)
	assert.Equal(t, 1, r.TokenCount)
}

func TestMatch_TrailingSpecialTokens(t *testing.T) {
	tok := wrapTokenizer{}
	tokens, err := tok.Encode("hello world")
	require.NoError(t, err)

	m := NewLengthMatcher(tok)
	r, err := m.Match(tokens, 4)
	require.NoError(t, err)
	assert.Equal(t, "he", r.Prompt)
	assert.Equal(t, 4, r.TokenCount)

	r, err = m.Match(tokens, len(tokens))
	require.NoError(t, err)
	assert.Equal(t, "hello world", r.Prompt)

	_, err = m.Match(tokens, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidLength)

	r, err = m.Match(tokens, 2)
	require.NoError(t, err)
	assert.Equal(t, "", r.Prompt)
}

func TestMatch_CapacityBoundary(t *testing.T) {
	tok := resolve(t, "byte")
	tokens, err := tok.Encode("hello")
	require.NoError(t, err)
	m := NewLengthMatcher(tok)

	_, err = m.Match(tokens, 5)
	require.NoError(t, err)

	_, err = m.Match(tokens, 6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCapacity))

	var cerr *domain.CapacityError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 6, cerr.Requested)
	assert.Equal(t, 5, cerr.Available)
	assert.Contains(t, err.Error(), "longer source text")
}

func TestMatch_InvalidLength(t *testing.T) {
	tok := resolve(t, "byte")
	tokens, err := tok.Encode(sample)
	require.NoError(t, err)
	m := NewLengthMatcher(tok)

	for _, length := range []int{0, -1, -100} {
		_, err := m.Match(tokens, length)
		assert.ErrorIs(t, err, domain.ErrInvalidLength, "length %d", length)
	}
}

func TestMatch_SplitMultiByteCharacter(t *testing.T) {
	tok := resolve(t, "byte")
	tokens, err := tok.Encode("héllo")
	require.NoError(t, err)
	m := NewLengthMatcher(tok)

	_, err = m.Match(tokens, 2)
	require.Error(t, err)

	var verr *domain.VerificationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, domain.StageUTF8, verr.Stage)
	assert.ErrorIs(t, err, domain.ErrVerification)

	r, err := m.Match(tokens, 3)
	require.NoError(t, err)
	assert.Equal(t, "hé", r.Prompt)
}

func TestMatch_CountMismatch(t *testing.T) {
	// "ab" encodes as one token inside the source but as two on its own.
	tok := &scriptedTokenizer{
		encodings: map[string]domain.TokenSequence{
			"xab y": {1, 9, 3, 4},
			"xab":   {1, 2, 2},
		},
		decodings: map[string]string{
			decodeKey(domain.TokenSequence{1, 9}, true): "xab",
		},
	}
	tokens, err := tok.Encode("xab y")
	require.NoError(t, err)

	_, err = NewLengthMatcher(tok).Match(tokens, 2)
	require.Error(t, err)

	var verr *domain.VerificationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, domain.StageCount, verr.Stage)
	assert.Equal(t, 2, verr.Length)
	assert.Equal(t, 3, verr.Got)
	assert.Equal(t, "xab", verr.Prompt)
}

func TestMatch_TextMismatch(t *testing.T) {
	tok := &scriptedTokenizer{
		encodings: map[string]domain.TokenSequence{
			"source": {1, 2, 3},
			"ab":     {1, 2},
		},
		decodings: map[string]string{
			decodeKey(domain.TokenSequence{1, 2}, true):  "ab",
			decodeKey(domain.TokenSequence{1, 2}, false): "aB",
		},
	}
	tokens, err := tok.Encode("source")
	require.NoError(t, err)

	_, err = NewLengthMatcher(tok).Match(tokens, 2)
	require.Error(t, err)

	var verr *domain.VerificationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, domain.StageText, verr.Stage)
	assert.Equal(t, "ab", verr.Prompt)
	assert.Equal(t, "aB", verr.Reproduced)
}

func TestMatch_Idempotent(t *testing.T) {
	for _, handle := range []string{"byte", "byte-bos"} {
		t.Run(handle, func(t *testing.T) {
			tok := resolve(t, handle)
			tokens, err := tok.Encode(sample)
			require.NoError(t, err)
			m := NewLengthMatcher(tok)

			first, err := m.Match(tokens, 20)
			require.NoError(t, err)

			again, err := tok.Encode(first.Prompt)
			require.NoError(t, err)
			second, err := m.Match(again, 20)
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}

func TestMatch_EmbeddedNewlines(t *testing.T) {
	tok := resolve(t, "byte")
	text := strings.Repeat("line\n", 10)
	tokens, err := tok.Encode(text)
	require.NoError(t, err)

	r, err := NewLengthMatcher(tok).Match(tokens, 12)
	require.NoError(t, err)
	assert.Equal(t, "line\nline\nli", r.Prompt)
}
