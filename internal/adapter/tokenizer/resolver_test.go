package tokenizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptgen/internal/domain"
)

func TestResolver_BytePresets(t *testing.T) {
	r := NewResolver(NewPresets(nil), Options{})
	defer r.Close()

	tok, err := r.Resolve("byte")
	require.NoError(t, err)
	assert.Equal(t, IDByte, tok.ModelID())
	assert.Equal(t, domain.SpecialLayout{}, tok.Layout())

	tok, err = r.Resolve("byte-bos")
	require.NoError(t, err)
	assert.Equal(t, domain.SpecialLayout{Leading: 1}, tok.Layout())
}

func TestResolver_CachesByModelID(t *testing.T) {
	r := NewResolver(NewPresets(map[string]string{"raw": IDByte}), Options{})
	defer r.Close()

	first, err := r.ResolveAdapter("byte")
	require.NoError(t, err)
	second, err := r.ResolveAdapter("raw")
	require.NoError(t, err)

	assert.Same(t, first, second, "equivalent handles share one bound tokenizer")
}

func TestResolver_Errors(t *testing.T) {
	r := NewResolver(NewPresets(nil), Options{})
	defer r.Close()

	tests := []struct {
		name   string
		handle string
	}{
		{"empty", ""},
		{"missing tiktoken name", "tiktoken:"},
		{"unknown tiktoken encoding", "tiktoken:no_such_encoding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.handle)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrTokenizerResolution))

			var rerr *domain.TokenizerResolutionError
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, tt.handle, rerr.Handle)
		})
	}
}
