package usecase

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"promptgen/internal/adapter/tokenizer"
	"promptgen/internal/domain"
	"promptgen/internal/port"
)

func newResolver(t *testing.T) *tokenizer.Resolver {
	t.Helper()
	r := tokenizer.NewResolver(tokenizer.NewPresets(nil), tokenizer.Options{})
	t.Cleanup(func() { r.Close() })
	return r
}

func resolve(t *testing.T, handle string) port.Tokenizer {
	t.Helper()
	tok, err := newResolver(t).Resolve(handle)
	require.NoError(t, err)
	return tok
}

// wrapTokenizer is a byte-level tokenizer that surrounds every encoding with
// a CLS id and a SEP id, like BERT.
type wrapTokenizer struct{}

const (
	wrapCLS = 300
	wrapSEP = 301
)

func (wrapTokenizer) Encode(text string) (domain.TokenSequence, error) {
	ids := domain.TokenSequence{wrapCLS}
	for i := 0; i < len(text); i++ {
		ids = append(ids, int(text[i]))
	}
	return append(ids, wrapSEP), nil
}

func (wrapTokenizer) Decode(ids domain.TokenSequence, skip bool) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		switch id {
		case wrapCLS:
			if !skip {
				b.WriteString("[CLS]")
			}
		case wrapSEP:
			if !skip {
				b.WriteString("[SEP]")
			}
		default:
			b.WriteByte(byte(id))
		}
	}
	return b.String(), nil
}

func (wrapTokenizer) Layout() domain.SpecialLayout {
	return domain.SpecialLayout{Leading: 1, Trailing: 1}
}

func (wrapTokenizer) ModelID() string { return "wrap" }

// scriptedTokenizer answers from fixed tables, for round trips no real
// tokenizer produces on demand.
type scriptedTokenizer struct {
	encodings map[string]domain.TokenSequence
	decodings map[string]string
}

func decodeKey(ids domain.TokenSequence, skip bool) string {
	return fmt.Sprint([]int(ids), skip)
}

func (s *scriptedTokenizer) Encode(text string) (domain.TokenSequence, error) {
	ids, ok := s.encodings[text]
	if !ok {
		return nil, fmt.Errorf("no scripted encoding for %q", text)
	}
	return ids, nil
}

func (s *scriptedTokenizer) Decode(ids domain.TokenSequence, skip bool) (string, error) {
	text, ok := s.decodings[decodeKey(ids, skip)]
	if !ok {
		return "", fmt.Errorf("no scripted decoding for %v", ids)
	}
	return text, nil
}

func (s *scriptedTokenizer) Layout() domain.SpecialLayout { return domain.SpecialLayout{} }

func (s *scriptedTokenizer) ModelID() string { return "scripted" }

// countingTokenizer counts how often the full source text is encoded.
type countingTokenizer struct {
	port.Tokenizer
	source  string
	encodes int
}

func (c *countingTokenizer) Encode(text string) (domain.TokenSequence, error) {
	if text == c.source {
		c.encodes++
	}
	return c.Tokenizer.Encode(text)
}

type cacheKey struct {
	model  string
	text   string
	length int
}

// memoryCache is an in-memory port.PromptCache.
type memoryCache struct {
	entries map[cacheKey]domain.PromptResult
	gets    int
	puts    int
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[cacheKey]domain.PromptResult)}
}

func (m *memoryCache) GetPrompt(modelID, text string, length int) (domain.PromptResult, bool, error) {
	m.gets++
	if m.failGet {
		return domain.PromptResult{}, false, fmt.Errorf("cache unavailable")
	}
	r, ok := m.entries[cacheKey{modelID, text, length}]
	return r, ok, nil
}

func (m *memoryCache) PutPrompt(modelID, text string, r domain.PromptResult) error {
	m.puts++
	m.entries[cacheKey{modelID, text, r.Length}] = r
	return nil
}

// wordTokenizer splits text into pieces of leading whitespace plus a word,
// the way GPT-2 style BPE keeps the space in front of a word, and prepends
// a BOS id like OPT.
type wordTokenizer struct {
	ids    map[string]int
	pieces []string
}

const wordBOS = 0

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{ids: map[string]int{}, pieces: []string{"</s>"}}
}

func (w *wordTokenizer) Encode(text string) (domain.TokenSequence, error) {
	ids := domain.TokenSequence{wordBOS}
	start := 0
	for start < len(text) {
		i := start
		for i < len(text) && isSpaceByte(text[i]) {
			i++
		}
		for i < len(text) && !isSpaceByte(text[i]) {
			i++
		}
		ids = append(ids, w.id(text[start:i]))
		start = i
	}
	return ids, nil
}

func (w *wordTokenizer) id(piece string) int {
	if id, ok := w.ids[piece]; ok {
		return id
	}
	w.pieces = append(w.pieces, piece)
	w.ids[piece] = len(w.pieces) - 1
	return len(w.pieces) - 1
}

func (w *wordTokenizer) Decode(ids domain.TokenSequence, skip bool) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		if id == wordBOS {
			if !skip {
				b.WriteString(w.pieces[wordBOS])
			}
			continue
		}
		if id < 0 || id >= len(w.pieces) {
			return "", fmt.Errorf("unknown id %d", id)
		}
		b.WriteString(w.pieces[id])
	}
	return b.String(), nil
}

func (w *wordTokenizer) Layout() domain.SpecialLayout { return domain.SpecialLayout{Leading: 1} }

func (w *wordTokenizer) ModelID() string { return "words" }

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}

// stubResolver serves fixed tokenizers and falls back to the real resolver.
type stubResolver struct {
	fixed    map[string]port.Tokenizer
	fallback port.TokenizerResolver
}

func newStubResolver(t *testing.T, fixed map[string]port.Tokenizer) *stubResolver {
	return &stubResolver{fixed: fixed, fallback: newResolver(t)}
}

func (s *stubResolver) Resolve(handle string) (port.Tokenizer, error) {
	if tok, ok := s.fixed[handle]; ok {
		return tok, nil
	}
	return s.fallback.Resolve(handle)
}
