// Package tokenizer binds tokenizer identifiers to concrete backends and
// wraps them in an Adapter that the core can use without knowing which
// tokenizer family it talks to.
package tokenizer

import (
	"github.com/charmbracelet/log"
)

// DefaultModelMaxLength is the advisory ceiling applied when none is
// configured. Source texts are tokenized whole, so it sits far above any
// model context window.
const DefaultModelMaxLength = 1_000_000

// Backend is a raw tokenizer implementation.
type Backend interface {
	// Encode tokenizes text, adding the tokenizer's implicit special tokens
	// when addSpecialTokens is set.
	Encode(text string, addSpecialTokens bool) ([]int, error)

	Decode(ids []int, skipSpecialTokens bool) (string, error)

	Close() error
}

// Options configure how backends are opened.
type Options struct {
	// ModelMaxLength is the advisory ceiling for encoded lengths. Longer
	// encodings are never truncated.
	ModelMaxLength int

	// CacheDir is where downloaded tokenizer files are kept.
	CacheDir string

	// AuthToken is sent to the HuggingFace hub for gated repositories.
	AuthToken string

	// OfflineBPE makes tiktoken use its embedded BPE ranks instead of
	// downloading them.
	OfflineBPE bool

	Logger *log.Logger
}

func (o Options) maxLength() int {
	if o.ModelMaxLength <= 0 {
		return DefaultModelMaxLength
	}
	return o.ModelMaxLength
}
