package port

import "promptgen/internal/domain"

// Tokenizer is a bound tokenizer. Encode adds the tokenizer's implicit
// special tokens, the way a model sees the text.
type Tokenizer interface {
	Encode(text string) (domain.TokenSequence, error)

	Decode(ids domain.TokenSequence, skipSpecialTokens bool) (string, error)

	// Layout reports the implicit tokens Encode adds around the text.
	Layout() domain.SpecialLayout

	// ModelID returns the resolved identifier of the tokenizer.
	ModelID() string
}

// TokenizerResolver binds tokenizer handles (preset names or identifiers).
type TokenizerResolver interface {
	Resolve(handle string) (Tokenizer, error)
}
