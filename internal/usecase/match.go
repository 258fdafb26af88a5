package usecase

import (
	"fmt"
	"unicode/utf8"

	"promptgen/internal/domain"
	"promptgen/internal/port"
)

// LengthMatcher cuts an encoded text down to an exact number of tokens and
// checks that the cut survives a decode/re-encode round trip.
type LengthMatcher struct {
	tokenizer port.Tokenizer
}

// NewLengthMatcher creates a matcher for sequences encoded by tokenizer.
func NewLengthMatcher(tokenizer port.Tokenizer) *LengthMatcher {
	return &LengthMatcher{tokenizer: tokenizer}
}

// Match returns the prompt made of the first length tokens of tokens.
// tokens must come from the matcher's tokenizer, implicit tokens included.
func (m *LengthMatcher) Match(tokens domain.TokenSequence, length int) (domain.PromptResult, error) {
	layout := m.tokenizer.Layout()

	if length < 1 {
		return domain.PromptResult{}, fmt.Errorf("%w: %d, must be at least 1", domain.ErrInvalidLength, length)
	}
	if length > len(tokens) {
		return domain.PromptResult{}, &domain.CapacityError{Requested: length, Available: len(tokens)}
	}
	if length < layout.Reserved() {
		return domain.PromptResult{}, fmt.Errorf("%w: %d, %s adds %d tokens to every text",
			domain.ErrInvalidLength, length, m.tokenizer.ModelID(), layout.Reserved())
	}

	// Trailing implicit tokens come back on re-encode, so they are left out
	// of the cut.
	candidate := tokens[:length-layout.Trailing]
	prompt, err := m.tokenizer.Decode(candidate, true)
	if err != nil {
		return domain.PromptResult{}, err
	}
	if !utf8.ValidString(prompt) {
		return domain.PromptResult{}, &domain.VerificationError{Length: length, Stage: domain.StageUTF8, Prompt: prompt}
	}

	reencoded, err := m.tokenizer.Encode(prompt)
	if err != nil {
		return domain.PromptResult{}, err
	}
	if len(reencoded) != length {
		return domain.PromptResult{}, &domain.VerificationError{
			Length: length,
			Got:    len(reencoded),
			Stage:  domain.StageCount,
			Prompt: prompt,
		}
	}

	inner := reencoded[layout.Leading : len(reencoded)-layout.Trailing]
	reproduced, err := m.tokenizer.Decode(inner, false)
	if err != nil {
		return domain.PromptResult{}, err
	}
	if reproduced != prompt {
		return domain.PromptResult{}, &domain.VerificationError{
			Length:     length,
			Got:        len(reencoded),
			Stage:      domain.StageText,
			Prompt:     prompt,
			Reproduced: reproduced,
		}
	}

	return domain.PromptResult{
		Length:     length,
		Prompt:     prompt,
		TokenCount: len(reencoded),
	}, nil
}
