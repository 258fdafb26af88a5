package usecase

import (
	"fmt"

	"github.com/charmbracelet/log"

	"promptgen/internal/diag"
	"promptgen/internal/domain"
	"promptgen/internal/port"
)

// BatchMode selects how a failing length affects the rest of a batch.
type BatchMode int

const (
	// Strict stops at the first failing length.
	Strict BatchMode = iota
	// Tolerant records the failure in the length's outcome and continues.
	Tolerant
)

func (m BatchMode) String() string {
	if m == Tolerant {
		return "tolerant"
	}
	return "strict"
}

// BatchUseCase generates prompts for many lengths from one text.
type BatchUseCase struct {
	cache  port.PromptCache
	logger *log.Logger
}

// NewBatchUseCase creates a batch use case. cache may be nil.
func NewBatchUseCase(cache port.PromptCache, logger *log.Logger) *BatchUseCase {
	return &BatchUseCase{
		cache:  cache,
		logger: diag.OrDiscard(logger),
	}
}

// Run encodes text once and matches every requested length against it,
// keeping request order and duplicates. A single-length batch is always
// strict. The text is not encoded at all when every length is cached, in
// which case TotalTokens stays zero.
func (u *BatchUseCase) Run(tok port.Tokenizer, text string, lengths []int, mode BatchMode) (*domain.BatchResult, error) {
	if len(lengths) == 0 {
		return nil, fmt.Errorf("%w: no target lengths requested", domain.ErrInvalidLength)
	}
	if len(lengths) == 1 {
		mode = Strict
	}

	modelID := tok.ModelID()
	matcher := NewLengthMatcher(tok)
	result := &domain.BatchResult{
		ModelID:  modelID,
		Outcomes: make([]domain.Outcome, 0, len(lengths)),
	}

	var (
		tokens  domain.TokenSequence
		encoded bool
	)
	for _, length := range lengths {
		if cached, ok := u.lookup(modelID, text, length); ok {
			result.Outcomes = append(result.Outcomes, domain.Outcome{Length: length, Result: &cached})
			continue
		}

		if !encoded {
			var err error
			tokens, err = tok.Encode(text)
			if err != nil {
				return nil, fmt.Errorf("encode source text: %w", err)
			}
			encoded = true
			result.TotalTokens = len(tokens)
			u.logger.Debug("source encoded", "model", modelID, "tokens", len(tokens), "lengths", len(lengths))
		}

		r, err := matcher.Match(tokens, length)
		if err != nil {
			if mode == Strict {
				return nil, err
			}
			u.logger.Warn("length skipped", "model", modelID, "length", length, "class", diag.Classify(err), "err", err)
			result.Outcomes = append(result.Outcomes, domain.Outcome{Length: length, Err: err})
			continue
		}

		u.store(modelID, text, r)
		result.Outcomes = append(result.Outcomes, domain.Outcome{Length: length, Result: &r})
	}

	return result, nil
}

// lookup treats cache failures as misses; the cache only saves work.
func (u *BatchUseCase) lookup(modelID, text string, length int) (domain.PromptResult, bool) {
	if u.cache == nil {
		return domain.PromptResult{}, false
	}
	r, ok, err := u.cache.GetPrompt(modelID, text, length)
	if err != nil {
		u.logger.Warn("prompt cache read failed", "model", modelID, "length", length, "err", err)
		return domain.PromptResult{}, false
	}
	if ok && r.TokenCount != length {
		return domain.PromptResult{}, false
	}
	return r, ok
}

func (u *BatchUseCase) store(modelID, text string, r domain.PromptResult) {
	if u.cache == nil {
		return
	}
	if err := u.cache.PutPrompt(modelID, text, r); err != nil {
		u.logger.Warn("prompt cache write failed", "model", modelID, "length", r.Length, "err", err)
	}
}
