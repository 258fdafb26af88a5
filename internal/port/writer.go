package port

import "promptgen/internal/domain"

// PromptWriter persists prompt records at a path.
type PromptWriter interface {
	WritePrompts(path string, records []domain.PromptRecord) error
}

// PromptCache stores verified results keyed by tokenizer, text and length.
type PromptCache interface {
	GetPrompt(modelID, text string, length int) (domain.PromptResult, bool, error)

	PutPrompt(modelID, text string, result domain.PromptResult) error
}
