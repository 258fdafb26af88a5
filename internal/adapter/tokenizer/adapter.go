package tokenizer

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"promptgen/internal/diag"
	"promptgen/internal/domain"
	"promptgen/internal/port"
)

// layoutProbe is encoded with and without special tokens to find out what
// a tokenizer adds on its own.
const layoutProbe = "Hello world"

// Adapter is a bound tokenizer.
type Adapter struct {
	backend   Backend
	modelID   string
	layout    domain.SpecialLayout
	maxLength int
	logger    *log.Logger
}

var _ port.Tokenizer = (*Adapter)(nil)

// NewAdapter binds backend under modelID and determines its special-token
// layout. maxLength <= 0 selects DefaultModelMaxLength.
func NewAdapter(modelID string, backend Backend, maxLength int, logger *log.Logger) (*Adapter, error) {
	layout, err := probeLayout(backend)
	if err != nil {
		return nil, err
	}
	if maxLength <= 0 {
		maxLength = DefaultModelMaxLength
	}
	return &Adapter{
		backend:   backend,
		modelID:   modelID,
		layout:    layout,
		maxLength: maxLength,
		logger:    diag.OrDiscard(logger),
	}, nil
}

func (a *Adapter) ModelID() string {
	return a.modelID
}

func (a *Adapter) Layout() domain.SpecialLayout {
	return a.layout
}

// Encode tokenizes text with the implicit special tokens. Input longer than
// the configured ceiling is encoded in full; the advisory only shows up at
// debug level.
func (a *Adapter) Encode(text string) (domain.TokenSequence, error) {
	ids, err := a.backend.Encode(text, true)
	if err != nil {
		return nil, fmt.Errorf("encode with %s: %w", a.modelID, err)
	}
	if len(ids) > a.maxLength {
		a.logger.Debug("token sequence longer than model_max_length, not truncating",
			"model", a.modelID, "tokens", len(ids), "model_max_length", a.maxLength)
	}
	return ids, nil
}

func (a *Adapter) Decode(ids domain.TokenSequence, skipSpecialTokens bool) (string, error) {
	text, err := a.backend.Decode(ids, skipSpecialTokens)
	if err != nil {
		return "", fmt.Errorf("decode with %s: %w", a.modelID, err)
	}
	return text, nil
}

func (a *Adapter) Close() error {
	return a.backend.Close()
}

// probeLayout locates the plain encoding of layoutProbe inside its encoding
// with special tokens. Whatever surrounds it is added by the tokenizer.
func probeLayout(b Backend) (domain.SpecialLayout, error) {
	with, err := b.Encode(layoutProbe, true)
	if err != nil {
		return domain.SpecialLayout{}, fmt.Errorf("probe special tokens: %w", err)
	}
	without, err := b.Encode(layoutProbe, false)
	if err != nil {
		return domain.SpecialLayout{}, fmt.Errorf("probe special tokens: %w", err)
	}
	if len(without) == 0 {
		return domain.SpecialLayout{}, fmt.Errorf("probe %q encodes to no tokens", layoutProbe)
	}

	for i := 0; i+len(without) <= len(with); i++ {
		if slices.Equal(with[i:i+len(without)], without) {
			return domain.SpecialLayout{
				Leading:  i,
				Trailing: len(with) - i - len(without),
			}, nil
		}
	}
	return domain.SpecialLayout{}, fmt.Errorf("cannot locate the plain encoding of %q inside its special-token encoding", layoutProbe)
}
