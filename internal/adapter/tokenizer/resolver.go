package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"promptgen/internal/diag"
	"promptgen/internal/domain"
	"promptgen/internal/port"
)

// Identifier forms understood by the resolver.
const (
	IDByte         = "byte"
	IDByteBOS      = "byte-bos"
	schemeTiktoken = "tiktoken:"
	schemeHugging  = "hf:"
)

// Resolver binds tokenizer handles and keeps every bound tokenizer for the
// lifetime of the process, keyed by resolved identifier. It is not safe for
// concurrent use.
type Resolver struct {
	presets Presets
	opts    Options
	logger  *log.Logger
	bound   map[string]*Adapter
}

var _ port.TokenizerResolver = (*Resolver)(nil)

func NewResolver(presets Presets, opts Options) *Resolver {
	return &Resolver{
		presets: presets,
		opts:    opts,
		logger:  diag.OrDiscard(opts.Logger),
		bound:   make(map[string]*Adapter),
	}
}

func (r *Resolver) Presets() Presets {
	return r.presets
}

// Resolve binds handle, a preset name or a literal identifier.
func (r *Resolver) Resolve(handle string) (port.Tokenizer, error) {
	a, err := r.ResolveAdapter(handle)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ResolveAdapter is Resolve returning the concrete adapter.
func (r *Resolver) ResolveAdapter(handle string) (*Adapter, error) {
	modelID := r.presets.Lookup(handle)
	if modelID == "" {
		return nil, &domain.TokenizerResolutionError{Handle: handle, Err: errors.New("empty tokenizer identifier")}
	}
	if a, ok := r.bound[modelID]; ok {
		return a, nil
	}

	backend, err := r.open(modelID)
	if err != nil {
		return nil, &domain.TokenizerResolutionError{Handle: handle, ModelID: modelID, Err: err}
	}
	a, err := NewAdapter(modelID, backend, r.opts.maxLength(), r.logger)
	if err != nil {
		backend.Close()
		return nil, &domain.TokenizerResolutionError{Handle: handle, ModelID: modelID, Err: err}
	}

	r.bound[modelID] = a
	r.logger.Debug("tokenizer bound", "handle", handle, "model", modelID,
		"leading", a.layout.Leading, "trailing", a.layout.Trailing)
	return a, nil
}

func (r *Resolver) open(modelID string) (Backend, error) {
	switch {
	case modelID == IDByte:
		return newByteBackend(false), nil
	case modelID == IDByteBOS:
		return newByteBackend(true), nil
	case strings.HasPrefix(modelID, schemeTiktoken):
		name := strings.TrimPrefix(modelID, schemeTiktoken)
		if name == "" {
			return nil, fmt.Errorf("missing tiktoken encoding name")
		}
		return openTiktoken(name, r.opts)
	case strings.HasPrefix(modelID, schemeHugging):
		return openHuggingFace(strings.TrimPrefix(modelID, schemeHugging), r.opts)
	default:
		return openHuggingFace(modelID, r.opts)
	}
}

// Close releases every bound backend.
func (r *Resolver) Close() error {
	var errs []error
	for id, a := range r.bound {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	r.bound = make(map[string]*Adapter)
	return errors.Join(errs...)
}
