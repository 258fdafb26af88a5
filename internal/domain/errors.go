package domain

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrCapacity            = errors.New("source text too short")
	ErrVerification        = errors.New("round-trip verification failed")
	ErrTokenizerResolution = errors.New("tokenizer resolution failed")
	ErrOutputConflict      = errors.New("output file exists")
	ErrInvalidLength       = errors.New("invalid target length")
)

// CapacityError reports a target length larger than the encoded source.
type CapacityError struct {
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("cannot generate prompt with %d tokens because the source text contains %d tokens; use a longer source text to create longer prompts",
		e.Requested, e.Available)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacity
}

// Verification stages.
const (
	StageUTF8  = "utf8"
	StageCount = "count"
	StageText  = "text"
)

// VerificationError reports a decode/re-encode round trip that did not
// reproduce the requested prompt.
type VerificationError struct {
	Length     int
	Got        int
	Stage      string
	Prompt     string
	Reproduced string
}

func (e *VerificationError) Error() string {
	switch e.Stage {
	case StageCount:
		return fmt.Sprintf("expected %d tokens, got %d after re-encoding prompt %q", e.Length, e.Got, e.Prompt)
	case StageText:
		return fmt.Sprintf("prompt of %d tokens does not survive re-encoding: %q != %q", e.Length, e.Reproduced, e.Prompt)
	case StageUTF8:
		return fmt.Sprintf("prompt of %d tokens ends inside a multi-byte character", e.Length)
	default:
		return fmt.Sprintf("verification failed for %d tokens", e.Length)
	}
}

func (e *VerificationError) Is(target error) bool {
	return target == ErrVerification
}

// TokenizerResolutionError reports a tokenizer handle that could not be bound.
type TokenizerResolutionError struct {
	Handle  string
	ModelID string
	Err     error
}

func (e *TokenizerResolutionError) Error() string {
	if e.ModelID != "" && e.ModelID != e.Handle {
		return fmt.Sprintf("cannot load tokenizer %q (%s): %v", e.Handle, e.ModelID, e.Err)
	}
	return fmt.Sprintf("cannot load tokenizer %q: %v", e.Handle, e.Err)
}

func (e *TokenizerResolutionError) Unwrap() error {
	return e.Err
}

func (e *TokenizerResolutionError) Is(target error) bool {
	return target == ErrTokenizerResolution
}

// OutputConflictError is returned when the output path exists and
// overwriting was not requested.
type OutputConflictError struct {
	Path string
}

func (e *OutputConflictError) Error() string {
	return fmt.Sprintf("output file exists: %s (use --overwrite to replace it)", e.Path)
}

func (e *OutputConflictError) Is(target error) bool {
	return target == ErrOutputConflict || target == fs.ErrExist
}
