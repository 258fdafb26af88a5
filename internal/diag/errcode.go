package diag

import (
	"errors"
	"os"

	"promptgen/internal/domain"
)

// Code is a short error class used in summaries and log fields.
type Code string

const (
	CodeUnknown      Code = "unknown"
	CodeCapacity     Code = "capacity"
	CodeVerification Code = "verification"
	CodeTokenizer    Code = "tokenizer"
	CodeConflict     Code = "conflict"
	CodeInput        Code = "input"
	CodeIO           Code = "io"
)

// Classify maps an error to its class using errors.Is/As only.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, domain.ErrCapacity):
		return CodeCapacity
	case errors.Is(err, domain.ErrVerification):
		return CodeVerification
	case errors.Is(err, domain.ErrTokenizerResolution):
		return CodeTokenizer
	case errors.Is(err, domain.ErrOutputConflict):
		return CodeConflict
	case errors.Is(err, domain.ErrInvalidLength):
		return CodeInput
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}
