//go:build !hftokenizers

package tokenizer

import "errors"

var errHuggingFaceUnavailable = errors.New("HuggingFace tokenizers are not compiled in; rebuild with -tags hftokenizers")

func openHuggingFace(id string, opts Options) (Backend, error) {
	return nil, errHuggingFaceUnavailable
}
