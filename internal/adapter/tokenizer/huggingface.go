//go:build hftokenizers

package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/daulet/tokenizers"
)

// huggingFaceBackend wraps a tokenizer.json loaded through the HuggingFace
// tokenizers library.
type huggingFaceBackend struct {
	tk *tokenizers.Tokenizer
}

// openHuggingFace loads id from a local tokenizer.json (or a directory that
// holds one) or downloads it from the hub.
func openHuggingFace(id string, opts Options) (Backend, error) {
	if info, err := os.Stat(id); err == nil {
		path := id
		if info.IsDir() {
			path = filepath.Join(id, "tokenizer.json")
		}
		tk, err := tokenizers.FromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return &huggingFaceBackend{tk: tk}, nil
	}

	var options []tokenizers.TokenizerConfigOption
	if opts.CacheDir != "" {
		options = append(options, tokenizers.WithCacheDir(opts.CacheDir))
	}
	if opts.AuthToken != "" {
		options = append(options, tokenizers.WithAuthToken(opts.AuthToken))
	}
	tk, err := tokenizers.FromPretrained(id, options...)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", id, err)
	}
	return &huggingFaceBackend{tk: tk}, nil
}

func (h *huggingFaceBackend) Encode(text string, addSpecialTokens bool) ([]int, error) {
	raw, _ := h.tk.Encode(text, addSpecialTokens)
	ids := make([]int, len(raw))
	for i, id := range raw {
		ids[i] = int(id)
	}
	return ids, nil
}

func (h *huggingFaceBackend) Decode(ids []int, skipSpecialTokens bool) (string, error) {
	raw := make([]uint32, len(ids))
	for i, id := range ids {
		if id < 0 {
			return "", fmt.Errorf("negative token id %d", id)
		}
		raw[i] = uint32(id)
	}
	return h.tk.Decode(raw, skipSpecialTokens), nil
}

func (h *huggingFaceBackend) Close() error {
	return h.tk.Close()
}
