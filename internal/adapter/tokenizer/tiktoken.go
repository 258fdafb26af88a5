package tokenizer

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

var offlineBPEOnce sync.Once

// useOfflineBPE switches tiktoken to the BPE ranks embedded in the binary,
// downloading only the encodings the loader does not embed (o200k_base).
// The loader is process-wide inside tiktoken-go, so it is set once.
func useOfflineBPE() {
	offlineBPEOnce.Do(func() {
		tiktoken.SetBpeLoader(&embeddedFirstLoader{
			embedded: tiktoken_loader.NewOfflineLoader(),
			online:   tiktoken.NewDefaultBpeLoader(),
		})
	})
}

type embeddedFirstLoader struct {
	embedded tiktoken.BpeLoader
	online   tiktoken.BpeLoader
}

func (l *embeddedFirstLoader) LoadTiktokenBpe(file string) (map[string]int, error) {
	ranks, err := l.embedded.LoadTiktokenBpe(file)
	if errors.Is(err, fs.ErrNotExist) {
		return l.online.LoadTiktokenBpe(file)
	}
	return ranks, err
}

// tiktokenBackend wraps an OpenAI BPE encoding. These encodings add no
// implicit tokens and treat special-token text as ordinary text.
type tiktokenBackend struct {
	enc *tiktoken.Tiktoken
}

// openTiktoken accepts an encoding name (cl100k_base) or a model name
// (gpt-4).
func openTiktoken(name string, opts Options) (*tiktokenBackend, error) {
	if opts.OfflineBPE {
		useOfflineBPE()
	}

	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		var modelErr error
		enc, modelErr = tiktoken.EncodingForModel(name)
		if modelErr != nil {
			return nil, fmt.Errorf("unknown tiktoken encoding or model %q: %w", name, err)
		}
	}
	return &tiktokenBackend{enc: enc}, nil
}

func (t *tiktokenBackend) Encode(text string, addSpecialTokens bool) ([]int, error) {
	return t.enc.Encode(text, nil, nil), nil
}

func (t *tiktokenBackend) Decode(ids []int, skipSpecialTokens bool) (string, error) {
	return t.enc.Decode(ids), nil
}

func (t *tiktokenBackend) Close() error {
	return nil
}
