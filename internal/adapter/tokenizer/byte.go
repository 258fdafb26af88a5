package tokenizer

import (
	"fmt"
)

// ByteBOS is the begin-of-sequence id of the byte-bos vocabulary.
const ByteBOS = 256

const byteBOSText = "<s>"

// byteBackend maps every byte to its own id. With bos set it prepends
// ByteBOS on encode, the way OPT or Llama tokenizers prepend their
// begin-of-sequence token.
type byteBackend struct {
	bos bool
}

func newByteBackend(bos bool) *byteBackend {
	return &byteBackend{bos: bos}
}

func (b *byteBackend) Encode(text string, addSpecialTokens bool) ([]int, error) {
	n := len(text)
	if b.bos && addSpecialTokens {
		n++
	}
	ids := make([]int, 0, n)
	if b.bos && addSpecialTokens {
		ids = append(ids, ByteBOS)
	}
	for i := 0; i < len(text); i++ {
		ids = append(ids, int(text[i]))
	}
	return ids, nil
}

func (b *byteBackend) Decode(ids []int, skipSpecialTokens bool) (string, error) {
	buf := make([]byte, 0, len(ids))
	for _, id := range ids {
		switch {
		case id == ByteBOS && b.bos:
			if !skipSpecialTokens {
				buf = append(buf, byteBOSText...)
			}
		case id >= 0 && id < 256:
			buf = append(buf, byte(id))
		default:
			return "", fmt.Errorf("token id %d outside the byte vocabulary", id)
		}
	}
	return string(buf), nil
}

func (b *byteBackend) Close() error {
	return nil
}
