package tokenizer

import (
	"sort"
	"strings"
)

// DefaultPresets returns the built-in friendly names.
func DefaultPresets() map[string]string {
	return map[string]string{
		"byte":       IDByte,
		"byte-bos":   IDByteBOS,
		"gpt-4":      "tiktoken:cl100k_base",
		"gpt-4o":     "tiktoken:o200k_base",
		"gpt-3":      "tiktoken:r50k_base",
		"bert":       "google-bert/bert-base-uncased",
		"blenderbot": "facebook/blenderbot-400M-distill",
		"bloom":      "bigscience/bloom-560m",
		"falcon":     "tiiuae/falcon-7b",
		"gemma":      "google/gemma-2b-it",
		"gpt-neox":   "EleutherAI/gpt-neox-20b",
		"llama":      "TinyLlama/TinyLlama-1.1B-Chat-v1.0",
		"mistral":    "mistralai/Mistral-7B-Instruct-v0.2",
		"mpt":        "mosaicml/mpt-7b",
		"opt":        "facebook/opt-125m",
		"phi-2":      "microsoft/phi-2",
		"phi-3":      "microsoft/Phi-3-mini-4k-instruct",
		"pythia":     "EleutherAI/pythia-1.4b-deduped",
		"qwen":       "Qwen/Qwen2-7B-Instruct",
		"redpajama":  "togethercomputer/RedPajama-INCITE-Chat-3B-v1",
		"roberta":    "FacebookAI/roberta-base",
		"starcoder":  "bigcode/starcoder2-7b",
		"t5":         "google-t5/t5-base",
		"zephyr":     "HuggingFaceH4/zephyr-7b-beta",
	}
}

// Presets maps friendly names to tokenizer identifiers. It is built once and
// never modified.
type Presets struct {
	names map[string]string
}

// NewPresets merges extra over the built-in table. Names are case
// insensitive; an empty identifier removes a built-in name.
func NewPresets(extra map[string]string) Presets {
	names := make(map[string]string)
	for name, id := range DefaultPresets() {
		names[name] = id
	}
	for name, id := range extra {
		name = strings.ToLower(strings.TrimSpace(name))
		id = strings.TrimSpace(id)
		if name == "" {
			continue
		}
		if id == "" {
			delete(names, name)
			continue
		}
		names[name] = id
	}
	return Presets{names: names}
}

// Lookup returns the identifier for handle. Handles that are not preset
// names are returned unchanged so literal identifiers work too.
func (p Presets) Lookup(handle string) string {
	handle = strings.TrimSpace(handle)
	if id, ok := p.names[strings.ToLower(handle)]; ok {
		return id
	}
	return handle
}

// NameFor returns the preset name of id, or "" when id has none. The
// shortest name wins when several presets share an identifier.
func (p Presets) NameFor(id string) string {
	best := ""
	for name, candidate := range p.names {
		if candidate != id {
			continue
		}
		if best == "" || len(name) < len(best) || (len(name) == len(best) && name < best) {
			best = name
		}
	}
	return best
}

// Names returns the preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p.names))
	for name := range p.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Presets) Len() int {
	return len(p.names)
}
