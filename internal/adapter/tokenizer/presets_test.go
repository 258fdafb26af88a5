package tokenizer

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresets_Lookup(t *testing.T) {
	p := NewPresets(nil)

	assert.Equal(t, "facebook/opt-125m", p.Lookup("opt"))
	assert.Equal(t, "facebook/opt-125m", p.Lookup(" OPT "))
	assert.Equal(t, "tiktoken:cl100k_base", p.Lookup("gpt-4"))
	assert.Equal(t, "bigcode/starcoder2-7b", p.Lookup("bigcode/starcoder2-7b"), "literal identifiers pass through")
	assert.Equal(t, "", p.Lookup(""))
}

func TestPresets_Overrides(t *testing.T) {
	p := NewPresets(map[string]string{
		"Opt":    "facebook/opt-2.7b",
		"mine":   "./tokenizers/mine",
		"falcon": "",
	})

	assert.Equal(t, "facebook/opt-2.7b", p.Lookup("opt"))
	assert.Equal(t, "./tokenizers/mine", p.Lookup("mine"))
	assert.Equal(t, "falcon", p.Lookup("falcon"), "removed preset falls back to the literal handle")

	base := NewPresets(nil)
	assert.Equal(t, "facebook/opt-125m", base.Lookup("opt"), "overrides do not leak into other tables")
}

func TestPresets_NamesAndReverseLookup(t *testing.T) {
	p := NewPresets(map[string]string{"opt-small": "facebook/opt-125m"})

	names := p.Names()
	assert.True(t, sort.StringsAreSorted(names))
	assert.Equal(t, p.Len(), len(names))
	assert.Contains(t, names, "opt-small")

	assert.Equal(t, "opt", p.NameFor("facebook/opt-125m"))
	assert.Equal(t, "", p.NameFor("unknown/model"))
}
