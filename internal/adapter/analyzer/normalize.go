package analyzer

import "strings"

// CollapseNewlines replaces every run of consecutive newline characters with
// a single newline. Some tokenizers count a blank line after the end of a
// sentence differently from a single newline, so the same text would encode
// to a different length depending on its blank-line formatting.
func CollapseNewlines(text string) string {
	if !strings.Contains(text, "\n\n") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	prevNewline := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' {
			if prevNewline {
				continue
			}
			prevNewline = true
		} else {
			prevNewline = false
		}
		b.WriteByte(c)
	}

	return b.String()
}

// CountWords returns the number of whitespace separated words, used for
// source summaries.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
