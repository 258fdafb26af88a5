// Package source loads the text prompts are cut from.
package source

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gopdf "github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"promptgen/internal/port"
)

// DefaultName is the name of the built-in source text.
const DefaultName = "alice"

//go:embed text_files/*.txt
var textFiles embed.FS

// Reader loads source files by extension: PDF and HTML documents are
// reduced to their text, anything else is read verbatim.
type Reader struct{}

var _ port.SourceReader = (*Reader)(nil)

func NewReader() *Reader {
	return &Reader{}
}

// ReadSource returns the text of path. An empty path or DefaultName selects
// the built-in text.
func (r *Reader) ReadSource(path string) (string, error) {
	if path == "" || path == DefaultName {
		return Default()
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return readPDF(path)
	case ".html", ".htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read source: %w", err)
		}
		return ExtractHTMLText(string(data)), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read source: %w", err)
		}
		return string(data), nil
	}
}

// Default returns the built-in text, the opening chapters of Alice's
// Adventures in Wonderland.
func Default() (string, error) {
	data, err := textFiles.ReadFile("text_files/" + DefaultName + ".txt")
	if err != nil {
		return "", fmt.Errorf("read built-in source: %w", err)
	}
	return string(data), nil
}

// Name returns the short name a source is filed under in sweep output.
func Name(path string) string {
	if path == "" {
		return DefaultName
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func readPDF(path string) (string, error) {
	f, reader, err := gopdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf source: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for p := 1; p <= reader.NumPage(); p++ {
		page := reader.Page(p)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract text from page %d of %s: %w", p, path, err)
		}
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteByte('\n')
		}
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("no text extracted from %s", path)
	}
	return b.String(), nil
}

// ExtractHTMLText returns the visible text of an HTML document. Block
// elements start a new line; script, style and head content is dropped.
func ExtractHTMLText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var b strings.Builder
	skip := 0
	lineStart := true

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			tn, _ := z.TagName()
			tag := string(tn)
			if isHiddenTag(tag) && tt == html.StartTagToken {
				skip++
			}
			if isBlockTag(tag) && !lineStart {
				b.WriteByte('\n')
				lineStart = true
			}
		case html.EndTagToken:
			tn, _ := z.TagName()
			tag := string(tn)
			if isHiddenTag(tag) && skip > 0 {
				skip--
			}
			if isBlockTag(tag) && !lineStart {
				b.WriteByte('\n')
				lineStart = true
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := strings.Join(strings.Fields(string(z.Text())), " ")
			if text == "" {
				continue
			}
			if !lineStart {
				b.WriteByte(' ')
			}
			b.WriteString(text)
			lineStart = false
		}
	}
}

func isHiddenTag(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "head", "template":
		return true
	}
	return false
}

func isBlockTag(tag string) bool {
	switch tag {
	case "div", "p", "br", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "table", "tr", "td", "th",
		"section", "article", "header", "footer", "nav",
		"blockquote", "pre", "hr":
		return true
	}
	return false
}
