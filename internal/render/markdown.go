package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// newMarkdown builds the shared goldmark instance. GFM covers the tables and
// strikethrough authors use; raw inline HTML passes through because content
// files are trusted input.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
}

// Markdown converts a Markdown body to HTML.
func (e *Engine) Markdown(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.md.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	return buf.Bytes(), nil
}
