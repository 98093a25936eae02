package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// ErrTextExtraction is returned when a document cannot be converted to plain
// text. Per-document, non-fatal.
var ErrTextExtraction = errors.New("text extraction failed")

// TextExtractor converts one filing document into plain text.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// FileTextExtractor is the default TextExtractor. It dispatches on the file
// extension: HTML is stripped with goquery, Markdown is flattened through the
// goldmark AST, PDFs go through the pdfcpu content extractor, and anything
// else is read verbatim.
type FileTextExtractor struct{}

var _ TextExtractor = (*FileTextExtractor)(nil)

// NewFileTextExtractor returns the default extension-dispatching extractor.
func NewFileTextExtractor() *FileTextExtractor {
	return &FileTextExtractor{}
}

func (x *FileTextExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTextExtraction, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return htmlToText(string(data))
	case ".md", ".markdown":
		return markdownToText(data)
	case ".pdf":
		return pdfToText(path)
	default:
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", fmt.Errorf("%w: %s is empty", ErrTextExtraction, filepath.Base(path))
		}
		return text, nil
	}
}

// htmlToText strips markup, scripts and styles, returning the visible text.
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("%w: parse HTML: %v", ErrTextExtraction, err)
	}

	doc.Find("script, style, noscript").Remove()

	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}

	text = collapseWhitespace(text)
	if text == "" {
		return "", fmt.Errorf("%w: HTML document has no visible text", ErrTextExtraction)
	}
	return text, nil
}

// markdownToText walks the goldmark AST and collects the raw text segments,
// discarding formatting structure.
func markdownToText(source []byte) (string, error) {
	parser := goldmark.DefaultParser()
	doc := parser.Parse(gmtext.NewReader(source))
	if doc == nil {
		return "", fmt.Errorf("%w: markdown parse produced no document", ErrTextExtraction)
	}

	var sb strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		default:
			if n.Type() == ast.TypeBlock && sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: markdown walk: %v", ErrTextExtraction, err)
	}

	text := collapseWhitespace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: markdown document has no text", ErrTextExtraction)
	}
	return text, nil
}

// collapseWhitespace trims each line and drops runs of blank lines.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
