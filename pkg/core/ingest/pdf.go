package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Text-showing operators in a decompressed PDF content stream: (string) Tj
// and [(s1) (s2)] TJ.
var (
	tjRe  = regexp.MustCompile(`\(((?:\\.|[^()\\])*)\)\s*Tj`)
	tJRe  = regexp.MustCompile(`\[((?:\\.|[^\[\]\\])*)\]\s*TJ`)
	strRe = regexp.MustCompile(`\(((?:\\.|[^()\\])*)\)`)
)

// pdfToText pulls the page content streams out of a PDF with pdfcpu and
// recovers the shown text from the Tj/TJ operators. Good enough for the
// digitally-born filings this pipeline ingests; scanned documents are out of
// scope.
func pdfToText(path string) (string, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	if err := api.ValidateFile(path, cfg); err != nil {
		return "", fmt.Errorf("%w: invalid PDF %s: %v", ErrTextExtraction, filepath.Base(path), err)
	}

	tmpDir, err := os.MkdirTemp("", "filing-content-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTextExtraction, err)
	}
	defer os.RemoveAll(tmpDir)

	if err := api.ExtractContentFile(path, tmpDir, nil, cfg); err != nil {
		return "", fmt.Errorf("%w: extract content from %s: %v", ErrTextExtraction, filepath.Base(path), err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTextExtraction, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(tmpDir, name))
		if err != nil {
			continue
		}
		sb.WriteString(contentStreamText(string(data)))
		sb.WriteByte('\n')
	}

	text := collapseWhitespace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text content in %s", ErrTextExtraction, filepath.Base(path))
	}
	return text, nil
}

// contentStreamText collects string operands of the text-showing operators.
func contentStreamText(stream string) string {
	var sb strings.Builder

	for _, m := range tjRe.FindAllStringSubmatch(stream, -1) {
		sb.WriteString(unescapePDFString(m[1]))
		sb.WriteByte(' ')
	}
	for _, m := range tJRe.FindAllStringSubmatch(stream, -1) {
		for _, s := range strRe.FindAllStringSubmatch(m[1], -1) {
			sb.WriteString(unescapePDFString(s[1]))
		}
		sb.WriteByte(' ')
	}

	return sb.String()
}

func unescapePDFString(s string) string {
	r := strings.NewReplacer(`\(`, "(", `\)`, ")", `\\`, `\`, `\n`, "\n", `\r`, "", `\t`, " ")
	return r.Replace(s)
}
