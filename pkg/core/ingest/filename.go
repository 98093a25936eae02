// Package ingest locates filing documents on disk, derives their identity
// metadata from the naming convention, and converts them to plain text for
// the extraction stage.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filing_analytics/pkg/models"
)

// ErrInvalidFilename is returned when an input file does not follow the
// <company>-<YYYYMMDD>.<ext> naming convention. The caller skips the file and
// keeps the batch running.
var ErrInvalidFilename = errors.New("invalid filename format")

// ParseFilename derives the company identifier and fiscal year from a filing
// file name following <company>-<YYYYMMDD>.<ext>, e.g. "aapl-20220924.pdf".
// The company token is everything before the first hyphen, lowercased. The
// fiscal year is the first four digits of the date segment.
func ParseFilename(name string) (models.DocumentMeta, error) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	idx := strings.Index(stem, "-")
	if idx <= 0 {
		return models.DocumentMeta{}, fmt.Errorf("%w: %q has no hyphen-delimited date segment", ErrInvalidFilename, base)
	}

	company := strings.ToLower(stem[:idx])
	date := stem[idx+1:]

	if len(date) != 8 || !isDigits(date) {
		return models.DocumentMeta{}, fmt.Errorf("%w: %q date segment must be 8 digits", ErrInvalidFilename, base)
	}

	return models.DocumentMeta{
		CompanyName:  company,
		FiscalYear:   date[:4],
		DocumentType: models.DocumentType10K,
		SourceFile:   base,
	}, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ScanDir lists the candidate filing files in dir in a stable order.
// Subdirectories and dotfiles are skipped; filename validation happens later,
// per document, so one misnamed file cannot abort the scan.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan input dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
