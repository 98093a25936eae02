package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseFilename(t *testing.T) {
	meta, err := ParseFilename("aapl-20220924.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.CompanyName != "aapl" {
		t.Errorf("company: expected aapl, got %q", meta.CompanyName)
	}
	if meta.FiscalYear != "2022" {
		t.Errorf("fiscal year: expected 2022, got %q", meta.FiscalYear)
	}
	if meta.DocumentType != "10-K" {
		t.Errorf("document type: expected 10-K, got %q", meta.DocumentType)
	}
	if meta.SourceFile != "aapl-20220924.pdf" {
		t.Errorf("source file: expected basename, got %q", meta.SourceFile)
	}
}

func TestParseFilenameUppercaseCompany(t *testing.T) {
	meta, err := ParseFilename("MSFT-20230630.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.CompanyName != "msft" {
		t.Errorf("expected lowercased company, got %q", meta.CompanyName)
	}
	if meta.FiscalYear != "2023" {
		t.Errorf("expected 2023, got %q", meta.FiscalYear)
	}
}

func TestParseFilenameStripsDirectory(t *testing.T) {
	meta, err := ParseFilename(filepath.Join("data", "filings", "ibm-20211231.md"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.CompanyName != "ibm" || meta.FiscalYear != "2021" {
		t.Errorf("got %+v", meta)
	}
	if meta.SourceFile != "ibm-20211231.md" {
		t.Errorf("source file should be the basename, got %q", meta.SourceFile)
	}
}

func TestParseFilenameInvalid(t *testing.T) {
	cases := []string{
		"notes.txt",           // no hyphen
		"aapl-2022.pdf",       // date too short
		"aapl-2022092.pdf",    // 7 digits
		"aapl-202209240.pdf",  // 9 digits
		"aapl-2022O924.pdf",   // letter O in the date
		"-20220924.pdf",       // empty company token
		"aapl_20220924.pdf",   // wrong delimiter
	}
	for _, name := range cases {
		if _, err := ParseFilename(name); !errors.Is(err, ErrInvalidFilename) {
			t.Errorf("%s: expected ErrInvalidFilename, got %v", name, err)
		}
	}
}

func TestParseFilenameHyphenatedDateSegmentOnly(t *testing.T) {
	// Only the first hyphen splits company from date; the rest of the stem
	// must be exactly the 8-digit date.
	if _, err := ParseFilename("berkshire-hathaway-20220924.pdf"); !errors.Is(err, ErrInvalidFilename) {
		t.Errorf("expected ErrInvalidFilename for extra hyphen, got %v", err)
	}
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b-20220101.pdf", "a-20220101.pdf", ".hidden"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(files), files)
	}
	// Sorted, full paths, no dotfiles or directories.
	if filepath.Base(files[0]) != "a-20220101.pdf" || filepath.Base(files[1]) != "b-20220101.pdf" {
		t.Errorf("unexpected order: %v", files)
	}
}

func TestScanDirMissing(t *testing.T) {
	if _, err := ScanDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}
