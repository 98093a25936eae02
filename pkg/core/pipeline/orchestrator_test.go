package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filing_analytics/pkg/core/config"
	"filing_analytics/pkg/core/logger"
	"filing_analytics/pkg/core/store"
	"filing_analytics/pkg/models"
)

// scriptedExtractor returns canned facts keyed by company, or an error for
// companies listed in fail.
type scriptedExtractor struct {
	mu    sync.Mutex
	fail  map[string]error
	calls []string
}

func (s *scriptedExtractor) Extract(ctx context.Context, meta models.DocumentMeta, text string) (*models.ExtractionResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, meta.CompanyName)
	s.mu.Unlock()

	if err, ok := s.fail[meta.CompanyName]; ok {
		return nil, err
	}
	return &models.ExtractionResult{
		Income: models.IncomeStatementFacts{
			Revenue:   models.Float(1000),
			NetIncome: models.Float(250),
		},
		Balance: models.BalanceSheetFacts{
			TotalAssets:      models.Float(3000),
			TotalLiabilities: models.Float(2000),
			TotalEquity:      models.Float(1000),
		},
		CashFlow: models.CashFlowFacts{
			OperatingCashFlow: models.Float(300),
		},
	}, nil
}

func testOrchestrator(t *testing.T, dir string, extractor FactExtractor) (*Orchestrator, config.Config) {
	t.Helper()

	cfg := config.Default()
	cfg.Input.Dir = dir
	cfg.Pipeline.Workers = 2
	cfg.Output.ReportPath = filepath.Join(t.TempDir(), "output.txt")
	cfg.Output.ResultsJSON = ""
	cfg.Storage.ParquetDir = ""

	rel, err := store.OpenRelational(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { rel.Close() })

	log := logger.New("error")
	persister := store.NewPersister(rel, nil, log)

	return New(cfg, log, &rawTextExtractor{}, extractor, persister), cfg
}

// rawTextExtractor reads files verbatim so tests can use plain .txt fixtures.
type rawTextExtractor struct{}

func (rawTextExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeFixtures(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("filing text"), 0644))
	}
	return dir
}

func TestRunFullBatch(t *testing.T) {
	dir := writeFixtures(t, "aapl-20220924.txt", "msft-20230630.txt")
	extractor := &scriptedExtractor{}
	orch, cfg := testOrchestrator(t, dir, extractor)

	require.NoError(t, orch.Run(context.Background()))

	report, err := os.ReadFile(cfg.Output.ReportPath)
	require.NoError(t, err)
	out := string(report)
	assert.Contains(t, out, "Financial Analysis Report")
	assert.Contains(t, out, "aapl")
	assert.Contains(t, out, "msft")
	// Net margin 250/1000*100 = 25.
	assert.Contains(t, out, "25.00")
	assert.Len(t, extractor.calls, 2)
}

func TestRunSkipsBadDocuments(t *testing.T) {
	dir := writeFixtures(t,
		"aapl-20220924.txt",
		"badname.txt",          // unparseable filename
		"fail-20220101.txt",    // extraction error
	)
	extractor := &scriptedExtractor{
		fail: map[string]error{"fail": errors.New("model returned garbage")},
	}
	orch, cfg := testOrchestrator(t, dir, extractor)

	// One bad document must never abort the batch.
	require.NoError(t, orch.Run(context.Background()))

	report, err := os.ReadFile(cfg.Output.ReportPath)
	require.NoError(t, err)
	out := string(report)
	assert.Contains(t, out, "aapl")
	assert.NotContains(t, out, "fail")
	assert.NotContains(t, out, "badname")
}

func TestRunEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	orch, cfg := testOrchestrator(t, dir, &scriptedExtractor{})

	require.NoError(t, orch.Run(context.Background()))

	report, err := os.ReadFile(cfg.Output.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), "(no data)")
}

func TestRunWritesResultsDump(t *testing.T) {
	dir := writeFixtures(t, "aapl-20220924.txt")
	extractor := &scriptedExtractor{}
	orch, cfg := testOrchestrator(t, dir, extractor)
	cfg.Output.ResultsJSON = filepath.Join(t.TempDir(), "results.json")
	orch.cfg = cfg

	require.NoError(t, orch.Run(context.Background()))

	data, err := os.ReadFile(cfg.Output.ResultsJSON)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "aapl-20220924.txt"))
}

func TestRunMissingInputDir(t *testing.T) {
	orch, _ := testOrchestrator(t, filepath.Join(t.TempDir(), "nope"), &scriptedExtractor{})
	require.Error(t, orch.Run(context.Background()))
}
