// Package pipeline drives the batch: scan input files, run the
// parse-extract-persist chain per document inside isolated error scopes, then
// aggregate and render the report once all persistence has finished.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"filing_analytics/pkg/core/calc"
	"filing_analytics/pkg/core/config"
	"filing_analytics/pkg/core/ingest"
	"filing_analytics/pkg/core/logger"
	"filing_analytics/pkg/core/report"
	"filing_analytics/pkg/core/store"
	"filing_analytics/pkg/models"
)

// FactExtractor produces typed facts from document text. Implemented by
// extract.Extractor; tests substitute a mock.
type FactExtractor interface {
	Extract(ctx context.Context, meta models.DocumentMeta, text string) (*models.ExtractionResult, error)
}

// DocumentStore is the persistence surface the orchestrator drives.
type DocumentStore interface {
	SaveDocument(ctx context.Context, meta models.DocumentMeta, result *models.ExtractionResult) (int64, error)
	LoadFacts(ctx context.Context) ([]models.CompanyYear, error)
}

// SnapshotPublisher receives finished per-company analytics. Optional.
type SnapshotPublisher interface {
	Save(ctx context.Context, batchID, companyName string, analytics interface{}) error
}

// Orchestrator wires the stages together for one batch run.
type Orchestrator struct {
	cfg       config.Config
	log       *logger.Logger
	texts     ingest.TextExtractor
	extractor FactExtractor
	docs      DocumentStore
	mirror    store.Mirror      // optional, for the Parquet export
	snapshots SnapshotPublisher // optional
}

// New creates an orchestrator with the required dependencies.
func New(cfg config.Config, log *logger.Logger, texts ingest.TextExtractor, extractor FactExtractor, docs DocumentStore) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		log:       log,
		texts:     texts,
		extractor: extractor,
		docs:      docs,
	}
}

// SetMirror enables the end-of-batch Parquet export.
func (o *Orchestrator) SetMirror(m store.Mirror) { o.mirror = m }

// SetSnapshots enables publishing per-company analytics after the report.
func (o *Orchestrator) SetSnapshots(s SnapshotPublisher) { o.snapshots = s }

// Run executes the full batch. Per-document failures are logged and skipped;
// only an unreadable store after ingestion is fatal.
func (o *Orchestrator) Run(ctx context.Context) error {
	batchID := uuid.NewString()
	start := time.Now()
	log := o.log.With("batch_id", batchID)

	files, err := ingest.ScanDir(o.cfg.Input.Dir)
	if err != nil {
		return err
	}
	log.Info("batch starting", "dir", o.cfg.Input.Dir, "files", len(files), "workers", o.cfg.Pipeline.Workers)

	var (
		mu        sync.Mutex
		succeeded int
		failed    int
		results   = make(map[string]*models.ExtractionResult)
	)

	// Documents are independent, so extraction may fan out; all writes are
	// funneled through the mutex so the two stores see one writer.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Pipeline.Workers)

	for _, file := range files {
		g.Go(func() error {
			meta, result, err := o.processDocument(gctx, file)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("document skipped", "file", file, "err", err)
				failed++
				return nil // per-document errors never abort the batch
			}
			if _, err := o.docs.SaveDocument(gctx, meta, result); err != nil {
				log.Warn("document skipped", "file", file, "err", err)
				failed++
				return nil
			}
			results[meta.SourceFile] = result
			succeeded++
			log.Info("document persisted", "file", meta.SourceFile,
				"company", meta.CompanyName, "fiscal_year", meta.FiscalYear)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("ingestion finished", "succeeded", succeeded, "failed", failed)

	// Read-after-write barrier: aggregation only sees a fully persisted
	// batch.
	rows, err := o.docs.LoadFacts(ctx)
	if err != nil {
		return fmt.Errorf("read persisted facts: %w", err)
	}

	analytics := calc.BuildAnalytics(rows)

	if err := os.WriteFile(o.cfg.Output.ReportPath, []byte(report.Render(analytics)), 0644); err != nil {
		return fmt.Errorf("write report %s: %w", o.cfg.Output.ReportPath, err)
	}
	log.Info("report written", "path", o.cfg.Output.ReportPath, "contents", report.Summary(analytics))

	if o.mirror != nil && o.cfg.Storage.ParquetDir != "" {
		if err := o.mirror.ExportParquet(ctx, o.cfg.Storage.ParquetDir); err != nil {
			log.Error("parquet export failed", "dir", o.cfg.Storage.ParquetDir, "err", err)
		} else {
			log.Info("parquet mirror exported", "dir", o.cfg.Storage.ParquetDir)
		}
	}

	if o.cfg.Output.ResultsJSON != "" {
		if err := o.dumpResults(results); err != nil {
			log.Warn("results dump failed", "err", err)
		}
	}

	if o.snapshots != nil {
		for _, company := range analytics.Companies {
			if err := o.snapshots.Save(ctx, batchID, company.CompanyName, company); err != nil {
				log.Warn("snapshot publish failed", "company", company.CompanyName, "err", err)
			}
		}
	}

	log.Info("batch complete", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// processDocument runs the per-document chain up to (not including)
// persistence: filename metadata, text conversion, fact extraction.
func (o *Orchestrator) processDocument(ctx context.Context, file string) (models.DocumentMeta, *models.ExtractionResult, error) {
	meta, err := ingest.ParseFilename(file)
	if err != nil {
		return models.DocumentMeta{}, nil, err
	}

	text, err := o.texts.Extract(file)
	if err != nil {
		return models.DocumentMeta{}, nil, err
	}

	result, err := o.extractor.Extract(ctx, meta, text)
	if err != nil {
		return models.DocumentMeta{}, nil, err
	}

	return meta, result, nil
}

// dumpResults writes the raw extraction results for debugging, keyed by
// source filename.
func (o *Orchestrator) dumpResults(results map[string]*models.ExtractionResult) error {
	data, err := json.MarshalIndent(results, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(o.cfg.Output.ResultsJSON, data, 0644)
}
