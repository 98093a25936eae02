// Package store owns all write access to the two physical stores: the
// relational SQLite database and its columnar DuckDB mirror. The aggregation
// engine reads back through LoadFacts and never mutates stored facts.
package store

import (
	"context"
	"errors"
	"fmt"

	"filing_analytics/pkg/core/logger"
	"filing_analytics/pkg/models"
)

var (
	// ErrPersistence covers storage-layer I/O failures while writing a
	// document. Per-document, non-fatal to the batch.
	ErrPersistence = errors.New("persistence failed")

	// ErrAggregationInput means the persisted store cannot be read back.
	// Fatal to the run.
	ErrAggregationInput = errors.New("aggregation input unreadable")
)

// Mirror receives a columnar copy of every persisted document. Implemented by
// DuckDBMirror; tests substitute a fake.
type Mirror interface {
	WriteDocument(ctx context.Context, docID int64, meta models.DocumentMeta, result *models.ExtractionResult) error
	DeleteDocument(ctx context.Context, docID int64) error
	ExportParquet(ctx context.Context, dir string) error
	Close() error
}

// Persister coordinates the dual write. The relational transaction is the
// unit of atomicity per document: the mirror is written while the relational
// transaction is still open, so a mirror failure rolls everything back, and a
// failed final commit compensates by deleting the mirror rows. The residual
// inconsistency window (crash between mirror write and commit) is accepted
// rather than paying for a write-ahead staging record.
type Persister struct {
	rel    *Relational
	mirror Mirror
	log    *logger.Logger
}

// NewPersister wires the relational store and an optional mirror.
func NewPersister(rel *Relational, mirror Mirror, log *logger.Logger) *Persister {
	return &Persister{rel: rel, mirror: mirror, log: log}
}

// SaveDocument durably stores one document and its three statement records,
// atomically per document, and mirrors them into the columnar store. Returns
// the generated document reference id shared by both stores.
func (p *Persister) SaveDocument(ctx context.Context, meta models.DocumentMeta, result *models.ExtractionResult) (int64, error) {
	tx, err := p.rel.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin tx: %v", ErrPersistence, err)
	}

	docID, err := insertDocumentRows(ctx, tx, meta, result)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if p.mirror != nil {
		if err := p.mirror.WriteDocument(ctx, docID, meta, result); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("%w: columnar mirror: %v", ErrPersistence, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if p.mirror != nil {
			if derr := p.mirror.DeleteDocument(ctx, docID); derr != nil {
				p.log.Error("mirror compensation failed, stores may diverge",
					"document_id", docID, "err", derr)
			}
		}
		return 0, fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}

	return docID, nil
}

// LoadFacts reads all persisted documents with their statements, grouped by
// company, fiscal years ascending. Read-only.
func (p *Persister) LoadFacts(ctx context.Context) ([]models.CompanyYear, error) {
	return p.rel.LoadFacts(ctx)
}
