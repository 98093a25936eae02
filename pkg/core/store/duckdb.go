package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"filing_analytics/pkg/models"
)

// DuckDBMirror keeps a columnar copy of the statement facts, one table per
// statement type, keyed by the same document id as the relational store.
// ExportParquet emits the analytical files consumed outside this pipeline.
type DuckDBMirror struct {
	db *sql.DB
}

var _ Mirror = (*DuckDBMirror)(nil)

const mirrorSchema = `
CREATE TABLE IF NOT EXISTS income_statements (
	document_id BIGINT NOT NULL,
	company_name VARCHAR NOT NULL,
	fiscal_year VARCHAR NOT NULL,
	revenue DOUBLE,
	operating_income DOUBLE,
	net_income DOUBLE
);

CREATE TABLE IF NOT EXISTS balance_sheets (
	document_id BIGINT NOT NULL,
	company_name VARCHAR NOT NULL,
	fiscal_year VARCHAR NOT NULL,
	total_assets DOUBLE,
	total_liabilities DOUBLE,
	total_equity DOUBLE
);

CREATE TABLE IF NOT EXISTS cash_flows (
	document_id BIGINT NOT NULL,
	company_name VARCHAR NOT NULL,
	fiscal_year VARCHAR NOT NULL,
	operating_cash_flow DOUBLE,
	investing_cash_flow DOUBLE,
	financing_cash_flow DOUBLE
);
`

// statementTables is the partition key set of the mirror.
var statementTables = []string{"income_statements", "balance_sheets", "cash_flows"}

// OpenDuckDBMirror opens (creating if needed) the DuckDB database at path and
// initializes the mirror tables.
func OpenDuckDBMirror(path string) (*DuckDBMirror, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", path, err)
	}
	if _, err := db.Exec(mirrorSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init duckdb schema: %w", err)
	}
	return &DuckDBMirror{db: db}, nil
}

// Close closes the underlying database.
func (m *DuckDBMirror) Close() error {
	return m.db.Close()
}

// WriteDocument mirrors one document's three statement rows. Runs in its own
// transaction so a partial mirror write is never visible.
func (m *DuckDBMirror) WriteDocument(ctx context.Context, docID int64, meta models.DocumentMeta, result *models.ExtractionResult) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mirror tx: %v", err)
	}

	steps := []struct {
		query string
		args  []interface{}
	}{
		{
			`INSERT INTO income_statements VALUES (?, ?, ?, ?, ?, ?)`,
			[]interface{}{docID, meta.CompanyName, meta.FiscalYear,
				nullable(result.Income.Revenue), nullable(result.Income.OperatingIncome), nullable(result.Income.NetIncome)},
		},
		{
			`INSERT INTO balance_sheets VALUES (?, ?, ?, ?, ?, ?)`,
			[]interface{}{docID, meta.CompanyName, meta.FiscalYear,
				nullable(result.Balance.TotalAssets), nullable(result.Balance.TotalLiabilities), nullable(result.Balance.TotalEquity)},
		},
		{
			`INSERT INTO cash_flows VALUES (?, ?, ?, ?, ?, ?)`,
			[]interface{}{docID, meta.CompanyName, meta.FiscalYear,
				nullable(result.CashFlow.OperatingCashFlow), nullable(result.CashFlow.InvestingCashFlow), nullable(result.CashFlow.FinancingCashFlow)},
		},
	}

	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("mirror insert: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mirror tx: %v", err)
	}
	return nil
}

// DeleteDocument removes a document's rows from all three tables. Used to
// compensate when the relational commit fails after the mirror write.
func (m *DuckDBMirror) DeleteDocument(ctx context.Context, docID int64) error {
	for _, table := range statementTables {
		if _, err := m.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE document_id = ?", table), docID); err != nil {
			return fmt.Errorf("mirror delete from %s: %v", table, err)
		}
	}
	return nil
}

// ExportParquet writes one Parquet file per statement type into dir.
func (m *DuckDBMirror) ExportParquet(ctx context.Context, dir string) error {
	for _, table := range statementTables {
		target := filepath.Join(dir, table+".parquet")
		// DuckDB's COPY takes the path as a literal; escape embedded quotes.
		escaped := strings.ReplaceAll(target, "'", "''")
		query := fmt.Sprintf(
			"COPY (SELECT * FROM %s ORDER BY document_id) TO '%s' (FORMAT PARQUET, COMPRESSION SNAPPY)",
			table, escaped)
		if _, err := m.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("export %s: %v", table, err)
		}
	}
	return nil
}
