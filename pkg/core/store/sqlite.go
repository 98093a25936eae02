package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"filing_analytics/pkg/models"
)

// Relational is the row-oriented store: one documents table, three statement
// tables, SQLite underneath.
type Relational struct {
	db *sql.DB
}

const relationalSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	company_name TEXT NOT NULL,
	fiscal_year TEXT NOT NULL,
	document_type TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS income_statements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id INTEGER NOT NULL,
	revenue REAL,
	operating_income REAL,
	net_income REAL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (document_id) REFERENCES documents(id)
);

CREATE TABLE IF NOT EXISTS balance_sheets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id INTEGER NOT NULL,
	total_assets REAL,
	total_liabilities REAL,
	total_equity REAL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (document_id) REFERENCES documents(id)
);

CREATE TABLE IF NOT EXISTS cash_flows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id INTEGER NOT NULL,
	operating_cash_flow REAL,
	investing_cash_flow REAL,
	financing_cash_flow REAL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (document_id) REFERENCES documents(id)
);
`

// OpenRelational opens (creating if needed) the SQLite database at path and
// initializes the schema. Use ":memory:" for tests.
func OpenRelational(path string) (*Relational, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL", path)
	if path == ":memory:" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// SQLite serializes writes anyway; a single connection sidesteps
	// table-lock contention and keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(relationalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Relational{db: db}, nil
}

// Close closes the underlying database.
func (r *Relational) Close() error {
	return r.db.Close()
}

// insertDocumentRows writes the document row plus its three statement rows
// inside the caller's transaction and returns the generated document id.
func insertDocumentRows(ctx context.Context, tx *sql.Tx, meta models.DocumentMeta, result *models.ExtractionResult) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO documents (company_name, fiscal_year, document_type)
		VALUES (?, ?, ?)`,
		meta.CompanyName, meta.FiscalYear, meta.DocumentType)
	if err != nil {
		return 0, fmt.Errorf("insert document: %v", err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("document id: %v", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO income_statements (document_id, revenue, operating_income, net_income)
		VALUES (?, ?, ?, ?)`,
		docID, nullable(result.Income.Revenue), nullable(result.Income.OperatingIncome), nullable(result.Income.NetIncome)); err != nil {
		return 0, fmt.Errorf("insert income statement: %v", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balance_sheets (document_id, total_assets, total_liabilities, total_equity)
		VALUES (?, ?, ?, ?)`,
		docID, nullable(result.Balance.TotalAssets), nullable(result.Balance.TotalLiabilities), nullable(result.Balance.TotalEquity)); err != nil {
		return 0, fmt.Errorf("insert balance sheet: %v", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cash_flows (document_id, operating_cash_flow, investing_cash_flow, financing_cash_flow)
		VALUES (?, ?, ?, ?)`,
		docID, nullable(result.CashFlow.OperatingCashFlow), nullable(result.CashFlow.InvestingCashFlow), nullable(result.CashFlow.FinancingCashFlow)); err != nil {
		return 0, fmt.Errorf("insert cash flow: %v", err)
	}

	return docID, nil
}

// LoadFacts reads every document joined with its statements, ordered by
// company then fiscal year ascending.
func (r *Relational) LoadFacts(ctx context.Context) ([]models.CompanyYear, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.id, d.company_name, d.fiscal_year,
		       i.revenue, i.operating_income, i.net_income,
		       b.total_assets, b.total_liabilities, b.total_equity,
		       c.operating_cash_flow, c.investing_cash_flow, c.financing_cash_flow
		FROM documents d
		LEFT JOIN income_statements i ON i.document_id = d.id
		LEFT JOIN balance_sheets b   ON b.document_id = d.id
		LEFT JOIN cash_flows c       ON c.document_id = d.id
		ORDER BY d.company_name, d.fiscal_year, d.id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationInput, err)
	}
	defer rows.Close()

	var out []models.CompanyYear
	for rows.Next() {
		var (
			cy                 models.CompanyYear
			rev, opInc, netInc sql.NullFloat64
			ta, tl, te         sql.NullFloat64
			ocf, icf, fcf      sql.NullFloat64
		)
		if err := rows.Scan(&cy.DocumentID, &cy.CompanyName, &cy.FiscalYear,
			&rev, &opInc, &netInc, &ta, &tl, &te, &ocf, &icf, &fcf); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrAggregationInput, err)
		}
		cy.Income = models.IncomeStatementFacts{
			Revenue:         fromNull(rev),
			OperatingIncome: fromNull(opInc),
			NetIncome:       fromNull(netInc),
		}
		cy.Balance = models.BalanceSheetFacts{
			TotalAssets:      fromNull(ta),
			TotalLiabilities: fromNull(tl),
			TotalEquity:      fromNull(te),
		}
		cy.CashFlow = models.CashFlowFacts{
			OperatingCashFlow: fromNull(ocf),
			InvestingCashFlow: fromNull(icf),
			FinancingCashFlow: fromNull(fcf),
		}
		out = append(out, cy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationInput, err)
	}

	return out, nil
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
