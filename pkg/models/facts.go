package models

// DocumentMeta identifies one ingested filing. Company and FiscalYear are
// derived from the input filename; DocumentType is fixed for this pipeline.
type DocumentMeta struct {
	CompanyName  string `json:"company_name"`
	FiscalYear   string `json:"fiscal_year"`
	DocumentType string `json:"document_type"`
	SourceFile   string `json:"source_file,omitempty"`
}

// DocumentType10K is the only document type this pipeline ingests.
const DocumentType10K = "10-K"

// IncomeStatementFacts holds the extracted income statement line items.
// All monetary values are in millions of USD. A nil pointer means the model
// did not report the field (unknown, not zero).
type IncomeStatementFacts struct {
	Revenue         *float64 `json:"revenue"`
	OperatingIncome *float64 `json:"operating_income"`
	NetIncome       *float64 `json:"net_income"`
}

// BalanceSheetFacts holds the extracted balance sheet line items.
type BalanceSheetFacts struct {
	TotalAssets      *float64 `json:"total_assets"`
	TotalLiabilities *float64 `json:"total_liabilities"`
	TotalEquity      *float64 `json:"total_equity"`
}

// CashFlowFacts holds the extracted cash flow statement line items.
type CashFlowFacts struct {
	OperatingCashFlow *float64 `json:"operating_cash_flow"`
	InvestingCashFlow *float64 `json:"investing_cash_flow"`
	FinancingCashFlow *float64 `json:"financing_cash_flow"`
}

// ExtractionResult is the decoded payload of one inference call. All three
// statement groups are guaranteed present on a successful extraction, even if
// every field inside them is nil.
type ExtractionResult struct {
	Income   IncomeStatementFacts `json:"income_statement"`
	Balance  BalanceSheetFacts    `json:"balance_sheet"`
	CashFlow CashFlowFacts        `json:"cash_flow"`
}

// CompanyYear is one persisted document read back for aggregation: identity
// plus its three statement records.
type CompanyYear struct {
	DocumentID  int64
	CompanyName string
	FiscalYear  string
	Income      IncomeStatementFacts
	Balance     BalanceSheetFacts
	CashFlow    CashFlowFacts
}

// Float returns a pointer to v. Convenience for building fixtures and wire
// payloads.
func Float(v float64) *float64 { return &v }
