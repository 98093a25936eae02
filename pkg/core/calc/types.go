package calc

// YearValue is one fiscal year's value of a single metric.
type YearValue struct {
	FiscalYear string  `json:"fiscal_year"`
	Value      float64 `json:"value"`
}

// BalanceChangeRow pairs the year-over-year change of total assets and total
// liabilities for one fiscal year.
type BalanceChangeRow struct {
	FiscalYear        string  `json:"fiscal_year"`
	AssetsChange      float64 `json:"assets_change_percent"`
	LiabilitiesChange float64 `json:"liabilities_change_percent"`
}

// CashFlowRow carries the operating cash flow level and its ratio to revenue
// for one fiscal year.
type CashFlowRow struct {
	FiscalYear        string  `json:"fiscal_year"`
	OperatingCashFlow float64 `json:"operating_cash_flow"`
	OCFToRevenue      float64 `json:"ocf_to_revenue_percent"`
}

// CompanyAnalytics holds every derived metric table for one company, years
// ascending within each table. Sparse inputs produce shorter tables, never
// placeholder rows.
type CompanyAnalytics struct {
	CompanyName    string             `json:"company_name"`
	RevenueGrowth  []YearValue        `json:"revenue_growth"`
	NetMargin      []YearValue        `json:"net_margin"`
	BalanceChanges []BalanceChangeRow `json:"balance_changes"`
	CashFlowTrend  []CashFlowRow      `json:"cash_flow_trend"`
	Liquidity      []YearValue        `json:"liquidity"`
}

// SummaryStats are cross-company averages in billions of USD. A nil field
// means no document supplied that input at all.
type SummaryStats struct {
	AvgRevenueBillions           *float64 `json:"avg_revenue_billions"`
	AvgNetIncomeBillions         *float64 `json:"avg_net_income_billions"`
	AvgOperatingCashFlowBillions *float64 `json:"avg_operating_cash_flow_billions"`
}

// BatchAnalytics is the full derived output of one report run. Companies are
// ordered alphabetically so repeated runs over the same data render
// identically.
type BatchAnalytics struct {
	Companies []CompanyAnalytics `json:"companies"`
	Summary   SummaryStats       `json:"summary"`
}
