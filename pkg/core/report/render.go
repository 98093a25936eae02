// Package report renders the batch analytics into the fixed-format text
// report: five metric sections followed by summary statistics. Output is
// deterministic so repeated runs over the same data diff clean.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"filing_analytics/pkg/core/calc"
)

// Render produces the full report text.
func Render(analytics *calc.BatchAnalytics) string {
	var sb strings.Builder

	writeHeading(&sb, "Financial Analysis Report", '=')
	sb.WriteString("\n")

	writeSection(&sb, "1. Year-over-Year Revenue Growth",
		[]string{"company", "fiscal_year", "revenue_growth_percent"},
		collectYearValues(analytics, func(c calc.CompanyAnalytics) []calc.YearValue { return c.RevenueGrowth }))

	writeSection(&sb, "2. Net Margin by Year",
		[]string{"company", "fiscal_year", "net_margin_percent"},
		collectYearValues(analytics, func(c calc.CompanyAnalytics) []calc.YearValue { return c.NetMargin }))

	writeSection(&sb, "3. Assets vs Liabilities YoY Change",
		[]string{"company", "fiscal_year", "assets_change_percent", "liabilities_change_percent"},
		collectBalanceRows(analytics))

	writeSection(&sb, "4. Operating Cash Flow Trend",
		[]string{"company", "fiscal_year", "operating_cash_flow", "ocf_to_revenue_percent"},
		collectCashFlowRows(analytics))

	writeSection(&sb, "5. Liquidity Indicator",
		[]string{"company", "fiscal_year", "liquidity_ratio_percent"},
		collectYearValues(analytics, func(c calc.CompanyAnalytics) []calc.YearValue { return c.Liquidity }))

	writeHeading(&sb, "Summary Statistics", '=')
	sb.WriteString(renderTable(
		[]string{"avg_revenue_billions", "avg_net_income_billions", "avg_operating_cash_flow_billions"},
		[][]string{{
			formatOptional(analytics.Summary.AvgRevenueBillions),
			formatOptional(analytics.Summary.AvgNetIncomeBillions),
			formatOptional(analytics.Summary.AvgOperatingCashFlowBillions),
		}}))

	return sb.String()
}

func writeHeading(sb *strings.Builder, title string, underline rune) {
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(string(underline), len(title)))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string, headers []string, rows [][]string) {
	writeHeading(sb, title, '-')
	if len(rows) == 0 {
		sb.WriteString("(no data)\n\n")
		return
	}
	sb.WriteString(renderTable(headers, rows))
	sb.WriteString("\n")
}

// renderTable lays out rows as display-width aligned columns.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				if w := runewidth.StringWidth(cell); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(cell)
			if pad := widths[i] - runewidth.StringWidth(cell); pad > 0 && i < len(cells)-1 {
				sb.WriteString(strings.Repeat(" ", pad))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func collectYearValues(analytics *calc.BatchAnalytics, pick func(calc.CompanyAnalytics) []calc.YearValue) [][]string {
	var rows [][]string
	for _, company := range analytics.Companies {
		for _, yv := range pick(company) {
			rows = append(rows, []string{company.CompanyName, yv.FiscalYear, formatNumber(yv.Value)})
		}
	}
	return rows
}

func collectBalanceRows(analytics *calc.BatchAnalytics) [][]string {
	var rows [][]string
	for _, company := range analytics.Companies {
		for _, r := range company.BalanceChanges {
			rows = append(rows, []string{
				company.CompanyName, r.FiscalYear,
				formatNumber(r.AssetsChange), formatNumber(r.LiabilitiesChange),
			})
		}
	}
	return rows
}

func collectCashFlowRows(analytics *calc.BatchAnalytics) [][]string {
	var rows [][]string
	for _, company := range analytics.Companies {
		for _, r := range company.CashFlowTrend {
			rows = append(rows, []string{
				company.CompanyName, r.FiscalYear,
				formatNumber(r.OperatingCashFlow), formatNumber(r.OCFToRevenue),
			})
		}
	}
	return rows
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return formatNumber(*v)
}

// Summary returns a one-line count line used by the orchestrator's closing
// log output.
func Summary(analytics *calc.BatchAnalytics) string {
	total := 0
	for _, c := range analytics.Companies {
		total += len(c.RevenueGrowth) + len(c.NetMargin) + len(c.BalanceChanges) +
			len(c.CashFlowTrend) + len(c.Liquidity)
	}
	return fmt.Sprintf("%d companies, %d metric rows", len(analytics.Companies), total)
}
