// Package calc is the aggregation engine: it joins persisted facts across
// companies and fiscal years and derives growth, margin, liquidity and cash
// flow metrics. Pure functions over loaded rows; no store access.
package calc

import (
	"math"
	"sort"

	"filing_analytics/pkg/models"
)

// BuildAnalytics computes every metric table from the persisted rows. Null
// inputs narrow the output (a year missing an input is skipped); they are
// never treated as zero.
func BuildAnalytics(rows []models.CompanyYear) *BatchAnalytics {
	analytics := &BatchAnalytics{}

	byCompany := make(map[string][]models.CompanyYear)
	for _, row := range rows {
		byCompany[row.CompanyName] = append(byCompany[row.CompanyName], row)
	}

	companies := make([]string, 0, len(byCompany))
	for name := range byCompany {
		companies = append(companies, name)
	}
	sort.Strings(companies)

	for _, name := range companies {
		years := dedupeYears(byCompany[name])
		analytics.Companies = append(analytics.Companies, analyzeCompany(name, years))
	}

	analytics.Summary = summarize(rows)
	return analytics
}

// dedupeYears sorts a company's rows by fiscal year ascending. When the same
// (company, year) was ingested more than once the most recent document wins.
func dedupeYears(rows []models.CompanyYear) []models.CompanyYear {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FiscalYear != rows[j].FiscalYear {
			return rows[i].FiscalYear < rows[j].FiscalYear
		}
		return rows[i].DocumentID < rows[j].DocumentID
	})

	var out []models.CompanyYear
	for _, row := range rows {
		if n := len(out); n > 0 && out[n-1].FiscalYear == row.FiscalYear {
			out[n-1] = row
			continue
		}
		out = append(out, row)
	}
	return out
}

func analyzeCompany(name string, years []models.CompanyYear) CompanyAnalytics {
	ca := CompanyAnalytics{CompanyName: name}

	for i, cur := range years {
		var prev *models.CompanyYear
		if i > 0 {
			prev = &years[i-1]
		}

		// Revenue growth needs the prior year's revenue, non-null and
		// non-zero; otherwise the row is omitted, not emitted with a
		// sentinel.
		if prev != nil {
			if g, ok := growthPercent(cur.Income.Revenue, prev.Income.Revenue); ok {
				ca.RevenueGrowth = append(ca.RevenueGrowth, YearValue{cur.FiscalYear, g})
			}
			if a, aok := growthPercent(cur.Balance.TotalAssets, prev.Balance.TotalAssets); aok {
				if l, lok := growthPercent(cur.Balance.TotalLiabilities, prev.Balance.TotalLiabilities); lok {
					ca.BalanceChanges = append(ca.BalanceChanges, BalanceChangeRow{cur.FiscalYear, a, l})
				}
			}
		}

		if m, ok := ratioPercent(cur.Income.NetIncome, cur.Income.Revenue); ok {
			ca.NetMargin = append(ca.NetMargin, YearValue{cur.FiscalYear, m})
		}

		if cur.CashFlow.OperatingCashFlow != nil {
			if r, ok := ratioPercent(cur.CashFlow.OperatingCashFlow, cur.Income.Revenue); ok {
				ca.CashFlowTrend = append(ca.CashFlowTrend, CashFlowRow{
					FiscalYear:        cur.FiscalYear,
					OperatingCashFlow: *cur.CashFlow.OperatingCashFlow,
					OCFToRevenue:      r,
				})
			}
		}

		if cur.Balance.TotalAssets != nil && cur.Balance.TotalLiabilities != nil && *cur.Balance.TotalLiabilities != 0 {
			liq := (*cur.Balance.TotalAssets - *cur.Balance.TotalLiabilities) / *cur.Balance.TotalLiabilities * 100
			ca.Liquidity = append(ca.Liquidity, YearValue{cur.FiscalYear, Round2(liq)})
		}
	}

	return ca
}

// summarize averages revenue, net income and operating cash flow across all
// companies and years, in billions. Nulls are excluded from both numerator
// and denominator.
func summarize(rows []models.CompanyYear) SummaryStats {
	var revenues, netIncomes, cashFlows []float64
	for _, row := range rows {
		if row.Income.Revenue != nil {
			revenues = append(revenues, *row.Income.Revenue)
		}
		if row.Income.NetIncome != nil {
			netIncomes = append(netIncomes, *row.Income.NetIncome)
		}
		if row.CashFlow.OperatingCashFlow != nil {
			cashFlows = append(cashFlows, *row.CashFlow.OperatingCashFlow)
		}
	}

	return SummaryStats{
		AvgRevenueBillions:           meanBillions(revenues),
		AvgNetIncomeBillions:         meanBillions(netIncomes),
		AvgOperatingCashFlowBillions: meanBillions(cashFlows),
	}
}

func meanBillions(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	avg := Round2(sum / float64(len(vals)) / 1000)
	return &avg
}

// growthPercent computes (cur-prev)/prev*100, rounded to 2 decimals. Reports
// false when either input is unknown or prev is zero.
func growthPercent(cur, prev *float64) (float64, bool) {
	if cur == nil || prev == nil || *prev == 0 {
		return 0, false
	}
	return Round2((*cur - *prev) / *prev * 100), true
}

// ratioPercent computes num/den*100, rounded to 2 decimals. Reports false
// when either input is unknown or den is zero.
func ratioPercent(num, den *float64) (float64, bool) {
	if num == nil || den == nil || *den == 0 {
		return 0, false
	}
	return Round2(*num / *den * 100), true
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
