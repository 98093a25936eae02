package extract

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Number is a nullable numeric field as it appears on the wire. Models return
// numbers, quoted numbers ("12,345.6"), null, or occasionally garbage; the
// first three decode to a value or null, garbage decodes to null rather than
// failing the whole document.
type Number struct {
	Value *float64
}

func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		n.Value = nil
		return nil
	}

	// Plain JSON number.
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		n.Value = &f
		return nil
	}

	// Quoted numeric string, possibly with formatting.
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		cleaned := strings.NewReplacer(",", "", "$", "", " ", "").Replace(str)
		// Accounting negatives: (123.4) means -123.4.
		if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
			cleaned = "-" + cleaned[1:len(cleaned)-1]
		}
		if v, err := strconv.ParseFloat(cleaned, 64); err == nil {
			n.Value = &v
			return nil
		}
	}

	// Non-numeric garbage: null, never an error.
	n.Value = nil
	return nil
}

// wirePayload mirrors the extraction instruction's response schema. The
// statement groups are pointers so a group the model dropped entirely is
// distinguishable from one with all-null fields.
type wirePayload struct {
	DocumentInfo *wireDocumentInfo `json:"document_info"`
	Income       *wireIncome       `json:"income_statement"`
	Balance      *wireBalance      `json:"balance_sheet"`
	CashFlow     *wireCashFlow     `json:"cash_flow"`
}

// wireDocumentInfo is what the model believes about the document's identity.
// The pipeline trusts the filename metadata instead, but keeps this for the
// debug dump.
type wireDocumentInfo struct {
	CompanyName  string `json:"company_name"`
	FiscalYear   string `json:"fiscal_year"`
	DocumentType string `json:"document_type"`
}

type wireIncome struct {
	Revenue         Number `json:"revenue"`
	OperatingIncome Number `json:"operating_income"`
	NetIncome       Number `json:"net_income"`
}

type wireBalance struct {
	TotalAssets      Number `json:"total_assets"`
	TotalLiabilities Number `json:"total_liabilities"`
	TotalEquity      Number `json:"total_equity"`
}

type wireCashFlow struct {
	OperatingCashFlow Number `json:"operating_cash_flow"`
	InvestingCashFlow Number `json:"investing_cash_flow"`
	FinancingCashFlow Number `json:"financing_cash_flow"`
}
