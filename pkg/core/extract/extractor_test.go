package extract

import (
	"context"
	"errors"
	"testing"

	"filing_analytics/pkg/core/config"
	"filing_analytics/pkg/core/logger"
	"filing_analytics/pkg/models"
)

// mockProvider replays canned responses, tracking how often it was called.
type mockProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (m *mockProvider) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i := m.calls
	m.calls++
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return m.responses[len(m.responses)-1], nil
}

func (m *mockProvider) AdaptInstructions(raw string) string { return raw }

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:   "gemini",
		TimeoutSec: 5,
		Retry: config.RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    1,
			BackoffMultiplier: 1.0,
		},
	}
}

func testMeta() models.DocumentMeta {
	return models.DocumentMeta{
		CompanyName:  "aapl",
		FiscalYear:   "2022",
		DocumentType: "10-K",
		SourceFile:   "aapl-20220924.pdf",
	}
}

const fullResponse = `{
	"document_info": {"company_name": "aapl", "fiscal_year": "2022", "document_type": "10-K"},
	"income_statement": {"revenue": 394328, "operating_income": 119437, "net_income": 99803},
	"balance_sheet": {"total_assets": 352755, "total_liabilities": 302083, "total_equity": 50672},
	"cash_flow": {"operating_cash_flow": 122151, "investing_cash_flow": -22354, "financing_cash_flow": -110749}
}`

func TestExtractFullResponse(t *testing.T) {
	p := &mockProvider{responses: []string{fullResponse}}
	e := NewExtractor(p, testConfig(), logger.New("error"))

	result, err := e.Extract(context.Background(), testMeta(), "some filing text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Income.Revenue == nil || *result.Income.Revenue != 394328 {
		t.Errorf("revenue: got %v", result.Income.Revenue)
	}
	if result.Balance.TotalEquity == nil || *result.Balance.TotalEquity != 50672 {
		t.Errorf("total equity: got %v", result.Balance.TotalEquity)
	}
	if result.CashFlow.InvestingCashFlow == nil || *result.CashFlow.InvestingCashFlow != -22354 {
		t.Errorf("investing cash flow: got %v", result.CashFlow.InvestingCashFlow)
	}
	if p.calls != 1 {
		t.Errorf("expected 1 call, got %d", p.calls)
	}
}

func TestExtractCodeFencedResponse(t *testing.T) {
	p := &mockProvider{responses: []string{"```json\n" + fullResponse + "\n```"}}
	e := NewExtractor(p, testConfig(), logger.New("error"))

	result, err := e.Extract(context.Background(), testMeta(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Income.NetIncome == nil || *result.Income.NetIncome != 99803 {
		t.Errorf("net income: got %v", result.Income.NetIncome)
	}
}

func TestExtractPartialFieldsBecomeNil(t *testing.T) {
	resp := `{
		"income_statement": {"revenue": 100.5, "operating_income": null, "net_income": "not disclosed"},
		"balance_sheet": {"total_assets": null, "total_liabilities": null, "total_equity": null},
		"cash_flow": {"operating_cash_flow": 12.3, "investing_cash_flow": null, "financing_cash_flow": null}
	}`
	p := &mockProvider{responses: []string{resp}}
	e := NewExtractor(p, testConfig(), logger.New("error"))

	result, err := e.Extract(context.Background(), testMeta(), "text")
	if err != nil {
		t.Fatalf("partial fields must not fail the document: %v", err)
	}
	if result.Income.Revenue == nil || *result.Income.Revenue != 100.5 {
		t.Errorf("revenue: got %v", result.Income.Revenue)
	}
	if result.Income.OperatingIncome != nil {
		t.Errorf("null operating income should stay nil, got %v", *result.Income.OperatingIncome)
	}
	if result.Income.NetIncome != nil {
		t.Errorf("garbage net income should decode to nil, got %v", *result.Income.NetIncome)
	}
	if result.Balance.TotalAssets != nil {
		t.Errorf("all-null balance sheet should keep nil fields")
	}
}

func TestExtractStringCoercion(t *testing.T) {
	resp := `{
		"income_statement": {"revenue": "394,328", "operating_income": "$119437", "net_income": "(99,803)"},
		"balance_sheet": {"total_assets": 1, "total_liabilities": 1, "total_equity": 0},
		"cash_flow": {"operating_cash_flow": null, "investing_cash_flow": null, "financing_cash_flow": null}
	}`
	p := &mockProvider{responses: []string{resp}}
	e := NewExtractor(p, testConfig(), logger.New("error"))

	result, err := e.Extract(context.Background(), testMeta(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Income.Revenue == nil || *result.Income.Revenue != 394328 {
		t.Errorf("comma-formatted string: got %v", result.Income.Revenue)
	}
	if result.Income.OperatingIncome == nil || *result.Income.OperatingIncome != 119437 {
		t.Errorf("dollar-prefixed string: got %v", result.Income.OperatingIncome)
	}
	if result.Income.NetIncome == nil || *result.Income.NetIncome != -99803 {
		t.Errorf("accounting negative: got %v", result.Income.NetIncome)
	}
}

func TestExtractMissingGroup(t *testing.T) {
	resp := `{
		"income_statement": {"revenue": 100},
		"balance_sheet": {"total_assets": 200}
	}`
	p := &mockProvider{responses: []string{resp}}
	e := NewExtractor(p, testConfig(), logger.New("error"))

	_, err := e.Extract(context.Background(), testMeta(), "text")
	if !errors.Is(err, ErrIncompleteExtraction) {
		t.Fatalf("expected ErrIncompleteExtraction, got %v", err)
	}
	if p.calls != 1 {
		t.Errorf("structural failures must not be retried, got %d calls", p.calls)
	}
}

func TestExtractUndecodableResponse(t *testing.T) {
	p := &mockProvider{responses: []string{"I'm sorry, I cannot analyze this document."}}
	e := NewExtractor(p, testConfig(), logger.New("error"))

	_, err := e.Extract(context.Background(), testMeta(), "text")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestExtractEmptyText(t *testing.T) {
	p := &mockProvider{responses: []string{fullResponse}}
	e := NewExtractor(p, testConfig(), logger.New("error"))

	_, err := e.Extract(context.Background(), testMeta(), "")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse for empty text, got %v", err)
	}
	if p.calls != 0 {
		t.Errorf("empty text must not reach the provider, got %d calls", p.calls)
	}
}

func TestExtractRetriesTransportErrors(t *testing.T) {
	p := &mockProvider{
		responses: []string{"", "", fullResponse},
		errs:      []error{errors.New("502 bad gateway"), errors.New("connection reset"), nil},
	}
	e := NewExtractor(p, testConfig(), logger.New("error"))

	result, err := e.Extract(context.Background(), testMeta(), "text")
	if err != nil {
		t.Fatalf("expected third attempt to succeed: %v", err)
	}
	if p.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", p.calls)
	}
	if result.Income.Revenue == nil {
		t.Error("expected decoded result after retries")
	}
}

func TestExtractRetriesExhausted(t *testing.T) {
	transport := errors.New("connection refused")
	p := &mockProvider{
		responses: []string{"", "", ""},
		errs:      []error{transport, transport, transport},
	}
	e := NewExtractor(p, testConfig(), logger.New("error"))

	_, err := e.Extract(context.Background(), testMeta(), "text")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse after exhausted retries, got %v", err)
	}
	if p.calls != 3 {
		t.Errorf("expected exactly MaxAttempts calls, got %d", p.calls)
	}
}

func TestExtractParentCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &mockProvider{responses: []string{fullResponse}}
	e := NewExtractor(p, testConfig(), logger.New("error"))

	_, err := e.Extract(ctx, testMeta(), "text")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse wrap, got %v", err)
	}
	if p.calls > 1 {
		t.Errorf("cancelled context must not retry, got %d calls", p.calls)
	}
}

func TestNumberUnmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want *float64
	}{
		{`123.45`, models.Float(123.45)},
		{`null`, nil},
		{`"1,234.5"`, models.Float(1234.5)},
		{`"$500"`, models.Float(500)},
		{`"(42)"`, models.Float(-42)},
		{`"N/A"`, nil},
		{`true`, nil},
		{`{"nested": 1}`, nil},
	}
	for _, c := range cases {
		var n Number
		if err := n.UnmarshalJSON([]byte(c.in)); err != nil {
			t.Errorf("%s: unexpected error %v", c.in, err)
			continue
		}
		switch {
		case c.want == nil && n.Value != nil:
			t.Errorf("%s: expected nil, got %v", c.in, *n.Value)
		case c.want != nil && (n.Value == nil || *n.Value != *c.want):
			t.Errorf("%s: expected %v, got %v", c.in, *c.want, n.Value)
		}
	}
}
