// Package extract turns raw filing text into a typed, validated set of
// financial facts via a single inference call per document.
package extract

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"filing_analytics/pkg/core/config"
	"filing_analytics/pkg/core/llm"
	"filing_analytics/pkg/core/logger"
	"filing_analytics/pkg/core/utils"
	"filing_analytics/pkg/models"
)

var (
	// ErrMalformedResponse covers everything that keeps a document from
	// yielding a parseable payload: transport failures, timeouts, and
	// response bodies no parsing strategy can decode.
	ErrMalformedResponse = errors.New("malformed extraction response")

	// ErrIncompleteExtraction is returned when the decoded payload is missing
	// an entire statement group.
	ErrIncompleteExtraction = errors.New("incomplete extraction")
)

// balanceTolerance is the advisory threshold (in percent of total assets) for
// the assets = liabilities + equity identity check.
const balanceTolerance = 1.0

// Extractor performs the per-document inference call and decodes the result.
type Extractor struct {
	provider llm.Provider
	timeout  time.Duration
	retry    config.RetryPolicy
	log      *logger.Logger
}

// NewExtractor wires an extractor to a provider with the configured timeout
// and retry policy.
func NewExtractor(provider llm.Provider, cfg config.LLMConfig, log *logger.Logger) *Extractor {
	return &Extractor{
		provider: provider,
		timeout:  cfg.Timeout(),
		retry:    cfg.Retry,
		log:      log,
	}
}

// Extract sends the document text to the inference service and decodes the
// response into an ExtractionResult. On success all three statement groups
// are present; individual fields may be nil.
func (e *Extractor) Extract(ctx context.Context, meta models.DocumentMeta, text string) (*models.ExtractionResult, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty document text for %s", ErrMalformedResponse, meta.SourceFile)
	}

	prompt := ExtractionPrompt + "\n\nDocument:\n" + text

	raw, err := e.callWithRetry(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: inference call timed out after %s: %v", ErrMalformedResponse, e.timeout, err)
		}
		return nil, fmt.Errorf("%w: inference call failed: %v", ErrMalformedResponse, err)
	}

	return e.decode(meta, raw)
}

// callWithRetry issues the inference call under the configured timeout,
// retrying transport failures with exponential backoff. Parent cancellation
// stops the loop immediately.
func (e *Extractor) callWithRetry(ctx context.Context, prompt string) (string, error) {
	options := map[string]interface{}{
		"response_format": map[string]interface{}{"type": "json_object"},
	}
	systemPrompt := e.provider.AdaptInstructions(SystemPrompt)

	var lastErr error
	for attempt := 0; attempt < e.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			e.log.Warn("retrying inference call", "attempt", attempt+1, "err", lastErr)
			select {
			case <-time.After(e.retry.Delay(attempt - 1)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		resp, err := e.provider.GenerateResponse(callCtx, prompt, systemPrompt, options)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

// decode parses the raw response into the wire schema and converts it into
// the typed result. Partial field sets are fine; missing groups are not.
func (e *Extractor) decode(meta models.DocumentMeta, raw string) (*models.ExtractionResult, error) {
	cleaned := utils.StripFences(raw)

	var payload wirePayload
	if err := utils.SmartParse(cleaned, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	switch {
	case payload.Income == nil:
		return nil, fmt.Errorf("%w: response for %s has no income_statement group", ErrIncompleteExtraction, meta.SourceFile)
	case payload.Balance == nil:
		return nil, fmt.Errorf("%w: response for %s has no balance_sheet group", ErrIncompleteExtraction, meta.SourceFile)
	case payload.CashFlow == nil:
		return nil, fmt.Errorf("%w: response for %s has no cash_flow group", ErrIncompleteExtraction, meta.SourceFile)
	}

	result := &models.ExtractionResult{
		Income: models.IncomeStatementFacts{
			Revenue:         payload.Income.Revenue.Value,
			OperatingIncome: payload.Income.OperatingIncome.Value,
			NetIncome:       payload.Income.NetIncome.Value,
		},
		Balance: models.BalanceSheetFacts{
			TotalAssets:      payload.Balance.TotalAssets.Value,
			TotalLiabilities: payload.Balance.TotalLiabilities.Value,
			TotalEquity:      payload.Balance.TotalEquity.Value,
		},
		CashFlow: models.CashFlowFacts{
			OperatingCashFlow: payload.CashFlow.OperatingCashFlow.Value,
			InvestingCashFlow: payload.CashFlow.InvestingCashFlow.Value,
			FinancingCashFlow: payload.CashFlow.FinancingCashFlow.Value,
		},
	}

	e.checkBalanceIdentity(meta, result)

	return result, nil
}

// checkBalanceIdentity runs the A = L + E sanity check when all three inputs
// are present. Mismatch is advisory only; the facts are stored as reported.
func (e *Extractor) checkBalanceIdentity(meta models.DocumentMeta, r *models.ExtractionResult) {
	b := r.Balance
	if b.TotalAssets == nil || b.TotalLiabilities == nil || b.TotalEquity == nil {
		return
	}
	if *b.TotalAssets == 0 {
		return
	}

	gap := *b.TotalAssets - (*b.TotalLiabilities + *b.TotalEquity)
	gapPct := math.Abs(gap) / math.Abs(*b.TotalAssets) * 100
	if gapPct > balanceTolerance {
		e.log.Warn("balance sheet identity mismatch",
			"file", meta.SourceFile,
			"company", meta.CompanyName,
			"fiscal_year", meta.FiscalYear,
			"gap_millions", gap,
			"gap_percent", gapPct)
	}
}
