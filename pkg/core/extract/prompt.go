package extract

// SystemPrompt frames the model as an extraction-only analyst. JSON mode is
// requested through provider options as well; the instruction here is the
// belt to that suspender.
const SystemPrompt = `You are a financial analyst expert in extracting and analyzing financial data from 10-K reports. Always respond with properly formatted JSON.`

// ExtractionPrompt is the fixed instruction sent once per document, ahead of
// the document text. Field names must match the wire schema exactly.
const ExtractionPrompt = `Please analyze this financial document and extract the following information in JSON format:

{
    "document_info": {
        "company_name": "string",
        "fiscal_year": "YYYY",
        "document_type": "10-K"
    },
    "income_statement": {
        "revenue": number,
        "operating_income": number,
        "net_income": number
    },
    "balance_sheet": {
        "total_assets": number,
        "total_liabilities": number,
        "total_equity": number
    },
    "cash_flow": {
        "operating_cash_flow": number,
        "investing_cash_flow": number,
        "financing_cash_flow": number
    }
}

Please ensure all numbers are in millions of USD and use consistent accounting standards.
If a value is not disclosed in the document, use null. Never invent a number.
`
