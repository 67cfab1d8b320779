package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseInvoiceJSON parses the JSON response from the model and normalizes
// missing or malformed fields: text fields default to the empty string (the
// literal string "null" counts as missing), the currency falls back to
// DefaultCurrency, and amounts that are not numeric default to zero.
func parseInvoiceJSON(text string) (*InvoiceData, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data := &InvoiceData{
		SellerName:          textField(raw, "sellerName"),
		InvoiceNumber:       textField(raw, "invoiceNumber"),
		Date:                textField(raw, "date"),
		NetAmount:           amountField(raw, "netAmount"),
		VATAmount:           amountField(raw, "vatAmount"),
		GrossAmount:         amountField(raw, "grossAmount"),
		Currency:            strings.ToUpper(textField(raw, "currency")),
		SuggestedPropertyID: textField(raw, "suggestedPropertyId"),
	}
	if data.Currency == "" {
		data.Currency = DefaultCurrency
	}

	return data, nil
}

// textField returns the trimmed string value for key, treating absent,
// non-string and literal "null" values as missing.
func textField(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

// amountField returns the numeric value for key. Anything that is not a
// non-negative JSON number comes back as zero.
func amountField(raw map[string]any, key string) float64 {
	v, ok := raw[key]
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok || f < 0 {
		return 0
	}
	return f
}
