package extraction

import (
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// invoiceScanPrompt is the shared base instruction used by all model providers.
const invoiceScanPrompt = `You are analyzing an invoice document. Carefully read all text in the image and extract the following information:

1. **Seller Name**: The name of the company or person that issued the invoice. Usually in the header, near the tax identifier.

2. **Invoice Number**: The document number, often labeled "Invoice No", "Faktura nr" or similar.

3. **Issue Date**: The date the invoice was issued. Convert it to ISO 8601 format (YYYY-MM-DD).

4. **Amounts**: The net amount, VAT amount and gross (total) amount. Extract only the numeric values (e.g. 123.45).

5. **Currency**: The three-letter currency code the amounts are stated in (e.g. PLN, EUR, USD).

Return ONLY valid JSON in this exact format:
{
  "sellerName": "Company Name",
  "invoiceNumber": "FV/2024/01/123",
  "date": "YYYY-MM-DD",
  "netAmount": 0.00,
  "vatAmount": 0.00,
  "grossAmount": 0.00,
  "currency": "PLN"
}

Important:
- The date must be in YYYY-MM-DD format
- Amounts must be numbers (not strings)
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// buildPrompt appends the property-matching instruction when known
// properties are supplied.
func buildPrompt(hints []PropertyHint) string {
	if len(hints) == 0 {
		return invoiceScanPrompt
	}

	var b strings.Builder
	b.WriteString(invoiceScanPrompt)
	b.WriteString("\n\nAdditionally, compare the buyer or service address on the invoice against this list of known properties:\n")
	for _, h := range hints {
		fmt.Fprintf(&b, "- id: %s | name: %s | address: %s\n", h.ID, h.Name, h.Address)
	}
	b.WriteString("\nAdd a \"suggestedPropertyId\" field to the JSON containing the id of the best-matching property, or an empty string if none of them match.")
	return b.String()
}

// invoiceSchema declares the expected JSON output shape for providers that
// support structured responses.
func invoiceSchema(withHints bool) *genai.Schema {
	props := map[string]*genai.Schema{
		"sellerName":    {Type: genai.TypeString},
		"invoiceNumber": {Type: genai.TypeString},
		"date":          {Type: genai.TypeString, Description: "ISO 8601 date (YYYY-MM-DD)"},
		"netAmount":     {Type: genai.TypeNumber},
		"vatAmount":     {Type: genai.TypeNumber},
		"grossAmount":   {Type: genai.TypeNumber},
		"currency":      {Type: genai.TypeString, Description: "Three-letter currency code"},
	}
	if withHints {
		props["suggestedPropertyId"] = &genai.Schema{Type: genai.TypeString}
	}

	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   []string{"sellerName", "date", "grossAmount", "currency"},
	}
}
