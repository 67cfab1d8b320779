package extraction

import "errors"

// DefaultCurrency is used whenever the model cannot read a currency code
// off the document.
const DefaultCurrency = "PLN"

// InvoiceData contains the structured fields extracted from an invoice
// document. Amounts are in the invoice's own currency.
type InvoiceData struct {
	SellerName          string  `json:"sellerName"`
	InvoiceNumber       string  `json:"invoiceNumber"`
	Date                string  `json:"date"` // ISO 8601 format (YYYY-MM-DD)
	NetAmount           float64 `json:"netAmount"`
	VATAmount           float64 `json:"vatAmount"`
	GrossAmount         float64 `json:"grossAmount"`
	Currency            string  `json:"currency"`
	SuggestedPropertyID string  `json:"suggestedPropertyId,omitempty"`
}

// PropertyHint identifies a known property the model may match against the
// buyer or service address printed on the invoice.
type PropertyHint struct {
	ID      string
	Name    string
	Address string
}

// ErrEmptyResponse is returned when the model produces no text at all.
var ErrEmptyResponse = errors.New("empty model response")

// Extractor defines the interface for invoice extraction operations
type Extractor interface {
	// ExtractInvoice analyzes an invoice image/PDF and extracts structured
	// fields. When hints are supplied the model is additionally asked to pick
	// the best-matching property, reported via SuggestedPropertyID.
	ExtractInvoice(document []byte, contentType string, hints []PropertyHint) (*InvoiceData, error)
	// Close closes the extractor and releases resources
	Close() error
}
