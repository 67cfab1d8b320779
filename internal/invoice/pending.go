package invoice

import (
	"context"
	"time"

	"github.com/ajankowski/cost-capture/internal/extraction"
)

// PendingSource yields invoices waiting in the external e-invoicing
// registry. The registry is read-only: approving an entry here does not
// remove it at the source, so callers must filter already-approved IDs
// themselves.
type PendingSource interface {
	FetchPending(ctx context.Context) ([]*PendingInvoice, error)
}

// StaticPendingSource mimics the registry with a fixed sample set and a
// short artificial latency, the way the real integration behaves from the
// caller's point of view.
type StaticPendingSource struct {
	Delay time.Duration
}

// FetchPending returns the fixed sample set after the configured delay
func (s *StaticPendingSource) FetchPending(ctx context.Context) ([]*PendingInvoice, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return []*PendingInvoice{
		{
			ID: "ksef-2024-000101",
			Data: extraction.InvoiceData{
				SellerName:    "PGNiG Obrot Detaliczny",
				InvoiceNumber: "P/22334455/0124",
				Date:          "2024-01-08",
				NetAmount:     203.25,
				VATAmount:     46.75,
				GrossAmount:   250.00,
				Currency:      "PLN",
			},
			SuggestedCategory: "gas",
		},
		{
			ID: "ksef-2024-000102",
			Data: extraction.InvoiceData{
				SellerName:    "Tauron Sprzedaz",
				InvoiceNumber: "T/99881122/0124",
				Date:          "2024-01-11",
				NetAmount:     130.08,
				VATAmount:     29.92,
				GrossAmount:   160.00,
				Currency:      "PLN",
			},
			SuggestedCategory: "electricity",
		},
		{
			ID: "ksef-2024-000103",
			Data: extraction.InvoiceData{
				SellerName:    "Orange Polska",
				InvoiceNumber: "F/55667788/0124",
				Date:          "2024-01-14",
				NetAmount:     48.77,
				VATAmount:     11.22,
				GrossAmount:   59.99,
				Currency:      "PLN",
			},
			SuggestedCategory: "internet",
		},
	}, nil
}
