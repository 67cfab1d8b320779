package invoice

import (
	"time"

	"github.com/ajankowski/cost-capture/internal/extraction"
)

// Role gates settings writes and user management.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleRestricted Role = "restricted"
)

// User is an account known to the mock authentication layer.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Property is a tracked real-estate address costs are recorded against.
// Archived properties are excluded from selection lists but retained for
// historical lookups.
type Property struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Archived  bool   `json:"archived"`
	FolderRef string `json:"folder_ref,omitempty"` // external storage folder reference
}

// Record is a committed cost entry tied to a property. Immutable once
// created; history is unbounded and listed newest-first.
type Record struct {
	ID          string                 `json:"id"`
	PropertyID  string                 `json:"property_id"`
	Data        extraction.InvoiceData `json:"data"`
	Filename    string                 `json:"filename,omitempty"`
	ContentType string                 `json:"content_type,omitempty"`
	Link        string                 `json:"link,omitempty"` // external document link
	RowNumber   int                    `json:"row_number"`     // storage-row reference
	CreatedAt   time.Time              `json:"created_at"`
}

// PendingInvoice is a cost sourced from the external e-invoice registry,
// not yet committed into Record form.
type PendingInvoice struct {
	ID                string                 `json:"id"`
	Data              extraction.InvoiceData `json:"data"`
	SuggestedCategory string                 `json:"suggested_category,omitempty"`
}

// Draft is the editable record under review before submission.
type Draft struct {
	Data        extraction.InvoiceData `json:"data"`
	PropertyID  string                 `json:"property_id"`
	Filename    string                 `json:"filename,omitempty"`
	ContentType string                 `json:"content_type,omitempty"`
	FileData    []byte                 `json:"-"`
}
