package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ajankowski/cost-capture/internal/extraction"
)

// IDGenerator generates unique IDs for records and properties
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// CoinFlipper decides which mock account a Google login resolves to
type CoinFlipper interface {
	Flip() bool
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

type defaultCoinFlipper struct{}

func (c *defaultCoinFlipper) Flip() bool {
	return rand.Intn(2) == 0
}

// Service handles invoice capture operations
type Service struct {
	db          DB
	extractor   extraction.Extractor
	store       DocumentStore
	pending     PendingSource
	adminEmail  string
	idGenerator IDGenerator
	timeSource  TimeSource
	coin        CoinFlipper
}

// NewService creates a new Service with default ID generator, time source
// and coin flipper
func NewService(db DB, extractor extraction.Extractor, store DocumentStore, pending PendingSource, adminEmail string) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		store:       store,
		pending:     pending,
		adminEmail:  strings.ToLower(adminEmail),
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
		coin:        &defaultCoinFlipper{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor extraction.Extractor, store DocumentStore, pending PendingSource, adminEmail string, idGen IDGenerator, timeSrc TimeSource, coin CoinFlipper) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		store:       store,
		pending:     pending,
		adminEmail:  strings.ToLower(adminEmail),
		idGenerator: idGen,
		timeSource:  timeSrc,
		coin:        coin,
	}
}

// defaultProperties is the set seeded into an empty database on first list.
func defaultProperties(idGen IDGenerator) []*Property {
	return []*Property{
		{ID: idGen.Generate(), Name: "Mokotowska 12/3", Address: "ul. Mokotowska 12/3, 00-561 Warszawa", FolderRef: "folder-" + idGen.Generate()},
		{ID: idGen.Generate(), Name: "Dluga 45/8", Address: "ul. Dluga 45/8, 80-831 Gdansk", FolderRef: "folder-" + idGen.Generate()},
		{ID: idGen.Generate(), Name: "Krupnicza 7/2", Address: "ul. Krupnicza 7/2, 31-123 Krakow", FolderRef: "folder-" + idGen.Generate()},
	}
}

// ListProperties returns all stored properties, seeding and persisting a
// fixed default set when none exist yet.
func (s *Service) ListProperties() ([]*Property, error) {
	properties, err := s.db.ListProperties()
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	if len(properties) > 0 {
		return properties, nil
	}

	seeded := defaultProperties(s.idGenerator)
	for _, p := range seeded {
		if err := s.db.SaveProperty(p); err != nil {
			return nil, fmt.Errorf("seeding default properties: %w", err)
		}
	}
	return s.db.ListProperties()
}

// ActiveProperties returns the non-archived properties used in selection lists
func (s *Service) ActiveProperties() ([]*Property, error) {
	properties, err := s.ListProperties()
	if err != nil {
		return nil, err
	}
	active := make([]*Property, 0, len(properties))
	for _, p := range properties {
		if !p.Archived {
			active = append(active, p)
		}
	}
	return active, nil
}

// SaveProperty replaces an existing property on an ID match; otherwise it
// synthesizes an external folder reference and appends a new one. The
// property is returned as submitted, not in its persisted form - callers
// re-list to observe the generated folder reference.
func (s *Service) SaveProperty(p *Property) (*Property, error) {
	persisted := *p
	if persisted.ID == "" {
		persisted.ID = s.idGenerator.Generate()
	}

	if _, err := s.db.GetProperty(persisted.ID); err != nil {
		// New property: assign a synthetic folder reference
		if persisted.FolderRef == "" {
			persisted.FolderRef = "folder-" + s.idGenerator.Generate()
		}
	}

	if err := s.db.SaveProperty(&persisted); err != nil {
		return nil, fmt.Errorf("saving property: %w", err)
	}
	return p, nil
}

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length; phone cameras produce absurdly long names.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "invoice"
	}

	return base + ext
}

// AnalyzeDocument runs the extraction client over an uploaded document and
// builds the editable draft. When the model's suggested property matches a
// known active property, that property is pre-selected on the draft.
func (s *Service) AnalyzeDocument(filename string, data []byte, contentType string) (*Draft, error) {
	properties, err := s.ActiveProperties()
	if err != nil {
		return nil, err
	}

	hints := make([]extraction.PropertyHint, 0, len(properties))
	for _, p := range properties {
		hints = append(hints, extraction.PropertyHint{ID: p.ID, Name: p.Name, Address: p.Address})
	}

	extracted, err := s.extractor.ExtractInvoice(data, contentType, hints)
	if err != nil {
		slog.Error("Failed to extract invoice",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("extracting invoice: %w", err)
	}

	draft := &Draft{
		Data:        *extracted,
		Filename:    sanitizeFilename(filename),
		ContentType: contentType,
		FileData:    data,
	}

	if extracted.SuggestedPropertyID != "" {
		for _, p := range properties {
			if p.ID == extracted.SuggestedPropertyID {
				draft.PropertyID = p.ID
				break
			}
		}
	}

	return draft, nil
}

// UploadRecord commits a reviewed draft to history: document bytes (when
// present) go to the store and yield an external link, a storage-row number
// is always synthesized, and the record is added to history.
func (s *Service) UploadRecord(draft *Draft) (*Record, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	var link, storedPath string
	if len(draft.FileData) > 0 {
		var err error
		storedPath, err = s.store.Save(fmt.Sprintf("%s_%s", id, draft.Filename), draft.FileData)
		if err != nil {
			return nil, fmt.Errorf("storing document: %w", err)
		}
		link = s.store.Link(storedPath)
	}

	count, err := s.db.CountRecords()
	if err != nil {
		if storedPath != "" {
			s.store.Delete(storedPath)
		}
		return nil, fmt.Errorf("counting records: %w", err)
	}

	record := &Record{
		ID:          id,
		PropertyID:  draft.PropertyID,
		Data:        draft.Data,
		Filename:    storedPath,
		ContentType: draft.ContentType,
		Link:        link,
		RowNumber:   count + 1,
		CreatedAt:   now,
	}

	if err := s.db.SaveRecord(record); err != nil {
		if storedPath != "" {
			s.store.Delete(storedPath)
		}
		return nil, fmt.Errorf("saving record: %w", err)
	}

	return record, nil
}

// ListRecentRecords returns the invoice history, newest first
func (s *Service) ListRecentRecords() ([]*Record, error) {
	records, err := s.db.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return records, nil
}

// GetRecordFile retrieves the stored document for a record
func (s *Service) GetRecordFile(id string) ([]byte, string, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting record: %w", err)
	}
	if record.Filename == "" {
		return nil, "", fmt.Errorf("record has no document: %s", id)
	}

	data, err := s.store.Get(record.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting record file: %w", err)
	}

	return data, record.ContentType, nil
}

// ListPending fetches the external e-invoice inbox, filtering out entries
// that were already approved. The registry itself keeps returning the same
// entries; the approved set is what makes removal stick across restarts.
func (s *Service) ListPending(ctx context.Context) ([]*PendingInvoice, error) {
	entries, err := s.pending.FetchPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching pending invoices: %w", err)
	}

	approved, err := s.db.ApprovedPending()
	if err != nil {
		return nil, fmt.Errorf("reading approved set: %w", err)
	}

	remaining := make([]*PendingInvoice, 0, len(entries))
	for _, e := range entries {
		if !approved[e.ID] {
			remaining = append(remaining, e)
		}
	}
	return remaining, nil
}

// ApprovePending commits a pending e-invoice as a record tied to the chosen
// property and durably marks it approved.
func (s *Service) ApprovePending(ctx context.Context, id, propertyID string) (*Record, error) {
	if propertyID == "" {
		return nil, fmt.Errorf("a property is required to approve a pending invoice")
	}
	if _, err := s.db.GetProperty(propertyID); err != nil {
		return nil, fmt.Errorf("getting property: %w", err)
	}

	entries, err := s.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	var entry *PendingInvoice
	for _, e := range entries {
		if e.ID == id {
			entry = e
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("pending invoice not found: %s", id)
	}

	record, err := s.UploadRecord(&Draft{
		Data:       entry.Data,
		PropertyID: propertyID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.MarkPendingApproved(id); err != nil {
		return nil, fmt.Errorf("marking pending invoice approved: %w", err)
	}

	return record, nil
}

// CountPending returns how many e-invoices are waiting in the inbox
func (s *Service) CountPending(ctx context.Context) (int, error) {
	entries, err := s.ListPending(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
