package invoice

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ajankowski/cost-capture/internal/extraction"
)

// User-facing failure messages. Internal details never leak past these.
const (
	msgExtractionFailed  = "We could not read the invoice. Please try again or enter the cost manually."
	msgPersistenceFailed = "Saving the cost failed. Please try again."
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes a JSON error envelope with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// flowSnapshot is what every flow-touching endpoint returns: the current
// state plus the data the corresponding screen needs.
type flowSnapshot struct {
	State            State             `json:"state"`
	Draft            *Draft            `json:"draft,omitempty"`
	ValidationErrors []string          `json:"validation_errors,omitempty"`
	Pending          []*PendingInvoice `json:"pending,omitempty"`
	SuccessLink      string            `json:"success_link,omitempty"`
	PendingCount     int64             `json:"pending_count"`
}

// snapshotLocked builds a snapshot; callers must hold s.mu.
func (s *Server) snapshotLocked() flowSnapshot {
	return flowSnapshot{
		State:            s.flow.State(),
		Draft:            s.flow.Draft(),
		ValidationErrors: s.flow.ValidationErrors(),
		Pending:          s.flow.Pending(),
		SuccessLink:      s.flow.SuccessLink(),
		PendingCount:     s.pendingCount.Load(),
	}
}

func (s *Server) writeSnapshot(w http.ResponseWriter, code int) {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	writeJSON(w, code, snap)
}

// handleIndex reports the flow state; the add-cost deep link starts the
// capture flow before reporting, so the app opens on method selection.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get(deepLinkParam) == deepLinkAddCost {
		s.mu.Lock()
		if s.flow.State() == StateIdle {
			s.flow.StartCapture()
		}
		s.mu.Unlock()
	}
	s.writeSnapshot(w, http.StatusOK)
}

// handleFlowState reports the flow state without side effects
func (s *Server) handleFlowState(w http.ResponseWriter, r *http.Request) {
	s.writeSnapshot(w, http.StatusOK)
}

// handleLogin resolves an email to a known user
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.service.Login(req.Email)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			jsonError(w, "Unknown user", http.StatusUnauthorized)
			return
		}
		slog.Error("Error logging in", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	go s.refreshPendingCount()
	writeJSON(w, http.StatusOK, user)
}

// handleLoginGoogle performs the mock Google login
func (s *Server) handleLoginGoogle(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.LoginWithGoogle()
	if err != nil {
		slog.Error("Error logging in with google", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	go s.refreshPendingCount()
	writeJSON(w, http.StatusOK, user)
}

// handleLogout clears the session and resets the flow
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Logout(); err != nil {
		slog.Error("Error logging out", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.flow.Reset()
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// handleSession reports the logged-in user
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.CurrentUser()
	if err != nil {
		slog.Error("Error reading session", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		jsonError(w, "Not logged in", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleListProperties returns properties for selection lists; archived
// ones are included only when ?all=true is passed.
func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	var (
		properties []*Property
		err        error
	)
	if r.URL.Query().Get("all") == "true" {
		properties, err = s.service.ListProperties()
	} else {
		properties, err = s.service.ActiveProperties()
	}
	if err != nil {
		slog.Error("Error listing properties", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, properties)
}

// handleSaveProperty creates or replaces a property
func (s *Server) handleSaveProperty(w http.ResponseWriter, r *http.Request) {
	var property Property
	if err := json.NewDecoder(r.Body).Decode(&property); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := s.service.SaveProperty(&property)
	if err != nil {
		slog.Error("Error saving property", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// handleCaptureStart begins the add-cost flow
func (s *Server) handleCaptureStart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.flow.StartCapture()
	s.mu.Unlock()
	if err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeSnapshot(w, http.StatusOK)
}

// handleCaptureFile accepts a photographed or uploaded document, runs
// extraction and moves the flow to Review, or back to SelectMethod when
// extraction fails.
func (s *Server) handleCaptureFile(w http.ResponseWriter, r *http.Request) {
	// 50MB to handle high-resolution phone photos
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxFormSize {
		jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeForExt(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flow.BeginAnalysis(); err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}

	draft, err := s.service.AnalyzeDocument(header.Filename, data, contentType)
	if err != nil {
		s.flow.ExtractionFailed()
		setCORSHeaders(w)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": msgExtractionFailed,
			"state": s.flow.State(),
		})
		return
	}

	s.flow.ExtractionSucceeded(draft)
	writeJSON(w, http.StatusOK, s.snapshotLocked())
}

// handleCaptureManual opens Review with a blank draft
func (s *Server) handleCaptureManual(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.flow.StartManualEntry(s.service.timeSource.Now())
	s.mu.Unlock()
	if err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeSnapshot(w, http.StatusOK)
}

// handleCaptureSubmit applies the user's edits, validates, and commits the
// draft to history.
func (s *Server) handleCaptureSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data       extraction.InvoiceData `json:"data"`
		PropertyID string                 `json:"property_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flow.UpdateDraft(req.Data, req.PropertyID); err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}

	problems, err := s.flow.Submit()
	if err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if len(problems) > 0 {
		setCORSHeaders(w)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"validation_errors": problems,
			"state":             s.flow.State(),
		})
		return
	}

	record, err := s.service.UploadRecord(s.flow.Draft())
	if err != nil {
		slog.Error("Error uploading record", "error", err)
		s.flow.UploadFailed()
		setCORSHeaders(w)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": msgPersistenceFailed,
			"state": s.flow.State(),
		})
		return
	}

	s.flow.UploadSucceeded(record.Link)
	writeJSON(w, http.StatusCreated, map[string]any{
		"record":   record,
		"snapshot": s.snapshotLocked(),
	})
}

// handleCaptureReset returns the flow to Idle and refreshes the inbox
// badge in the background.
func (s *Server) handleCaptureReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.flow.Reset()
	s.mu.Unlock()

	go s.refreshPendingCount()
	s.writeSnapshot(w, http.StatusOK)
}

// handleListRecords returns the invoice history, newest first
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListRecentRecords()
	if err != nil {
		slog.Error("Error listing records", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleGetRecordFile returns the stored document for a record
func (s *Server) handleGetRecordFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		jsonError(w, "Record ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetRecordFile(id)
	if err != nil {
		jsonError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleExportRecords streams the history as an XLSX workbook
func (s *Server) handleExportRecords(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.ExportRecordsXLSX()
	if err != nil {
		slog.Error("Error exporting records", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="costs.xlsx"`)
	w.Write(data)
}

// handleOpenInbox fetches the pending e-invoice inbox and moves the flow
// to PendingInbox.
func (s *Server) handleOpenInbox(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListPending(r.Context())
	if err != nil {
		slog.Error("Error fetching pending invoices", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	openErr := s.flow.OpenInbox(entries)
	s.mu.Unlock()
	if openErr != nil {
		jsonError(w, openErr.Error(), http.StatusConflict)
		return
	}

	s.pendingCount.Store(int64(len(entries)))
	s.writeSnapshot(w, http.StatusOK)
}

// handleApprovePending commits one pending entry to history and removes it
// from the in-memory inbox; approving the last one lands on Success.
func (s *Server) handleApprovePending(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		jsonError(w, "Pending invoice ID required", http.StatusBadRequest)
		return
	}

	var req struct {
		PropertyID string `json:"property_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.State() != StatePendingInbox {
		jsonError(w, "Inbox is not open", http.StatusConflict)
		return
	}

	record, err := s.service.ApprovePending(r.Context(), id, req.PropertyID)
	if err != nil {
		slog.Error("Error approving pending invoice", "id", id, "error", err)
		setCORSHeaders(w)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := s.flow.RemovePending(id); err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if count := s.pendingCount.Load(); count > 0 {
		s.pendingCount.Store(count - 1)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"record":   record,
		"snapshot": s.snapshotLocked(),
	})
}

// handleListUsers returns all accounts
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers()
	if err != nil {
		slog.Error("Error listing users", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleCreateUser adds a sub-user account (administrator only)
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  Role   `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.service.CreateUser(req.Email, req.Name, req.Role)
	if err != nil {
		setCORSHeaders(w)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// handleGetSettings returns the stored settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.GetSettings()
	if err != nil {
		slog.Error("Error reading settings", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings stores settings. Anyone may change the theme; the
// storage folder paths are administrator-only.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	current, err := s.service.GetSettings()
	if err != nil {
		slog.Error("Error reading settings", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user, err := s.service.CurrentUser()
	if err != nil || user == nil {
		jsonError(w, "Not logged in", http.StatusUnauthorized)
		return
	}
	if user.Role != RoleAdmin &&
		(req.InvoiceFolder != current.InvoiceFolder || req.ArchiveFolder != current.ArchiveFolder) {
		jsonError(w, "Administrator access required to change folder paths", http.StatusForbidden)
		return
	}

	if err := s.service.UpdateSettings(&req); err != nil {
		slog.Error("Error updating settings", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// contentTypeForExt maps common upload extensions to MIME types
func contentTypeForExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
