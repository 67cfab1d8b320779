package invoice

import (
	"fmt"
	"time"

	"github.com/ajankowski/cost-capture/internal/extraction"
)

// State is the single enumerated value driving the capture flow.
type State string

const (
	StateIdle         State = "idle"
	StateSelectMethod State = "select_method"
	StateAnalyzing    State = "analyzing"
	StateReview       State = "review"
	StateUploading    State = "uploading"
	StateSuccess      State = "success"
	StatePendingInbox State = "pending_inbox"
)

// Flow is the capture view-state machine: one enumerated status plus the
// data each screen needs. It does no IO of its own, so transitions can be
// unit-tested independently of the HTTP layer that drives them.
type Flow struct {
	state          State
	draft          *Draft
	validationErrs []string
	pending        []*PendingInvoice
	successLink    string
}

// NewFlow returns a flow in the initial Idle state
func NewFlow() *Flow {
	return &Flow{state: StateIdle}
}

// State returns the current flow state
func (f *Flow) State() State { return f.state }

// Draft returns the editable draft, valid in Review and Uploading
func (f *Flow) Draft() *Draft { return f.draft }

// ValidationErrors returns the accumulated messages from the last submit attempt
func (f *Flow) ValidationErrors() []string { return f.validationErrs }

// Pending returns the in-memory pending inbox, valid in PendingInbox
func (f *Flow) Pending() []*PendingInvoice { return f.pending }

// SuccessLink returns the external document link recorded on success, if any
func (f *Flow) SuccessLink() string { return f.successLink }

func (f *Flow) transitionError(action string) error {
	return fmt.Errorf("cannot %s in state %q", action, f.state)
}

// StartCapture moves Idle to SelectMethod when the user asks to add a cost
func (f *Flow) StartCapture() error {
	if f.state != StateIdle {
		return f.transitionError("start capture")
	}
	f.state = StateSelectMethod
	return nil
}

// BeginAnalysis moves SelectMethod to Analyzing once a file is supplied
func (f *Flow) BeginAnalysis() error {
	if f.state != StateSelectMethod {
		return f.transitionError("begin analysis")
	}
	f.state = StateAnalyzing
	return nil
}

// ExtractionSucceeded installs the extracted draft and moves to Review
func (f *Flow) ExtractionSucceeded(draft *Draft) error {
	if f.state != StateAnalyzing {
		return f.transitionError("finish analysis")
	}
	f.state = StateReview
	f.draft = draft
	f.validationErrs = nil
	return nil
}

// ExtractionFailed returns the user to method selection
func (f *Flow) ExtractionFailed() error {
	if f.state != StateAnalyzing {
		return f.transitionError("fail analysis")
	}
	f.state = StateSelectMethod
	f.draft = nil
	return nil
}

// StartManualEntry skips analysis and opens Review with a blank draft
// pre-populated with the given date and the default currency.
func (f *Flow) StartManualEntry(now time.Time) error {
	if f.state != StateSelectMethod {
		return f.transitionError("start manual entry")
	}
	f.state = StateReview
	f.draft = &Draft{
		Data: extraction.InvoiceData{
			Date:     now.Format("2006-01-02"),
			Currency: extraction.DefaultCurrency,
		},
	}
	f.validationErrs = nil
	return nil
}

// UpdateDraft replaces the draft with the user's edits during Review.
// The attached document, if any, is carried over.
func (f *Flow) UpdateDraft(data extraction.InvoiceData, propertyID string) error {
	if f.state != StateReview {
		return f.transitionError("edit draft")
	}
	f.draft.Data = data
	f.draft.PropertyID = propertyID
	return nil
}

// Submit validates the draft. When it passes the flow moves to Uploading
// and returns nil; otherwise the flow stays on Review and the accumulated
// messages are returned.
func (f *Flow) Submit() ([]string, error) {
	if f.state != StateReview {
		return nil, f.transitionError("submit")
	}
	if problems := ValidateDraft(f.draft); len(problems) > 0 {
		f.validationErrs = problems
		return problems, nil
	}
	f.validationErrs = nil
	f.state = StateUploading
	return nil, nil
}

// UploadSucceeded records the success link and moves to Success
func (f *Flow) UploadSucceeded(link string) error {
	if f.state != StateUploading {
		return f.transitionError("finish upload")
	}
	f.state = StateSuccess
	f.successLink = link
	f.draft = nil
	return nil
}

// UploadFailed returns the user to Review so they can retry
func (f *Flow) UploadFailed() error {
	if f.state != StateUploading {
		return f.transitionError("fail upload")
	}
	f.state = StateReview
	return nil
}

// OpenInbox installs the fetched pending list and moves Idle to
// PendingInbox. Re-opening an already open inbox refreshes the list.
func (f *Flow) OpenInbox(entries []*PendingInvoice) error {
	if f.state != StateIdle && f.state != StatePendingInbox {
		return f.transitionError("open inbox")
	}
	f.state = StatePendingInbox
	f.pending = entries
	return nil
}

// RemovePending drops exactly one approved entry from the in-memory pending
// set. Approving the last remaining entry moves the flow to Success.
func (f *Flow) RemovePending(id string) error {
	if f.state != StatePendingInbox {
		return f.transitionError("approve pending invoice")
	}

	idx := -1
	for i, e := range f.pending {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("pending invoice not found: %s", id)
	}

	f.pending = append(f.pending[:idx], f.pending[idx+1:]...)
	if len(f.pending) == 0 {
		f.state = StateSuccess
	}
	return nil
}

// Reset returns the flow to Idle from any state, clearing all screen data
func (f *Flow) Reset() {
	f.state = StateIdle
	f.draft = nil
	f.validationErrs = nil
	f.pending = nil
	f.successLink = ""
}
