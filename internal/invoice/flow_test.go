package invoice

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ajankowski/cost-capture/internal/extraction"
)

var _ = Describe("Flow", func() {
	var flow *Flow

	validDraft := func() *Draft {
		return &Draft{
			Data: extraction.InvoiceData{
				SellerName:  "Tauron Sprzedaz",
				Date:        "2024-01-15",
				GrossAmount: 123.00,
				Currency:    "PLN",
			},
			PropertyID: "prop-1",
		}
	}

	BeforeEach(func() {
		flow = NewFlow()
	})

	It("starts in the idle state", func() {
		Expect(flow.State()).To(Equal(StateIdle))
	})

	Describe("StartCapture", func() {
		It("moves idle to method selection", func() {
			Expect(flow.StartCapture()).To(Succeed())
			Expect(flow.State()).To(Equal(StateSelectMethod))
		})

		It("rejects a second start", func() {
			Expect(flow.StartCapture()).To(Succeed())
			Expect(flow.StartCapture()).To(HaveOccurred())
		})
	})

	Describe("analysis", func() {
		BeforeEach(func() {
			Expect(flow.StartCapture()).To(Succeed())
			Expect(flow.BeginAnalysis()).To(Succeed())
		})

		It("is in the analyzing state", func() {
			Expect(flow.State()).To(Equal(StateAnalyzing))
		})

		When("extraction succeeds", func() {
			BeforeEach(func() {
				Expect(flow.ExtractionSucceeded(validDraft())).To(Succeed())
			})

			It("installs the draft and opens review", func() {
				Expect(flow.State()).To(Equal(StateReview))
				Expect(flow.Draft()).NotTo(BeNil())
				Expect(flow.Draft().Data.SellerName).To(Equal("Tauron Sprzedaz"))
			})
		})

		When("extraction fails", func() {
			BeforeEach(func() {
				Expect(flow.ExtractionFailed()).To(Succeed())
			})

			It("returns to method selection without a draft", func() {
				Expect(flow.State()).To(Equal(StateSelectMethod))
				Expect(flow.Draft()).To(BeNil())
			})
		})

		It("rejects analysis outside method selection", func() {
			Expect(flow.BeginAnalysis()).To(HaveOccurred())
		})
	})

	Describe("StartManualEntry", func() {
		now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

		BeforeEach(func() {
			Expect(flow.StartCapture()).To(Succeed())
			Expect(flow.StartManualEntry(now)).To(Succeed())
		})

		It("opens review directly", func() {
			Expect(flow.State()).To(Equal(StateReview))
		})

		It("pre-populates today's date and the default currency", func() {
			Expect(flow.Draft().Data.Date).To(Equal("2024-01-15"))
			Expect(flow.Draft().Data.Currency).To(Equal(extraction.DefaultCurrency))
		})

		It("leaves every amount at zero and every text field blank", func() {
			Expect(flow.Draft().Data.SellerName).To(BeEmpty())
			Expect(flow.Draft().Data.GrossAmount).To(BeZero())
			Expect(flow.Draft().PropertyID).To(BeEmpty())
		})
	})

	Describe("Submit", func() {
		BeforeEach(func() {
			Expect(flow.StartCapture()).To(Succeed())
			Expect(flow.BeginAnalysis()).To(Succeed())
			Expect(flow.ExtractionSucceeded(validDraft())).To(Succeed())
		})

		When("the draft is valid", func() {
			It("moves to uploading with no messages", func() {
				problems, err := flow.Submit()
				Expect(err).NotTo(HaveOccurred())
				Expect(problems).To(BeEmpty())
				Expect(flow.State()).To(Equal(StateUploading))
			})
		})

		When("required fields are missing", func() {
			BeforeEach(func() {
				Expect(flow.UpdateDraft(extraction.InvoiceData{Date: "2024-01-15", Currency: "PLN"}, "")).To(Succeed())
			})

			It("stays on review and reports each problem", func() {
				problems, err := flow.Submit()
				Expect(err).NotTo(HaveOccurred())
				Expect(flow.State()).To(Equal(StateReview))
				Expect(problems).To(HaveLen(2))
				Expect(problems[0]).To(ContainSubstring("property"))
				Expect(problems[1]).To(ContainSubstring("Seller name"))
				Expect(flow.ValidationErrors()).To(Equal(problems))
			})
		})

		When("the gross amount is negative", func() {
			BeforeEach(func() {
				draft := validDraft()
				draft.Data.GrossAmount = -5
				Expect(flow.UpdateDraft(draft.Data, draft.PropertyID)).To(Succeed())
			})

			It("reports the amount as invalid", func() {
				problems, _ := flow.Submit()
				Expect(problems).To(ConsistOf(ContainSubstring("Gross amount")))
			})
		})

		When("the gross amount is zero", func() {
			BeforeEach(func() {
				draft := validDraft()
				draft.Data.GrossAmount = 0
				Expect(flow.UpdateDraft(draft.Data, draft.PropertyID)).To(Succeed())
			})

			It("accepts the draft", func() {
				problems, err := flow.Submit()
				Expect(err).NotTo(HaveOccurred())
				Expect(problems).To(BeEmpty())
				Expect(flow.State()).To(Equal(StateUploading))
			})
		})

		When("a failed submit is corrected", func() {
			It("clears the earlier messages", func() {
				Expect(flow.UpdateDraft(extraction.InvoiceData{}, "")).To(Succeed())
				problems, _ := flow.Submit()
				Expect(problems).NotTo(BeEmpty())

				good := validDraft()
				Expect(flow.UpdateDraft(good.Data, good.PropertyID)).To(Succeed())
				problems, err := flow.Submit()
				Expect(err).NotTo(HaveOccurred())
				Expect(problems).To(BeEmpty())
				Expect(flow.ValidationErrors()).To(BeEmpty())
			})
		})
	})

	Describe("upload", func() {
		BeforeEach(func() {
			Expect(flow.StartCapture()).To(Succeed())
			Expect(flow.BeginAnalysis()).To(Succeed())
			Expect(flow.ExtractionSucceeded(validDraft())).To(Succeed())
			_, err := flow.Submit()
			Expect(err).NotTo(HaveOccurred())
		})

		When("the upload succeeds", func() {
			BeforeEach(func() {
				Expect(flow.UploadSucceeded("mock://documents/abc.jpg")).To(Succeed())
			})

			It("shows the success screen with the document link", func() {
				Expect(flow.State()).To(Equal(StateSuccess))
				Expect(flow.SuccessLink()).To(Equal("mock://documents/abc.jpg"))
				Expect(flow.Draft()).To(BeNil())
			})
		})

		When("the upload fails", func() {
			BeforeEach(func() {
				Expect(flow.UploadFailed()).To(Succeed())
			})

			It("returns to review with the draft intact", func() {
				Expect(flow.State()).To(Equal(StateReview))
				Expect(flow.Draft()).NotTo(BeNil())
			})
		})
	})

	Describe("pending inbox", func() {
		entries := func() []*PendingInvoice {
			return []*PendingInvoice{
				{ID: "ksef-1"},
				{ID: "ksef-2"},
				{ID: "ksef-3"},
			}
		}

		It("opens from idle", func() {
			Expect(flow.OpenInbox(entries())).To(Succeed())
			Expect(flow.State()).To(Equal(StatePendingInbox))
			Expect(flow.Pending()).To(HaveLen(3))
		})

		It("refreshes when already open", func() {
			Expect(flow.OpenInbox(entries())).To(Succeed())
			Expect(flow.OpenInbox(entries()[:1])).To(Succeed())
			Expect(flow.Pending()).To(HaveLen(1))
		})

		It("does not open mid-capture", func() {
			Expect(flow.StartCapture()).To(Succeed())
			Expect(flow.OpenInbox(entries())).To(HaveOccurred())
		})

		Describe("RemovePending", func() {
			BeforeEach(func() {
				Expect(flow.OpenInbox(entries())).To(Succeed())
			})

			It("removes exactly the approved entry", func() {
				Expect(flow.RemovePending("ksef-2")).To(Succeed())
				Expect(flow.Pending()).To(HaveLen(2))
				Expect(flow.Pending()[0].ID).To(Equal("ksef-1"))
				Expect(flow.Pending()[1].ID).To(Equal("ksef-3"))
				Expect(flow.State()).To(Equal(StatePendingInbox))
			})

			It("rejects an unknown entry", func() {
				Expect(flow.RemovePending("ksef-999")).To(HaveOccurred())
				Expect(flow.Pending()).To(HaveLen(3))
			})

			It("moves to success once the inbox is empty", func() {
				Expect(flow.RemovePending("ksef-1")).To(Succeed())
				Expect(flow.RemovePending("ksef-2")).To(Succeed())
				Expect(flow.RemovePending("ksef-3")).To(Succeed())
				Expect(flow.State()).To(Equal(StateSuccess))
			})
		})
	})

	Describe("Reset", func() {
		It("returns to idle from any screen", func() {
			Expect(flow.StartCapture()).To(Succeed())
			Expect(flow.BeginAnalysis()).To(Succeed())
			Expect(flow.ExtractionSucceeded(validDraft())).To(Succeed())

			flow.Reset()

			Expect(flow.State()).To(Equal(StateIdle))
			Expect(flow.Draft()).To(BeNil())
			Expect(flow.Pending()).To(BeEmpty())
			Expect(flow.SuccessLink()).To(BeEmpty())
		})
	})
})
