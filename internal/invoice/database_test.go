package invoice

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ajankowski/cost-capture/internal/extraction"
)

var _ = Describe("BoltDB", func() {
	var db *BoltDB

	BeforeEach(func() {
		var err error
		db, err = NewBoltDB(filepath.Join(GinkgoT().TempDir(), "test.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	Describe("properties", func() {
		It("round-trips a property", func() {
			saved := &Property{
				ID:        "prop-1",
				Name:      "Mokotowska 12/3",
				Address:   "ul. Mokotowska 12/3, 00-561 Warszawa",
				Archived:  true,
				FolderRef: "folder-abc",
			}
			Expect(db.SaveProperty(saved)).To(Succeed())

			loaded, err := db.GetProperty("prop-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(saved))
		})

		It("returns an error for an unknown ID", func() {
			_, err := db.GetProperty("missing")
			Expect(err).To(HaveOccurred())
		})

		It("lists all properties sorted by name", func() {
			Expect(db.SaveProperty(&Property{ID: "b", Name: "Krupnicza"})).To(Succeed())
			Expect(db.SaveProperty(&Property{ID: "a", Name: "Dluga"})).To(Succeed())

			properties, err := db.ListProperties()
			Expect(err).NotTo(HaveOccurred())
			Expect(properties).To(HaveLen(2))
			Expect(properties[0].Name).To(Equal("Dluga"))
			Expect(properties[1].Name).To(Equal("Krupnicza"))
		})
	})

	Describe("records", func() {
		It("round-trips a record", func() {
			saved := &Record{
				ID:         "rec-1",
				PropertyID: "prop-1",
				Data: extraction.InvoiceData{
					SellerName:  "Tauron",
					GrossAmount: 123.45,
					Currency:    "PLN",
				},
				Filename:  "rec-1_invoice.jpg",
				Link:      "local://documents/rec-1_invoice.jpg",
				RowNumber: 1,
				CreatedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			}
			Expect(db.SaveRecord(saved)).To(Succeed())

			loaded, err := db.GetRecord("rec-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(saved))
		})

		It("lists records newest first", func() {
			base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
			Expect(db.SaveRecord(&Record{ID: "rec-1", CreatedAt: base})).To(Succeed())
			Expect(db.SaveRecord(&Record{ID: "rec-3", CreatedAt: base.Add(2 * time.Hour)})).To(Succeed())
			Expect(db.SaveRecord(&Record{ID: "rec-2", CreatedAt: base.Add(time.Hour)})).To(Succeed())

			records, err := db.ListRecords()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			Expect(records[0].ID).To(Equal("rec-3"))
			Expect(records[1].ID).To(Equal("rec-2"))
			Expect(records[2].ID).To(Equal("rec-1"))
		})

		It("counts stored records", func() {
			count, err := db.CountRecords()
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())

			Expect(db.SaveRecord(&Record{ID: "rec-1"})).To(Succeed())
			Expect(db.SaveRecord(&Record{ID: "rec-2"})).To(Succeed())

			count, err = db.CountRecords()
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})
	})

	Describe("users", func() {
		It("finds users by email regardless of case", func() {
			Expect(db.SaveUser(&User{ID: "u-1", Email: "Kasia@Example.com", Role: RoleRestricted})).To(Succeed())

			user, err := db.GetUserByEmail("kasia@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.ID).To(Equal("u-1"))
		})

		It("lists all accounts", func() {
			Expect(db.SaveUser(&User{ID: "u-1", Email: "a@example.com"})).To(Succeed())
			Expect(db.SaveUser(&User{ID: "u-2", Email: "b@example.com"})).To(Succeed())

			users, err := db.ListUsers()
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(2))
		})
	})

	Describe("session", func() {
		It("returns nil when nobody is logged in", func() {
			user, err := db.GetSession()
			Expect(err).NotTo(HaveOccurred())
			Expect(user).To(BeNil())
		})

		It("persists and clears the current user", func() {
			Expect(db.SetSession(&User{ID: "u-1", Email: "admin@example.com", Role: RoleAdmin})).To(Succeed())

			user, err := db.GetSession()
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Email).To(Equal("admin@example.com"))

			Expect(db.ClearSession()).To(Succeed())
			user, err = db.GetSession()
			Expect(err).NotTo(HaveOccurred())
			Expect(user).To(BeNil())
		})
	})

	Describe("settings", func() {
		It("returns empty for an unset key", func() {
			value, err := db.GetSetting("theme")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(BeEmpty())
		})

		It("round-trips a setting", func() {
			Expect(db.PutSetting("theme", "dark")).To(Succeed())

			value, err := db.GetSetting("theme")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("dark"))
		})
	})

	Describe("approved pending set", func() {
		It("starts empty", func() {
			approved, err := db.ApprovedPending()
			Expect(err).NotTo(HaveOccurred())
			Expect(approved).To(BeEmpty())
		})

		It("accumulates approved IDs", func() {
			Expect(db.MarkPendingApproved("ksef-1")).To(Succeed())
			Expect(db.MarkPendingApproved("ksef-2")).To(Succeed())

			approved, err := db.ApprovedPending()
			Expect(err).NotTo(HaveOccurred())
			Expect(approved).To(HaveKey("ksef-1"))
			Expect(approved).To(HaveKey("ksef-2"))
			Expect(approved).NotTo(HaveKey("ksef-3"))
		})
	})
})
