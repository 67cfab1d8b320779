package invoice

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStore", func() {
	var (
		store    *LocalStore
		basePath string
	)

	BeforeEach(func() {
		basePath = filepath.Join(GinkgoT().TempDir(), "documents")
		var err error
		store, err = NewLocalStore(basePath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates the storage directory", func() {
		info, err := os.Stat(basePath)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	Describe("Save", func() {
		It("writes the document and returns its path", func() {
			path, err := store.Save("invoice.jpg", []byte("fake image data"))
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal("invoice.jpg"))

			data, err := os.ReadFile(filepath.Join(basePath, "invoice.jpg"))
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("fake image data")))
		})
	})

	Describe("Get", func() {
		It("reads back a stored document", func() {
			_, err := store.Save("invoice.jpg", []byte("fake image data"))
			Expect(err).NotTo(HaveOccurred())

			data, err := store.Get("invoice.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("fake image data")))
		})

		It("returns an error for a missing document", func() {
			_, err := store.Get("missing.jpg")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("removes a stored document", func() {
			_, err := store.Save("invoice.jpg", []byte("fake image data"))
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Delete("invoice.jpg")).To(Succeed())

			_, err = store.Get("invoice.jpg")
			Expect(err).To(HaveOccurred())
		})

		It("returns an error for a missing document", func() {
			Expect(store.Delete("missing.jpg")).To(HaveOccurred())
		})
	})

	Describe("Link", func() {
		It("synthesizes the external link", func() {
			Expect(store.Link("abc_invoice.jpg")).To(Equal("local://documents/abc_invoice.jpg"))
		})
	})
})
