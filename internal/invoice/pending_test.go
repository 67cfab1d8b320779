package invoice

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StaticPendingSource", func() {
	var source *StaticPendingSource

	BeforeEach(func() {
		source = &StaticPendingSource{}
	})

	It("returns the fixed registry sample", func() {
		entries, err := source.FetchPending(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(3))
		Expect(entries[0].ID).To(Equal("ksef-2024-000101"))
		Expect(entries[0].Data.SellerName).To(Equal("PGNiG Obrot Detaliczny"))
		Expect(entries[0].Data.GrossAmount).To(Equal(250.00))
	})

	It("returns the same entries on every fetch", func() {
		first, err := source.FetchPending(context.Background())
		Expect(err).NotTo(HaveOccurred())
		second, err := source.FetchPending(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	When("a delay is configured", func() {
		BeforeEach(func() {
			source.Delay = time.Minute
		})

		It("aborts when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := source.FetchPending(ctx)
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
