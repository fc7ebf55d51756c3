package health_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliodocs/folio/pkg/health"
	"github.com/foliodocs/folio/pkg/llm"
	testutils "github.com/foliodocs/folio/pkg/utils/test"
	"github.com/foliodocs/folio/pkg/vector"
)

// offlineStore fails the first inspection call.
type offlineStore struct {
	*testutils.MockStore
}

func (offlineStore) Dimension(context.Context) (int, error) {
	return 0, errors.New("index offline")
}

var _ = Describe("NewChecker", func() {
	It("requires a store", func() {
		_, err := health.NewChecker(nil)
		Expect(err).To(HaveOccurred())

		_, err = health.NewChecker(&health.Config{})
		Expect(err).To(MatchError(ContainSubstring("vector store")))
	})

	It("accepts a nil provider", func() {
		_, err := health.NewChecker(&health.Config{Store: testutils.NewMockStore()})
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("Checker", func() {
	var (
		ctx      context.Context
		provider *testutils.MockProvider
		store    *testutils.MockStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		provider = testutils.NewMockProvider()
		store = testutils.NewMockStore()
	})

	newChecker := func(c *health.Config) *health.Checker {
		checker, err := health.NewChecker(c)
		Expect(err).NotTo(HaveOccurred())
		return checker
	}

	write := func(docID, source string, ordinal int) {
		err := store.Write(ctx, vector.Entry{
			DocumentID: docID,
			Source:     source,
			Ordinal:    ordinal,
			Text:       "text",
			Embedding:  []float32{0.1, 0.2, 0.3},
		})
		Expect(err).NotTo(HaveOccurred())
	}

	It("reports healthy when index and provider line up", func() {
		write("doc-a", "guides/setup.md", 0)
		write("doc-a", "guides/setup.md", 1)
		write("doc-b", "faq.md", 0)
		checker := newChecker(&health.Config{Store: store, Provider: provider})

		report := checker.Check(ctx)

		Expect(report.Status).To(Equal(health.StatusHealthy))
		Expect(report.CheckedAt).NotTo(BeZero())
		Expect(report.Recommendations).To(BeEmpty())
		Expect(report.DimensionsCompatible).To(BeTrue())

		Expect(report.Index.Dimension).To(Equal(3))
		Expect(report.Index.Chunks).To(Equal(3))
		Expect(report.Index.Documents).To(Equal(2))
		Expect(report.Index.Sources).To(ConsistOf(
			health.SourceCount{Document: "doc-a", Source: "guides/setup.md", Chunks: 2},
			health.SourceCount{Document: "doc-b", Source: "faq.md", Chunks: 1},
		))

		Expect(report.Provider.Configured).To(BeTrue())
		Expect(report.Provider.Reachable).To(BeTrue())
		Expect(report.Provider.Name).To(Equal("mock"))
		Expect(report.Provider.Dimension).To(Equal(3))
	})

	It("reports empty with an ingest recommendation", func() {
		checker := newChecker(&health.Config{Store: store, Provider: provider})

		report := checker.Check(ctx)

		Expect(report.Status).To(Equal(health.StatusEmpty))
		Expect(report.Index.Chunks).To(BeZero())
		Expect(report.Recommendations).To(ContainElement(ContainSubstring("folio ingest")))
	})

	It("reports partial without a provider", func() {
		write("doc-a", "a.md", 0)
		checker := newChecker(&health.Config{Store: store})

		report := checker.Check(ctx)

		Expect(report.Status).To(Equal(health.StatusPartial))
		Expect(report.Provider.Configured).To(BeFalse())
		Expect(report.Recommendations).To(ContainElement(ContainSubstring("folio init")))
	})

	It("reports partial when the provider probe fails", func() {
		write("doc-a", "a.md", 0)
		provider.EmbedErr = llm.ErrUnavailable
		checker := newChecker(&health.Config{Store: store, Provider: provider})

		report := checker.Check(ctx)

		Expect(report.Status).To(Equal(health.StatusPartial))
		Expect(report.Provider.Configured).To(BeTrue())
		Expect(report.Provider.Reachable).To(BeFalse())
		Expect(report.Provider.Error).NotTo(BeEmpty())
		Expect(report.Recommendations).To(ContainElement(ContainSubstring("unreachable")))
	})

	It("reports partial on a dimension mismatch", func() {
		write("doc-a", "a.md", 0)
		provider.Dim = 5
		checker := newChecker(&health.Config{Store: store, Provider: provider})

		report := checker.Check(ctx)

		Expect(report.Status).To(Equal(health.StatusPartial))
		Expect(report.DimensionsCompatible).To(BeFalse())
		Expect(report.Recommendations).To(ContainElement(And(
			ContainSubstring("provider dimension 5"),
			ContainSubstring("index dimension 3"),
			ContainSubstring("folio ingest --reset"),
		)))
	})

	It("reports error when the index cannot be inspected", func() {
		checker := newChecker(&health.Config{
			Store:    offlineStore{MockStore: store},
			Provider: provider,
		})

		report := checker.Check(ctx)

		Expect(report.Status).To(Equal(health.StatusError))
		Expect(report.Index.Error).To(ContainSubstring("index offline"))
		Expect(report.Recommendations).To(ContainElement(ContainSubstring("vector store")))
	})

	It("marshals with stable field names", func() {
		checker := newChecker(&health.Config{Store: store, Provider: provider})

		data, err := json.Marshal(checker.Check(ctx))
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]any
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded).To(HaveKeyWithValue("status", "empty"))
		Expect(decoded).To(HaveKey("checked_at"))
		Expect(decoded).To(HaveKey("index"))
		Expect(decoded).To(HaveKey("provider"))
		Expect(decoded).To(HaveKey("dimensions_compatible"))
	})
})
