package ingest

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliodocs/folio/pkg/chunker"
	"github.com/foliodocs/folio/pkg/corpus"
	"github.com/foliodocs/folio/pkg/llm"
	testutils "github.com/foliodocs/folio/pkg/utils/test"
	"github.com/foliodocs/folio/pkg/vector"
)

// newTestChunker builds a chunker without a provider, so chunks carry empty
// contexts and embed exactly their own text.
func newTestChunker(budget int) *chunker.Chunker {
	ch, err := chunker.New(&chunker.Config{TokenBudget: budget})
	Expect(err).NotTo(HaveOccurred())
	return ch
}

// cancelingProvider cancels the batch context from inside the first Embed
// call, while that document is still in flight.
type cancelingProvider struct {
	*testutils.MockProvider
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancelingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	c.once.Do(c.cancel)
	return c.MockProvider.Embed(ctx, text)
}

var _ = Describe("NewPipeline", func() {
	It("requires provider, store, and chunker", func() {
		_, err := NewPipeline(nil)
		Expect(err).To(HaveOccurred())

		_, err = NewPipeline(&Config{
			Store:   testutils.NewMockStore(),
			Chunker: newTestChunker(50),
		})
		Expect(err).To(MatchError(ContainSubstring("provider")))

		_, err = NewPipeline(&Config{
			Provider: testutils.NewMockProvider(),
			Chunker:  newTestChunker(50),
		})
		Expect(err).To(MatchError(ContainSubstring("vector store")))

		_, err = NewPipeline(&Config{
			Provider: testutils.NewMockProvider(),
			Store:    testutils.NewMockStore(),
		})
		Expect(err).To(MatchError(ContainSubstring("chunker")))
	})

	It("applies worker pool defaults", func() {
		c := &Config{
			Provider: testutils.NewMockProvider(),
			Store:    testutils.NewMockStore(),
			Chunker:  newTestChunker(50),
		}

		_, err := NewPipeline(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.NumWorkers).To(Equal(uint(3)))
		Expect(c.QueueSize).To(Equal(uint(256)))
		Expect(c.Publisher).NotTo(BeNil())
	})
})

var _ = Describe("Pipeline", func() {
	var (
		ctx       context.Context
		provider  *testutils.MockProvider
		store     *testutils.MockStore
		publisher *testutils.MockPublisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		provider = testutils.NewMockProvider()
		store = testutils.NewMockStore()
		publisher = testutils.NewMockPublisher()
	})

	newPipeline := func(budget int, workers uint) *Pipeline {
		p, err := NewPipeline(&Config{
			Provider:   provider,
			Store:      store,
			Chunker:    newTestChunker(budget),
			Publisher:  publisher,
			NumWorkers: workers,
		})
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	Describe("Run", func() {
		It("indexes a batch and reports totals", func() {
			p := newPipeline(50, 0)
			docs := []corpus.Document{
				corpus.NewDocument("a.md", "alpha beta gamma"),
				corpus.NewDocument("b.md", "delta epsilon"),
			}

			summary, err := p.Run(ctx, docs)
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.BatchID).To(HavePrefix("batch_"))
			Expect(summary.Documents).To(Equal(2))
			Expect(summary.Indexed).To(Equal(2))
			Expect(summary.Failed).To(BeZero())
			Expect(summary.Skipped).To(BeZero())
			Expect(summary.Chunks).To(Equal(2))
			Expect(summary.Elapsed).To(BeNumerically(">", 0))

			Expect(summary.Results).To(HaveLen(2))
			Expect(summary.Results[0].Source).To(Equal("a.md"))
			Expect(summary.Results[0].Status).To(Equal(StatusIndexed))
			Expect(summary.Results[0].Chunks).To(Equal(1))
			Expect(summary.Results[1].Source).To(Equal("b.md"))
			Expect(summary.Results[1].Status).To(Equal(StatusIndexed))

			written := store.Written()
			Expect(written).To(HaveLen(2))

			var entry vector.Entry
			for _, e := range written {
				if e.Source == "a.md" {
					entry = e
				}
			}
			Expect(entry.DocumentID).To(Equal(docs[0].ID))
			Expect(entry.Ordinal).To(BeZero())
			Expect(entry.Text).To(Equal("alpha beta gamma"))
			Expect(entry.Context).To(BeEmpty())
			Expect(entry.Embedding).To(HaveLen(3))
		})

		It("writes chunks in ordinal order", func() {
			p := newPipeline(3, 1)
			doc := corpus.NewDocument("doc.md", "one two three\n\nfour five six\n\nseven eight nine")

			summary, err := p.Run(ctx, []corpus.Document{doc})
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Chunks).To(Equal(3))

			written := store.Written()
			Expect(written).To(HaveLen(3))
			for i, e := range written {
				Expect(e.Ordinal).To(Equal(i))
				Expect(e.DocumentID).To(Equal(doc.ID))
			}
		})

		It("aborts with ErrReindexRequired on a dimension mismatch", func() {
			store.FixedDim = 5
			p := newPipeline(50, 0)
			docs := []corpus.Document{corpus.NewDocument("a.md", "alpha beta")}

			summary, err := p.Run(ctx, docs)
			Expect(err).To(MatchError(ErrReindexRequired))
			Expect(err.Error()).To(ContainSubstring("index dimension 5"))
			Expect(err.Error()).To(ContainSubstring("provider dimension 3"))
			Expect(summary).To(BeNil())

			Expect(store.Written()).To(BeEmpty())
			Expect(publisher.DocumentEvents()).To(BeEmpty())
			Expect(publisher.CompletedEvents()).To(BeEmpty())
		})

		It("runs against an empty index regardless of provider dimension", func() {
			p := newPipeline(50, 0)

			summary, err := p.Run(ctx, []corpus.Document{corpus.NewDocument("a.md", "alpha")})
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Indexed).To(Equal(1))
		})

		It("continues past a failing document", func() {
			provider.FailEmbedOn = "poison"
			p := newPipeline(50, 0)
			docs := []corpus.Document{
				corpus.NewDocument("good.md", "clean text here"),
				corpus.NewDocument("bad.md", "poison text"),
				corpus.NewDocument("more.md", "fine words"),
			}

			summary, err := p.Run(ctx, docs)
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Indexed).To(Equal(2))
			Expect(summary.Failed).To(Equal(1))
			Expect(summary.Chunks).To(Equal(2))

			Expect(summary.Results[1].Status).To(Equal(StatusFailed))
			Expect(summary.Results[1].Stage).To(Equal(StageEmbed))
			Expect(summary.Results[1].Kind).To(Equal("internal"))
			Expect(summary.Results[1].Err).To(HaveOccurred())

			Expect(store.Written()).To(HaveLen(2))
		})

		It("classifies provider error kinds", func() {
			provider.EmbedErr = llm.ErrRateLimited
			p := newPipeline(50, 0)

			summary, err := p.Run(ctx, []corpus.Document{corpus.NewDocument("a.md", "alpha")})
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Results[0].Status).To(Equal(StatusFailed))
			Expect(summary.Results[0].Stage).To(Equal(StageEmbed))
			Expect(summary.Results[0].Kind).To(Equal("rate_limited"))
		})

		It("records index write failures", func() {
			store.WriteErr = errors.New("disk full")
			p := newPipeline(50, 0)

			summary, err := p.Run(ctx, []corpus.Document{corpus.NewDocument("a.md", "alpha")})
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Failed).To(Equal(1))
			Expect(summary.Results[0].Stage).To(Equal(StageWrite))
			Expect(summary.Results[0].Kind).To(Equal("internal"))
		})

		It("finishes in-flight documents and skips the rest on cancellation", func() {
			runCtx, cancel := context.WithCancel(context.Background())
			defer cancel()

			wrapped := &cancelingProvider{MockProvider: provider, cancel: cancel}
			p, err := NewPipeline(&Config{
				Provider:   wrapped,
				Store:      store,
				Chunker:    newTestChunker(50),
				Publisher:  publisher,
				NumWorkers: 1,
				QueueSize:  1,
			})
			Expect(err).NotTo(HaveOccurred())

			docs := []corpus.Document{
				corpus.NewDocument("a.md", "first doc"),
				corpus.NewDocument("b.md", "second doc"),
				corpus.NewDocument("c.md", "third doc"),
			}

			summary, err := p.Run(runCtx, docs)
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Indexed).To(Equal(1))
			Expect(summary.Skipped).To(Equal(2))
			Expect(summary.Failed).To(BeZero())

			Expect(summary.Results[0].Status).To(Equal(StatusIndexed))
			Expect(summary.Results[1].Status).To(Equal(StatusSkipped))
			Expect(summary.Results[2].Status).To(Equal(StatusSkipped))

			Expect(store.Written()).To(HaveLen(1))
			Expect(publisher.DocumentEvents()).To(HaveLen(3))
		})

		It("publishes lifecycle events", func() {
			p := newPipeline(50, 0)
			docs := []corpus.Document{
				corpus.NewDocument("a.md", "alpha beta"),
				corpus.NewDocument("b.md", "gamma delta"),
			}

			summary, err := p.Run(ctx, docs)
			Expect(err).NotTo(HaveOccurred())

			events := publisher.DocumentEvents()
			Expect(events).To(HaveLen(2))

			var ids []string
			for _, e := range events {
				Expect(e.SchemaVersion).To(Equal(1))
				Expect(e.EventType).To(Equal("folio.document.indexed"))
				Expect(e.EventID).To(HavePrefix("evt_"))
				Expect(e.BatchID).To(Equal(summary.BatchID))
				Expect(e.Status).To(Equal(StatusIndexed))
				Expect(e.Chunks).To(Equal(1))
				Expect(e.EmittedAt.IsZero()).To(BeFalse())
				ids = append(ids, e.DocumentID)
			}
			Expect(ids).To(ConsistOf(docs[0].ID, docs[1].ID))
			Expect(events[0].EventID).NotTo(Equal(events[1].EventID))

			completed := publisher.CompletedEvents()
			Expect(completed).To(HaveLen(1))
			Expect(completed[0].EventType).To(Equal("folio.ingestion.completed"))
			Expect(completed[0].BatchID).To(Equal(summary.BatchID))
			Expect(completed[0].Documents).To(Equal(2))
			Expect(completed[0].Indexed).To(Equal(2))
			Expect(completed[0].Chunks).To(Equal(2))
			Expect(completed[0].DurationMs).To(BeNumerically(">=", 0))
		})

		It("tolerates publish failures", func() {
			publisher.PublishErr = errors.New("broker down")
			p := newPipeline(50, 0)

			summary, err := p.Run(ctx, []corpus.Document{corpus.NewDocument("a.md", "alpha")})
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Indexed).To(Equal(1))
			Expect(store.Written()).To(HaveLen(1))
		})

		It("handles an empty batch", func() {
			p := newPipeline(50, 0)

			summary, err := p.Run(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Documents).To(BeZero())
			Expect(publisher.CompletedEvents()).To(HaveLen(1))
		})

		It("indexes empty documents without writes", func() {
			p := newPipeline(50, 0)

			summary, err := p.Run(ctx, []corpus.Document{corpus.NewDocument("empty.md", "")})
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Indexed).To(Equal(1))
			Expect(summary.Chunks).To(BeZero())
			Expect(store.Written()).To(BeEmpty())
		})
	})
})

var _ = Describe("ErrorKind", func() {
	It("classifies wrapped sentinels", func() {
		Expect(ErrorKind(llm.ErrRateLimited)).To(Equal("rate_limited"))
		Expect(ErrorKind(llm.ErrTimeout)).To(Equal("timeout"))
		Expect(ErrorKind(llm.ErrUnavailable)).To(Equal("unavailable"))
		Expect(ErrorKind(vector.ErrDimensionMismatch)).To(Equal("dimension_mismatch"))
		Expect(ErrorKind(context.Canceled)).To(Equal("canceled"))

		wrapped := errors.Join(errors.New("embed call"), llm.ErrTimeout)
		Expect(ErrorKind(wrapped)).To(Equal("timeout"))

		Expect(ErrorKind(errors.New("boom"))).To(Equal("internal"))
	})
})
