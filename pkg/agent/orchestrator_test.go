package agent

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliodocs/folio/pkg/llm"
	"github.com/foliodocs/folio/pkg/memory"
	testutils "github.com/foliodocs/folio/pkg/utils/test"
	"github.com/foliodocs/folio/pkg/vector"
)

func match(docID, source, text, chunkContext string, ordinal int, score float32) vector.Match {
	return vector.Match{
		Entry: vector.Entry{
			DocumentID: docID,
			Ordinal:    ordinal,
			Source:     source,
			Text:       text,
			Context:    chunkContext,
		},
		Score: score,
	}
}

var _ = Describe("NewOrchestrator", func() {
	It("requires a provider and a store", func() {
		_, err := NewOrchestrator(nil)
		Expect(err).To(HaveOccurred())

		_, err = NewOrchestrator(&Config{Store: testutils.NewMockStore()})
		Expect(err).To(MatchError(ContainSubstring("provider")))

		_, err = NewOrchestrator(&Config{Provider: testutils.NewMockProvider()})
		Expect(err).To(MatchError(ContainSubstring("vector store")))
	})

	It("applies defaults", func() {
		c := &Config{
			Provider: testutils.NewMockProvider(),
			Store:    testutils.NewMockStore(),
		}

		_, err := NewOrchestrator(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.TopK).To(Equal(5))
		Expect(c.Temperature).To(Equal(0.2))
		Expect(c.MaxTokens).To(Equal(1024))
		Expect(c.Backoff).To(Equal(500 * time.Millisecond))
	})
})

var _ = Describe("Orchestrator", func() {
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

	newOrchestrator := func() *Orchestrator {
		o, err := NewOrchestrator(&Config{
			Provider: provider,
			Store:    store,
			Backoff:  time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())
		return o
	}

	Describe("Ask", func() {
		It("rejects empty questions", func() {
			o := newOrchestrator()

			_, err := o.Ask(ctx, "   ", AskOptions{})
			Expect(err).To(MatchError(ContainSubstring("question is required")))
			Expect(provider.EmbedCalls()).To(BeZero())
		})

		It("answers from retrieved evidence", func() {
			store.QueryResults = []vector.Match{
				match("doc-a", "guides/setup.md", "Install with the installer.", "Setup section.", 2, 0.92),
				match("doc-b", "faq.md", "The installer needs Go 1.22.", "", 0, 0.85),
				match("doc-a", "guides/setup.md", "Run folio init after install.", "Init section.", 3, 0.80),
			}
			provider.CompleteText = "According to guides/setup.md, install with the installer."
			o := newOrchestrator()

			answer, err := o.Ask(ctx, "how do I install folio?", AskOptions{})
			Expect(err).NotTo(HaveOccurred())

			Expect(answer.Text).To(Equal("According to guides/setup.md, install with the installer."))

			Expect(answer.Citations).To(HaveLen(2))
			Expect(answer.Citations[0]).To(Equal(Citation{Document: "doc-a", Source: "guides/setup.md", ChunkOrdinal: 2}))
			Expect(answer.Citations[1]).To(Equal(Citation{Document: "doc-b", Source: "faq.md", ChunkOrdinal: 0}))

			Expect(answer.Trace).To(HaveLen(3))
			Expect(answer.Trace[0].Role).To(Equal(RoleTask))
			Expect(answer.Trace[0].Content).To(ContainSubstring("how do I install folio?"))
			Expect(answer.Trace[1].Role).To(Equal(RoleTool))
			Expect(answer.Trace[1].Content).To(ContainSubstring("--- Chunk 1 ---"))
			Expect(answer.Trace[2].Role).To(Equal(RoleAssistant))
			Expect(answer.Trace[2].Content).To(Equal(answer.Text))
		})

		It("hands the evidence and question to synthesis", func() {
			store.QueryResults = []vector.Match{
				match("doc-a", "guides/setup.md", "Install with the installer.", "Setup section.", 0, 0.9),
			}
			o := newOrchestrator()

			_, err := o.Ask(ctx, "how do I install?", AskOptions{})
			Expect(err).NotTo(HaveOccurred())

			prompts := provider.Prompts()
			Expect(prompts).To(HaveLen(1))
			Expect(prompts[0]).To(HavePrefix("Context:\n--- Chunk 1 ---"))
			Expect(prompts[0]).To(ContainSubstring("Install with the installer."))
			Expect(prompts[0]).To(ContainSubstring("Question: how do I install?"))

			opts := provider.Options()
			Expect(opts).To(HaveLen(1))
			Expect(opts[0].System).To(ContainSubstring("Use ONLY the provided context"))
			Expect(opts[0].System).To(ContainSubstring(`"According to <source>, ..."`))
			Expect(opts[0].Temperature).To(Equal(0.2))
			Expect(opts[0].MaxTokens).To(Equal(1024))
		})

		It("caps retrieval at the requested top-k", func() {
			store.QueryResults = []vector.Match{
				match("doc-a", "a.md", "first", "", 0, 0.9),
				match("doc-b", "b.md", "second", "", 0, 0.8),
				match("doc-c", "c.md", "third", "", 0, 0.7),
			}
			o := newOrchestrator()

			answer, err := o.Ask(ctx, "question?", AskOptions{TopK: 2})
			Expect(err).NotTo(HaveOccurred())

			Expect(answer.Trace[1].Content).To(ContainSubstring("--- Chunk 2 ---"))
			Expect(answer.Trace[1].Content).NotTo(ContainSubstring("--- Chunk 3 ---"))
			Expect(answer.Citations).To(HaveLen(2))
		})

		It("synthesizes without citations on empty retrieval", func() {
			provider.CompleteText = "The indexed documents contain no relevant material; generally, use the package manager."
			o := newOrchestrator()

			answer, err := o.Ask(ctx, "how do I install?", AskOptions{})
			Expect(err).NotTo(HaveOccurred())

			Expect(answer.Citations).To(BeEmpty())
			Expect(answer.Trace[1].Content).To(Equal("No relevant documents found for this query."))

			Expect(provider.CompleteCalls()).To(Equal(1))
			prompts := provider.Prompts()
			Expect(prompts[0]).To(Equal("Question: how do I install?"))

			opts := provider.Options()
			Expect(opts[0].System).To(ContainSubstring("no relevant material"))
			Expect(opts[0].System).To(ContainSubstring("Do not cite any sources"))
		})

		It("wraps embedding failures in ErrRetrievalFailed", func() {
			provider.EmbedErr = llm.ErrUnavailable
			o := newOrchestrator()

			_, err := o.Ask(ctx, "question?", AskOptions{})
			Expect(err).To(MatchError(ErrRetrievalFailed))
			Expect(err).To(MatchError(llm.ErrUnavailable))
			Expect(provider.CompleteCalls()).To(BeZero())
		})

		It("wraps index failures in ErrRetrievalFailed", func() {
			store.QueryErr = vector.ErrDimensionMismatch
			o := newOrchestrator()

			_, err := o.Ask(ctx, "question?", AskOptions{})
			Expect(err).To(MatchError(ErrRetrievalFailed))
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("retries synthesis once on retryable failures", func() {
			store.QueryResults = []vector.Match{match("doc-a", "a.md", "text", "", 0, 0.9)}
			provider.CompleteErrs = []error{llm.ErrRateLimited}
			provider.CompleteText = "Recovered answer."
			o := newOrchestrator()

			answer, err := o.Ask(ctx, "question?", AskOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(answer.Text).To(Equal("Recovered answer."))
			Expect(provider.CompleteCalls()).To(Equal(2))
		})

		It("fails with ErrSynthesisFailed after the retry", func() {
			store.QueryResults = []vector.Match{match("doc-a", "a.md", "text", "", 0, 0.9)}
			provider.CompleteErrs = []error{llm.ErrRateLimited, llm.ErrRateLimited}
			o := newOrchestrator()

			_, err := o.Ask(ctx, "question?", AskOptions{})
			Expect(err).To(MatchError(ErrSynthesisFailed))
			Expect(err).To(MatchError(llm.ErrRateLimited))
			Expect(provider.CompleteCalls()).To(Equal(2))
		})

		It("does not retry unavailable backends", func() {
			store.QueryResults = []vector.Match{match("doc-a", "a.md", "text", "", 0, 0.9)}
			provider.CompleteErrs = []error{llm.ErrUnavailable}
			o := newOrchestrator()

			_, err := o.Ask(ctx, "question?", AskOptions{})
			Expect(err).To(MatchError(ErrSynthesisFailed))
			Expect(provider.CompleteCalls()).To(Equal(1))
		})

		It("enhances the query with session history", func() {
			store.QueryResults = []vector.Match{match("doc-a", "a.md", "text", "", 0, 0.9)}
			o := newOrchestrator()

			history := []memory.Message{
				{Role: "user", Content: "what is folio?"},
				{Role: "assistant", Content: "folio indexes local documents."},
			}

			answer, err := o.Ask(ctx, "how do I install it?", AskOptions{History: history})
			Expect(err).NotTo(HaveOccurred())

			Expect(answer.Trace[0].Content).To(ContainSubstring("Previous conversation context:"))
			Expect(answer.Trace[0].Content).To(ContainSubstring("what is folio?"))

			prompts := provider.Prompts()
			Expect(prompts[0]).To(ContainSubstring("Previous conversation context:"))
			Expect(prompts[0]).To(ContainSubstring("Current question: how do I install it?"))

			opts := provider.Options()
			Expect(opts[0].System).To(ContainSubstring("ongoing conversation"))
		})

		It("leaves single-turn questions unenhanced", func() {
			store.QueryResults = []vector.Match{match("doc-a", "a.md", "text", "", 0, 0.9)}
			o := newOrchestrator()

			history := []memory.Message{{Role: "user", Content: "what is folio?"}}

			answer, err := o.Ask(ctx, "how do I install it?", AskOptions{History: history})
			Expect(err).NotTo(HaveOccurred())
			Expect(answer.Trace[0].Content).NotTo(ContainSubstring("Previous conversation context:"))

			opts := provider.Options()
			Expect(opts[0].System).NotTo(ContainSubstring("ongoing conversation"))
		})

		It("trims whitespace from synthesized answers", func() {
			store.QueryResults = []vector.Match{match("doc-a", "a.md", "text", "", 0, 0.9)}
			provider.CompleteText = "  The answer.\n"
			o := newOrchestrator()

			answer, err := o.Ask(ctx, "question?", AskOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(answer.Text).To(Equal("The answer."))
		})
	})
})

var _ = Describe("evidenceBlock", func() {
	It("formats chunks with source, context, and content", func() {
		matches := []vector.Match{
			match("doc-a", "guides/setup.md", "Install with the installer.", "Setup section.", 2, 0.92),
			match("doc-b", "faq.md", "The installer needs Go.", "", 0, 0.85),
		}

		Expect(evidenceBlock(matches)).To(Equal(
			"--- Chunk 1 ---\n" +
				"Source: guides/setup.md\n" +
				"Context: Setup section.\n" +
				"Content: Install with the installer.\n" +
				"\n" +
				"--- Chunk 2 ---\n" +
				"Source: faq.md\n" +
				"Content: The installer needs Go.\n"))
	})

	It("reports empty retrievals", func() {
		Expect(evidenceBlock(nil)).To(Equal("No relevant documents found for this query."))
	})
})
