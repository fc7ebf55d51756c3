package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	apisearch "github.com/foliodocs/folio/api/search"
	"github.com/foliodocs/folio/pkg/llm"
	testutils "github.com/foliodocs/folio/pkg/utils/test"
	"github.com/foliodocs/folio/pkg/vector"
)

var _ = Describe("handleSearch", func() {
	var (
		server   *Server
		provider *testutils.MockProvider
		store    *testutils.MockStore
	)

	BeforeEach(func() {
		provider = testutils.NewMockProvider()
		store = testutils.NewMockStore()

		var err error
		server, err = NewServer(
			Config{ListenAddr: ":0", Provider: provider},
			store,
			zap.NewNop(),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("when no provider is configured", func() {
		It("returns 503", func() {
			noProvider, err := NewServer(Config{ListenAddr: ":0"}, store, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := noProvider.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})
	})

	Context("when the query parameter is missing", func() {
		It("returns 400", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("query parameter is required"))
		})
	})

	Context("when top_k is not a positive integer", func() {
		It("returns 400", func() {
			for _, topK := range []string{"abc", "0", "-3"} {
				req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test&top_k="+topK, nil)
				Expect(err).NotTo(HaveOccurred())

				resp, err := server.app.Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			}
		})
	})

	Context("when the index has matches", func() {
		BeforeEach(func() {
			store.QueryResults = []vector.Match{
				{
					Entry: vector.Entry{
						DocumentID: "doc-a",
						Ordinal:    2,
						Source:     "guides/setup.md",
						Text:       "Install with the installer.",
						Context:    "Setup section.",
					},
					Score: 0.91,
				},
				{
					Entry: vector.Entry{
						DocumentID: "doc-b",
						Ordinal:    0,
						Source:     "faq.md",
						Text:       "The installer needs Go.",
					},
					Score: 0.84,
				},
			}
		})

		It("returns the matches", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=install", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var output apisearch.Output
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &output)).To(Succeed())

			Expect(output.Query).To(Equal("install"))
			Expect(output.Count).To(Equal(2))
			Expect(output.Results[0].Document).To(Equal("doc-a"))
			Expect(output.Results[0].Ordinal).To(Equal(2))
			Expect(output.Results[0].Source).To(Equal("guides/setup.md"))
			Expect(output.Results[0].Context).To(Equal("Setup section."))
			Expect(output.Results[1].Document).To(Equal("doc-b"))
		})

		It("caps results at top_k", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=install&top_k=1", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var output apisearch.Output
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &output)).To(Succeed())
			Expect(output.Count).To(Equal(1))
		})
	})

	Context("when embedding fails", func() {
		It("returns 502", func() {
			provider.EmbedErr = llm.ErrUnavailable

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("failed to embed query"))
		})
	})
})
