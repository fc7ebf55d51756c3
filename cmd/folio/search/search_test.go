package searchcmder_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apisearch "github.com/foliodocs/folio/api/search"
	searchcmder "github.com/foliodocs/folio/cmd/folio/search"
)

var _ = Describe("NewSearchCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := searchcmder.NewSearchCmd()
		Expect(cmd.Use).To(Equal("search <query>"))
		Expect(cmd.Short).NotTo(BeEmpty())
	})

	It("requires exactly one argument", func() {
		cmd := searchcmder.NewSearchCmd()
		Expect(cmd.Args(cmd, []string{})).To(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"query"})).NotTo(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"two", "queries"})).To(HaveOccurred())
	})

	It("has a --top flag with shorthand k", func() {
		cmd := searchcmder.NewSearchCmd()
		f := cmd.Flags().Lookup("top")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("k"))
		Expect(f.DefValue).To(Equal("5"))
	})

	It("has an --api-target flag defaulting to the local server", func() {
		cmd := searchcmder.NewSearchCmd()
		f := cmd.Flags().Lookup("api-target")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("http://localhost:8080"))
	})
})

var _ = Describe("SearchAPI", func() {
	It("parses results from the server", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/search"))
			Expect(r.URL.Query().Get("query")).To(Equal("token budget"))
			Expect(r.URL.Query().Get("top_k")).To(Equal("3"))

			out := apisearch.Output{
				Query: "token budget",
				Results: []apisearch.Result{
					{
						Document: "doc-1",
						Ordinal:  2,
						Source:   "guides/chunking.md",
						Score:    0.91,
						Context:  "Discusses chunk sizing.",
						Text:     "The token budget caps each chunk.",
					},
				},
				Count: 1,
			}
			w.Header().Set("Content-Type", "application/json")
			Expect(json.NewEncoder(w).Encode(out)).To(Succeed())
		}))
		defer server.Close()

		output, err := searchcmder.SearchAPI(server.URL, "token budget", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(output.Count).To(Equal(1))
		Expect(output.Results).To(HaveLen(1))
		Expect(output.Results[0].Source).To(Equal("guides/chunking.md"))
		Expect(output.Results[0].Ordinal).To(Equal(2))
	})

	It("returns an error for non-200 responses", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"search not configured"}`))
		}))
		defer server.Close()

		_, err := searchcmder.SearchAPI(server.URL, "query", 5)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("HTTP 503"))
	})

	It("returns an error when the server is unreachable", func() {
		_, err := searchcmder.SearchAPI("http://127.0.0.1:1", "query", 5)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("failed to connect"))
	})

	It("returns an error for malformed response bodies", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		_, err := searchcmder.SearchAPI(server.URL, "query", 5)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("parse"))
	})
})
