package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/agent"
	"github.com/foliodocs/folio/pkg/llm"
	testutils "github.com/foliodocs/folio/pkg/utils/test"
	"github.com/foliodocs/folio/pkg/vector"
)

func askRequest(body AskRequest) *http.Request {
	data, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())

	req, err := http.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(data))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	return req
}

var _ = Describe("handleAsk", func() {
	var (
		server   *Server
		provider *testutils.MockProvider
		store    *testutils.MockStore
		sessions *testutils.MockMemoryDriver
	)

	BeforeEach(func() {
		provider = testutils.NewMockProvider()
		store = testutils.NewMockStore()
		sessions = testutils.NewMockMemoryDriver()

		store.QueryResults = []vector.Match{
			{
				Entry: vector.Entry{
					DocumentID: "doc-a",
					Source:     "guides/setup.md",
					Text:       "Install with the installer.",
				},
				Score: 0.9,
			},
		}
		provider.CompleteText = "According to guides/setup.md, use the installer."

		orchestrator, err := agent.NewOrchestrator(&agent.Config{
			Provider: provider,
			Store:    store,
			Backoff:  time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(
			Config{
				ListenAddr:   ":0",
				Provider:     provider,
				Orchestrator: orchestrator,
				Sessions:     sessions,
			},
			store,
			zap.NewNop(),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("when no orchestrator is configured", func() {
		It("returns 503", func() {
			unconfigured, err := NewServer(Config{ListenAddr: ":0"}, store, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			resp, err := unconfigured.app.Test(askRequest(AskRequest{Question: "how?"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})
	})

	Context("when the body is not JSON", func() {
		It("returns 400", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader([]byte("not json")))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Context("when the question is empty", func() {
		It("returns 400", func() {
			resp, err := server.app.Test(askRequest(AskRequest{Question: "   "}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("question is required"))
		})
	})

	Context("with a valid question", func() {
		It("answers with citations and a new session", func() {
			resp, err := server.app.Test(askRequest(AskRequest{Question: "how do I install?"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var reply AskResponse
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &reply)).To(Succeed())

			Expect(reply.Answer).To(Equal("According to guides/setup.md, use the installer."))
			Expect(reply.Citations).To(HaveLen(1))
			Expect(reply.Citations[0].Source).To(Equal("guides/setup.md"))
			Expect(reply.SessionID).NotTo(BeEmpty())

			history, err := sessions.History(context.Background(), reply.SessionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[0].Role).To(Equal("user"))
			Expect(history[0].Content).To(Equal("how do I install?"))
			Expect(history[1].Role).To(Equal("assistant"))
			Expect(history[1].Content).To(Equal(reply.Answer))
		})

		It("continues an existing session with conversational context", func() {
			first, err := server.app.Test(askRequest(AskRequest{Question: "what is folio?"}))
			Expect(err).NotTo(HaveOccurred())

			var firstReply AskResponse
			body, err := io.ReadAll(first.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &firstReply)).To(Succeed())

			second, err := server.app.Test(askRequest(AskRequest{
				Question:  "how do I install it?",
				SessionID: firstReply.SessionID,
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(second.StatusCode).To(Equal(fiber.StatusOK))

			var secondReply AskResponse
			body, err = io.ReadAll(second.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &secondReply)).To(Succeed())
			Expect(secondReply.SessionID).To(Equal(firstReply.SessionID))

			history, err := sessions.History(context.Background(), firstReply.SessionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(4))

			prompts := provider.Prompts()
			Expect(prompts).To(HaveLen(2))
			Expect(prompts[0]).NotTo(ContainSubstring("Previous conversation context:"))
			Expect(prompts[1]).To(ContainSubstring("Previous conversation context:"))
			Expect(prompts[1]).To(ContainSubstring("Current question: how do I install it?"))
		})

		It("answers without sessions when memory is not configured", func() {
			orchestrator, err := agent.NewOrchestrator(&agent.Config{
				Provider: provider,
				Store:    store,
				Backoff:  time.Millisecond,
			})
			Expect(err).NotTo(HaveOccurred())

			memoryless, err := NewServer(
				Config{ListenAddr: ":0", Provider: provider, Orchestrator: orchestrator},
				store,
				zap.NewNop(),
			)
			Expect(err).NotTo(HaveOccurred())

			resp, err := memoryless.app.Test(askRequest(AskRequest{Question: "how?"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var reply AskResponse
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &reply)).To(Succeed())
			Expect(reply.SessionID).To(BeEmpty())
		})

		It("returns empty citations as an array", func() {
			store.QueryResults = nil

			resp, err := server.app.Test(askRequest(AskRequest{Question: "how?"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring(`"citations":[]`))
		})
	})

	Context("when retrieval fails", func() {
		It("returns 502 naming the stage", func() {
			provider.EmbedErr = llm.ErrUnavailable

			resp, err := server.app.Test(askRequest(AskRequest{Question: "how?"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("retrieval failed"))
		})
	})

	Context("when synthesis fails", func() {
		It("returns 502 naming the stage", func() {
			provider.CompleteErrs = []error{llm.ErrUnavailable}

			resp, err := server.app.Test(askRequest(AskRequest{Question: "how?"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("synthesis failed"))
		})
	})
})
