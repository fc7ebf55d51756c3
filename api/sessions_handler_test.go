package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/memory"
	testutils "github.com/foliodocs/folio/pkg/utils/test"
)

var _ = Describe("session endpoints", func() {
	var (
		server   *Server
		sessions *testutils.MockMemoryDriver
	)

	BeforeEach(func() {
		sessions = testutils.NewMockMemoryDriver()

		var err error
		server, err = NewServer(
			Config{ListenAddr: ":0", Sessions: sessions},
			testutils.NewMockStore(),
			zap.NewNop(),
		)
		Expect(err).NotTo(HaveOccurred())

		ctx := context.Background()
		Expect(sessions.Append(ctx, "s1", memory.Message{Role: "user", Content: "hello"})).To(Succeed())
		Expect(sessions.Append(ctx, "s1", memory.Message{Role: "assistant", Content: "hi"})).To(Succeed())
		Expect(sessions.Append(ctx, "s2", memory.Message{Role: "user", Content: "ping"})).To(Succeed())
	})

	Context("when memory is not configured", func() {
		It("returns 503 on every session route", func() {
			memoryless, err := NewServer(Config{ListenAddr: ":0"}, testutils.NewMockStore(), zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			for _, route := range []struct {
				method string
				path   string
			}{
				{http.MethodGet, "/v1/sessions"},
				{http.MethodGet, "/v1/sessions/s1"},
				{http.MethodDelete, "/v1/sessions/s1"},
			} {
				req, err := http.NewRequest(route.method, route.path, nil)
				Expect(err).NotTo(HaveOccurred())

				resp, err := memoryless.app.Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
			}
		})
	})

	It("lists stored sessions", func() {
		req, err := http.NewRequest(http.MethodGet, "/v1/sessions", nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		var reply struct {
			Count    int                  `json:"count"`
			Sessions []memory.SessionInfo `json:"sessions"`
		}
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, &reply)).To(Succeed())

		Expect(reply.Count).To(Equal(2))
		Expect(reply.Sessions[0].ID).To(Equal("s1"))
		Expect(reply.Sessions[0].Messages).To(Equal(2))
	})

	It("returns a session's messages", func() {
		req, err := http.NewRequest(http.MethodGet, "/v1/sessions/s1", nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		var reply SessionResponse
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, &reply)).To(Succeed())

		Expect(reply.SessionID).To(Equal("s1"))
		Expect(reply.Messages).To(HaveLen(2))
		Expect(reply.Messages[0].Content).To(Equal("hello"))
	})

	It("returns an empty history for unknown sessions", func() {
		req, err := http.NewRequest(http.MethodGet, "/v1/sessions/ghost", nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`"messages":[]`))
	})

	It("clears a session", func() {
		req, err := http.NewRequest(http.MethodDelete, "/v1/sessions/s1", nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		history, err := sessions.History(context.Background(), "s1")
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(BeEmpty())
	})
})
