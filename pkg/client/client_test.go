package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/raggadon/pkg/client"
	"github.com/papercomputeco/raggadon/pkg/memory"
	"github.com/papercomputeco/raggadon/pkg/service"
)

var _ = Describe("Client", func() {
	var (
		srv     *httptest.Server
		c       *client.Client
		lastReq *http.Request
		lastRaw []byte
	)

	BeforeEach(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"healthy","service":"raggadon"}`))
		})
		mux.HandleFunc("/save", func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			lastReq = r
			var req service.SaveRequest
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			if req.Content == "" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"validate: content must not be empty"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(service.SaveResult{
				Success:      true,
				Message:      "content saved for project '" + req.Project + "'",
				TokensUsed:   7,
				MonthlyUsage: 7,
			})
		})
		mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
			lastReq = r
			_ = json.NewEncoder(w).Encode(service.SearchResult{
				Results: []memory.Match{{
					Entry:      memory.Entry{ID: "1", Project: "proj", Role: "user", Content: "docker compose"},
					Similarity: 0.91,
				}},
				TokensUsed: 3,
			})
		})
		mux.HandleFunc("/project/", func(w http.ResponseWriter, r *http.Request) {
			lastReq = r
			lastRaw = []byte(r.URL.EscapedPath())
			_ = json.NewEncoder(w).Encode(service.StatsResult{Project: "my proj", TotalMemories: 4})
		})
		srv = httptest.NewServer(mux)

		var err error
		c, err = client.New(srv.URL, 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		srv.Close()
	})

	It("rejects targets without a scheme", func() {
		_, err := client.New("localhost:8000", time.Second)
		Expect(err).To(MatchError(ContainSubstring("scheme and host are required")))
	})

	It("checks health", func() {
		Expect(c.Health(context.Background())).To(Succeed())
	})

	It("posts saves as JSON", func() {
		res, err := c.Save(context.Background(), service.SaveRequest{Project: "proj", Role: "user", Content: "hello"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Success).To(BeTrue())
		Expect(res.Message).To(Equal("content saved for project 'proj'"))
		Expect(lastReq.Header.Get("Content-Type")).To(Equal("application/json"))
		Expect(lastReq.Header.Get("User-Agent")).To(HavePrefix("raggadon/"))
	})

	It("surfaces the server's error message", func() {
		_, err := c.Save(context.Background(), service.SaveRequest{Project: "proj"})

		var apiErr *client.APIError
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(apiErr.Message).To(Equal("validate: content must not be empty"))
	})

	It("sends search parameters in the query string", func() {
		res, err := c.Search(context.Background(), service.SearchRequest{Project: "proj", Query: "docker", Limit: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Results).To(HaveLen(1))
		Expect(res.Results[0].Content).To(Equal("docker compose"))
		Expect(res.Results[0].Similarity).To(BeNumerically("~", 0.91, 1e-9))

		q := lastReq.URL.Query()
		Expect(q.Get("project")).To(Equal("proj"))
		Expect(q.Get("query")).To(Equal("docker"))
		Expect(q.Get("limit")).To(Equal("3"))
	})

	It("omits a zero limit", func() {
		_, err := c.Search(context.Background(), service.SearchRequest{Project: "proj", Query: "docker"})
		Expect(err).NotTo(HaveOccurred())
		Expect(lastReq.URL.Query().Has("limit")).To(BeFalse())
	})

	It("escapes project names in stats paths", func() {
		res, err := c.Stats(context.Background(), "my proj")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.TotalMemories).To(Equal(4))
		Expect(string(lastRaw)).To(Equal("/project/my%20proj/stats"))
	})

	It("wraps connection failures", func() {
		srv.Close()
		err := c.Health(context.Background())
		Expect(errors.Is(err, client.ErrUnreachable)).To(BeTrue())
	})
})

var _ = Describe("ProjectName", func() {
	It("prefers the override", func() {
		name, err := client.ProjectName("  billing  ")
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("billing"))
	})

	It("falls back to the working directory name", func() {
		tmpDir, err := os.MkdirTemp("", "acme-api-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { os.RemoveAll(tmpDir) })

		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(func() { os.Chdir(origDir) })

		name, err := client.ProjectName("")
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal(filepath.Base(tmpDir)))
	})
})
