package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/raggadon/pkg/embeddings"
	"github.com/papercomputeco/raggadon/pkg/embeddings/openai"
)

type capturedRequest struct {
	Input          any    `json:"input"`
	Model          string `json:"model"`
	EncodingFormat string `json:"encoding_format"`
	Dimensions     int    `json:"dimensions"`
}

func embeddingResponse(w http.ResponseWriter, tokens int, vectors ...[]float64) {
	data := make([]map[string]any, 0, len(vectors))
	// reversed so the provider has to reorder by index
	for i := len(vectors) - 1; i >= 0; i-- {
		data = append(data, map[string]any{
			"object":    "embedding",
			"index":     i,
			"embedding": vectors[i],
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  "text-embedding-3-small",
		"usage": map[string]any{
			"prompt_tokens": tokens,
			"total_tokens":  tokens,
		},
	})
}

var _ = Describe("Provider", func() {
	var (
		server   *httptest.Server
		captured capturedRequest
		calls    int
		provider *openai.Provider
		ctx      context.Context
	)

	newProvider := func() {
		var err error
		provider, err = openai.NewProvider(openai.ProviderConfig{
			APIKey:  "sk-test",
			BaseURL: server.URL + "/v1",
		})
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		calls = 0
		captured = capturedRequest{}
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	Describe("NewProvider", func() {
		It("requires an api key", func() {
			_, err := openai.NewProvider(openai.ProviderConfig{})
			Expect(err).To(MatchError(ContainSubstring("api key is required")))
		})

		It("defaults the model and dimensions", func() {
			p, err := openai.NewProvider(openai.ProviderConfig{APIKey: "sk-test"})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Model()).To(Equal("text-embedding-3-small"))
			Expect(p.Dimensions()).To(Equal(uint(1536)))
		})
	})

	Describe("Embed", func() {
		BeforeEach(func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				calls++
				Expect(r.URL.Path).To(Equal("/v1/embeddings"))
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
				Expect(json.NewDecoder(r.Body).Decode(&captured)).To(Succeed())
				embeddingResponse(w, 7, []float64{0.25, 0.5, 0.75})
			}))
			newProvider()
		})

		It("returns the vector and token count", func() {
			res, err := provider.Embed(ctx, "The database is PostgreSQL 14")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Vector).To(Equal([]float32{0.25, 0.5, 0.75}))
			Expect(res.Tokens).To(Equal(7))
			Expect(res.Model).To(Equal("text-embedding-3-small"))
		})

		It("normalizes line breaks before submission", func() {
			_, err := provider.Embed(ctx, "  first line\nsecond\rthird  ")
			Expect(err).NotTo(HaveOccurred())
			Expect(captured.Input).To(Equal("first line second third"))
			Expect(captured.Model).To(Equal("text-embedding-3-small"))
			Expect(captured.EncodingFormat).To(Equal("float"))
			Expect(captured.Dimensions).To(Equal(1536))
		})

		It("rejects blank input without calling the API", func() {
			_, err := provider.Embed(ctx, "   ")
			Expect(err).To(MatchError(embeddings.ErrInvalidInput))
			Expect(calls).To(Equal(0))
		})
	})

	Describe("Embed failures", func() {
		It("wraps provider errors as ErrEmbedding and does not retry", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			}))
			newProvider()

			_, err := provider.Embed(ctx, "hello")
			Expect(err).To(MatchError(embeddings.ErrEmbedding))
			Expect(calls).To(Equal(1))
		})
	})

	Describe("EmbedBatch", func() {
		BeforeEach(func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				calls++
				Expect(json.NewDecoder(r.Body).Decode(&captured)).To(Succeed())
				embeddingResponse(w, 12, []float64{1, 0}, []float64{0, 1})
			}))
			newProvider()
		})

		It("drops blank entries and keeps original positions", func() {
			res, err := provider.EmbedBatch(ctx, []string{"", "alpha", "  ", "beta\ngamma"})
			Expect(err).NotTo(HaveOccurred())
			Expect(captured.Input).To(Equal([]any{"alpha", "beta gamma"}))

			Expect(res.Items).To(HaveLen(2))
			Expect(res.Items[0].Index).To(Equal(1))
			Expect(res.Items[0].Text).To(Equal("alpha"))
			Expect(res.Items[0].Vector).To(Equal([]float32{1, 0}))
			Expect(res.Items[1].Index).To(Equal(3))
			Expect(res.Items[1].Vector).To(Equal([]float32{0, 1}))
		})

		It("reports the aggregate token figure once", func() {
			res, err := provider.EmbedBatch(ctx, []string{"alpha", "beta"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Tokens).To(Equal(12))
		})

		It("skips the API when every entry is blank", func() {
			res, err := provider.EmbedBatch(ctx, []string{"", " \n "})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Items).To(BeEmpty())
			Expect(calls).To(Equal(0))
		})
	})
})
