package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/raggadon/pkg/logger"
	"github.com/papercomputeco/raggadon/pkg/service"
	testutils "github.com/papercomputeco/raggadon/pkg/utils/test"
)

func textOf(res *mcp.CallToolResult) string {
	Expect(res.Content).To(HaveLen(1))
	text, ok := res.Content[0].(*mcp.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("Memory tools", func() {
	var (
		server *Server
		store  *testutils.MockStore
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = testutils.NewMockStore()

		svc, err := service.New(service.Config{
			Embedder: testutils.NewMockProvider(),
			Store:    store,
			Ledger:   testutils.NewMockLedger(),
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{Service: svc, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	It("saves and finds a memory", func() {
		res, saved, err := server.handleSave(ctx, nil, SaveInput{Project: "demo", Content: "we deploy with nomad"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IsError).To(BeFalse())
		Expect(saved.ID).NotTo(BeEmpty())
		Expect(saved.TokensUsed).To(Equal(4))

		res, found, err := server.handleSearch(ctx, nil, SearchInput{Project: "demo", Query: "we deploy with nomad"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IsError).To(BeFalse())
		Expect(found.Count).To(Equal(1))
		Expect(found.Results[0].Content).To(Equal("we deploy with nomad"))

		var decoded SearchOutput
		Expect(json.Unmarshal([]byte(textOf(res)), &decoded)).To(Succeed())
		Expect(decoded.Results).To(HaveLen(1))
	})

	It("reports invalid input as a tool error", func() {
		res, _, err := server.handleSave(ctx, nil, SaveInput{Project: "demo", Content: "  "})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IsError).To(BeTrue())
		Expect(textOf(res)).To(ContainSubstring("Save failed"))
		Expect(store.SaveCalls).To(BeZero())
	})

	It("reports search failures as a tool error", func() {
		store.FailSearch = true
		res, _, err := server.handleSearch(ctx, nil, SearchInput{Project: "demo", Query: "x"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IsError).To(BeTrue())
	})

	It("returns project stats", func() {
		_, _, err := server.handleSave(ctx, nil, SaveInput{Project: "demo", Content: "one"})
		Expect(err).NotTo(HaveOccurred())

		res, stats, err := server.handleStats(ctx, nil, StatsInput{Project: "demo"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IsError).To(BeFalse())
		Expect(stats.TotalMemories).To(Equal(1))
		Expect(stats.FirstActivity).NotTo(BeEmpty())
		Expect(stats.Model).To(Equal("mock-embedding"))
	})

	It("leaves activity empty for an unknown project", func() {
		_, stats, err := server.handleStats(ctx, nil, StatsInput{Project: "nothing"})
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.FirstActivity).To(BeEmpty())
	})
})
