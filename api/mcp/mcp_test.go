package mcp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/raggadon/api/mcp"
	"github.com/papercomputeco/raggadon/pkg/logger"
	"github.com/papercomputeco/raggadon/pkg/service"
	testutils "github.com/papercomputeco/raggadon/pkg/utils/test"
)

var _ = Describe("MCP Server", func() {
	var svc *service.Service

	BeforeEach(func() {
		var err error
		svc, err = service.New(service.Config{
			Embedder: testutils.NewMockProvider(),
			Store:    testutils.NewMockStore(),
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when the service is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("memory service is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Service: svc})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("creates a server with an HTTP handler", func() {
			server, err := mcp.NewServer(mcp.Config{Service: svc, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})

		It("creates an empty server in noop mode", func() {
			server, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})
	})
})
