package searchcmder_test

import (
	"bytes"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	searchcmder "github.com/papercomputeco/raggadon/cmd/raggadon/search"
	"github.com/papercomputeco/raggadon/pkg/memory"
	"github.com/papercomputeco/raggadon/pkg/service"
	testutils "github.com/papercomputeco/raggadon/pkg/utils/test"
)

var _ = Describe("search command", func() {
	var (
		tmpDir string
		srv    *testutils.FakeServer
		out    *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := searchcmder.NewSearchCmd()
		cmd.Flags().String("config-dir", tmpDir, "")
		cmd.SetArgs(append([]string{"--api-target", srv.URL, "--project", "billing"}, args...))
		cmd.SetOut(out)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "search-cmd-test-*")
		Expect(err).NotTo(HaveOccurred())

		srv = testutils.NewFakeServer()
		srv.SearchResult = service.SearchResult{
			Results: []memory.Match{
				{Entry: memory.Entry{ID: "1", Project: "billing", Role: "user", Content: "webhooks retry\nthree times", CreatedAt: time.Now()}, Similarity: 0.93},
				{Entry: memory.Entry{ID: "2", Project: "billing", Role: "assistant", Content: "invoices are monthly", CreatedAt: time.Now()}, Similarity: 0.61},
			},
			TokensUsed:   4,
			MonthlyUsage: 120,
		}
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		srv.Close()
		os.RemoveAll(tmpDir)
	})

	It("prints ranked matches", func() {
		Expect(run("webhook", "retries")).To(Succeed())

		Expect(srv.Searches).To(HaveLen(1))
		Expect(srv.Searches[0].Query).To(Equal("webhook retries"))
		Expect(out.String()).To(ContainSubstring("0.9300"))
		Expect(out.String()).To(ContainSubstring("invoices are monthly"))
	})

	It("prints one line per match with --quiet", func() {
		Expect(run("--quiet", "webhook")).To(Succeed())
		Expect(out.String()).To(Equal("webhooks retry three times\ninvoices are monthly\n"))
	})

	It("reports when nothing matches", func() {
		srv.SearchResult = service.SearchResult{Results: []memory.Match{}}
		Expect(run("nothing")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No matching memories."))
	})

	It("rejects a non-positive limit", func() {
		Expect(run("--limit", "0", "webhook")).To(MatchError(ContainSubstring("--limit")))
		Expect(srv.Searches).To(BeEmpty())
	})
})
