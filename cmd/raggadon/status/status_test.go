package statuscmder_test

import (
	"bytes"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	statuscmder "github.com/papercomputeco/raggadon/cmd/raggadon/status"
	"github.com/papercomputeco/raggadon/pkg/service"
	"github.com/papercomputeco/raggadon/pkg/usage"
	testutils "github.com/papercomputeco/raggadon/pkg/utils/test"
)

var _ = Describe("status command", func() {
	var (
		tmpDir string
		srv    *testutils.FakeServer
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "status-cmd-test-*")
		Expect(err).NotTo(HaveOccurred())

		srv = testutils.NewFakeServer()
		srv.StatsResult = service.StatsResult{
			Project:       "billing",
			TotalMemories: 17,
			MonthlyTokens: 2048,
			Model:         "text-embedding-3-small",
		}
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		srv.Close()
		os.RemoveAll(tmpDir)
	})

	It("prints the project's stats", func() {
		cmd := statuscmder.NewStatusCmd()
		cmd.Flags().String("config-dir", tmpDir, "")
		cmd.SetArgs([]string{"--api-target", srv.URL, "--project", "billing"})
		cmd.SetOut(out)
		Expect(cmd.Execute()).To(Succeed())

		Expect(srv.Stats).To(Equal([]string{"billing"}))
		Expect(out.String()).To(ContainSubstring("17"))
		Expect(out.String()).To(ContainSubstring("2048"))
		Expect(out.String()).To(ContainSubstring("text-embedding-3-small"))
		Expect(out.String()).To(ContainSubstring("No recent activity."))
	})

	It("renders recent activity as a table", func() {
		stats := &service.StatsResult{RecentActivities: []usage.Activity{
			{Type: usage.TypeSearch, Tokens: 9, CreatedAt: time.Now()},
			{Type: usage.TypeSave, Tokens: 30, CreatedAt: time.Now()},
		}}

		table := statuscmder.ActivityTable(stats)
		Expect(table).To(ContainSubstring("| search | 9 |"))
		Expect(table).To(ContainSubstring("| save | 30 |"))
	})
})
