package savecmder_test

import (
	"bytes"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	savecmder "github.com/papercomputeco/raggadon/cmd/raggadon/save"
	"github.com/papercomputeco/raggadon/pkg/dotdir"
	"github.com/papercomputeco/raggadon/pkg/service"
	testutils "github.com/papercomputeco/raggadon/pkg/utils/test"
)

var _ = Describe("save command", func() {
	var (
		tmpDir string
		srv    *testutils.FakeServer
		out    *bytes.Buffer
	)

	run := func(stdin string, args ...string) error {
		cmd := savecmder.NewSaveCmd()
		cmd.Flags().String("config-dir", tmpDir, "")
		cmd.SetArgs(append([]string{"--api-target", srv.URL, "--project", "billing"}, args...))
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(out)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "save-cmd-test-*")
		Expect(err).NotTo(HaveOccurred())

		srv = testutils.NewFakeServer()
		srv.SaveResult = service.SaveResult{Success: true, TokensUsed: 12, MonthlyUsage: 340, EstimatedCostUSD: 0.0000068}
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		srv.Close()
		os.RemoveAll(tmpDir)
	})

	It("saves the joined arguments and reports usage", func() {
		Expect(run("", "webhooks", "retry", "three", "times")).To(Succeed())

		Expect(srv.Saves).To(HaveLen(1))
		Expect(srv.Saves[0]).To(Equal(service.SaveRequest{
			Project: "billing",
			Role:    "user",
			Content: "webhooks retry three times",
		}))
		Expect(out.String()).To(ContainSubstring("340"))
	})

	It("passes the role through", func() {
		Expect(run("", "--role", "assistant", "noted")).To(Succeed())
		Expect(srv.Saves[0].Role).To(Equal("assistant"))
	})

	It("prints nothing in silent mode", func() {
		Expect(dotdir.NewManager().SaveMode(dotdir.ModeSilent, tmpDir)).To(Succeed())

		Expect(run("", "quiet fact")).To(Succeed())
		Expect(srv.Saves).To(HaveLen(1))
		Expect(out.String()).To(BeEmpty())
	})

	Context("in ask mode", func() {
		BeforeEach(func() {
			Expect(dotdir.NewManager().SaveMode(dotdir.ModeAsk, tmpDir)).To(Succeed())
		})

		It("saves after confirmation", func() {
			Expect(run("y\n", "confirmed fact")).To(Succeed())
			Expect(srv.Saves).To(HaveLen(1))
		})

		It("does not save when declined", func() {
			Expect(run("n\n", "declined fact")).To(Succeed())
			Expect(srv.Saves).To(BeEmpty())
			Expect(out.String()).To(ContainSubstring("Not saved."))
		})

		It("skips the question with --yes", func() {
			Expect(run("", "--yes", "forced fact")).To(Succeed())
			Expect(srv.Saves).To(HaveLen(1))
		})
	})

	It("requires content", func() {
		cmd := savecmder.NewSaveCmd()
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(HaveOccurred())
	})
})
