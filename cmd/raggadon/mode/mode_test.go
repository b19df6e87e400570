package modecmder_test

import (
	"bytes"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	modecmder "github.com/papercomputeco/raggadon/cmd/raggadon/mode"
	"github.com/papercomputeco/raggadon/pkg/dotdir"
)

var _ = Describe("mode command", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := modecmder.NewModeCmd()
		cmd.Flags().String("config-dir", tmpDir, "")
		cmd.SetArgs(args)
		cmd.SetOut(out)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "mode-cmd-test-*")
		Expect(err).NotTo(HaveOccurred())
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("shows the default mode", func() {
		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("active"))
	})

	It("persists a new mode", func() {
		Expect(run("ask")).To(Succeed())

		mode, err := dotdir.NewManager().LoadMode(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(mode).To(Equal(dotdir.ModeAsk))

		out.Reset()
		Expect(run("show")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("ask"))
	})

	It("accepts the legacy verbose name as active", func() {
		Expect(run("verbose")).To(Succeed())

		mode, err := dotdir.NewManager().LoadMode(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(mode).To(Equal(dotdir.ModeActive))
	})

	It("rejects unknown modes", func() {
		Expect(run("loud")).To(MatchError(ContainSubstring("invalid mode")))
	})
})
