package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/raggadon/pkg/dotdir"
)

var _ = Describe("dotdir.Manager mode", func() {
	var (
		tmpDir string
		m      *dotdir.Manager
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "mode-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("defaults to active when no mode file exists", func() {
		mode, err := m.LoadMode(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(mode).To(Equal(dotdir.ModeActive))
	})

	It("round-trips a saved mode", func() {
		Expect(m.SaveMode(dotdir.ModeSilent, tmpDir)).To(Succeed())

		mode, err := m.LoadMode(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(mode).To(Equal(dotdir.ModeSilent))
	})

	It("migrates the legacy verbose mode to active", func() {
		path := filepath.Join(tmpDir, "mode")
		Expect(os.WriteFile(path, []byte("verbose\n"), 0o600)).To(Succeed())

		mode, err := m.LoadMode(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(mode).To(Equal(dotdir.ModeActive))

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("active\n"))
	})

	It("rejects a corrupt mode file", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "mode"), []byte("loud"), 0o600)).To(Succeed())

		_, err := m.LoadMode(tmpDir)
		Expect(err).To(MatchError(ContainSubstring("parsing mode")))
	})

	It("refuses to save an unknown mode", func() {
		Expect(m.SaveMode(dotdir.Mode("loud"), tmpDir)).To(MatchError(ContainSubstring("invalid mode")))
	})

	DescribeTable("ParseMode",
		func(in string, want dotdir.Mode) {
			got, err := dotdir.ParseMode(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("active", "active", dotdir.ModeActive),
		Entry("mixed case", " Silent ", dotdir.ModeSilent),
		Entry("ask", "ask", dotdir.ModeAsk),
		Entry("legacy verbose", "verbose", dotdir.ModeActive),
	)
})
