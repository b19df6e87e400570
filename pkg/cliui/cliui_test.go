package cliui_test

import (
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/raggadon/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("Step", func() {
		It("returns the function's error without usage figures", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")

			err := cliui.Step(&buf, "Saving memory", func() (*cliui.Usage, error) { return nil, boom })
			Expect(err).To(MatchError(boom))
			Expect(buf.String()).To(ContainSubstring("Saving memory"))
			Expect(buf.String()).To(ContainSubstring("✗"))
			Expect(buf.String()).NotTo(ContainSubstring("tokens"))
		})

		It("prints one line with the reported usage", func() {
			var buf bytes.Buffer

			err := cliui.Step(&buf, "Saving to billing", func() (*cliui.Usage, error) {
				return &cliui.Usage{Tokens: 7, Monthly: 340, CostUSD: 0.0000068}, nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("✓"))
			Expect(buf.String()).To(ContainSubstring("7 tokens · 340 this month · $0.000007"))
			Expect(strings.Count(buf.String(), "\n")).To(Equal(1))
		})
	})

	It("Usage formats tokens, monthly total and cost", func() {
		Expect(cliui.Usage{Tokens: 12, Monthly: 1200, CostUSD: 0.000024}.String()).
			To(Equal("12 tokens · 1200 this month · $0.000024"))
	})

	It("Done prints a checked line", func() {
		var buf bytes.Buffer
		cliui.Done(&buf, "Mode set to %s", "silent")
		Expect(buf.String()).To(ContainSubstring("✓ Mode set to silent"))
	})

	Describe("Confirm", func() {
		DescribeTable("answers",
			func(input string, want bool) {
				var out bytes.Buffer
				Expect(cliui.Confirm(strings.NewReader(input), &out, "Save?")).To(Equal(want))
				Expect(out.String()).To(ContainSubstring("Save?"))
			},
			Entry("yes", "yes\n", true),
			Entry("short yes", "Y\n", true),
			Entry("no", "n\n", false),
			Entry("blank", "\n", false),
			Entry("eof", "", false),
			Entry("yes without newline", "y", true),
		)
	})

	It("KeyValue includes both parts", func() {
		line := cliui.KeyValue("Total memories", 42)
		Expect(line).To(ContainSubstring("Total memories:"))
		Expect(line).To(ContainSubstring("42"))
	})
})
