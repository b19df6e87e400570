package raggadoncmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	raggadoncmder "github.com/papercomputeco/raggadon/cmd/raggadon"
)

var _ = Describe("NewRaggadonCmd", func() {
	It("registers every subcommand", func() {
		cmd := raggadoncmder.NewRaggadonCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "save", "search", "status", "mode", "config", "version"))
	})

	It("exposes the global flags", func() {
		cmd := raggadoncmder.NewRaggadonCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("prints build information", func() {
		cmd := raggadoncmder.NewRaggadonCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("raggadon dev"))
		Expect(out.String()).To(ContainSubstring("sha: HEAD"))
	})
})
