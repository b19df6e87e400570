package servecmder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/raggadon/pkg/config"
	"github.com/papercomputeco/raggadon/pkg/logger"
)

func newTestServeCmd(configDir string, args ...string) *cobra.Command {
	cmd := NewServeCmd()
	cmd.Flags().Bool("debug", false, "")
	cmd.Flags().String("config-dir", configDir, "")
	cmd.SetArgs(args)
	return cmd
}

var _ = Describe("serve command", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "serve-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("registers the shared server flags", func() {
		cmd := NewServeCmd()
		for _, name := range []string{"listen", "embedding-provider", "memory-provider", "memory-target", "threshold", "usage-provider", "eventstream-provider", "env-file"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("refuses to start with an invalid configuration", func() {
		cmd := newTestServeCmd(tmpDir,
			"--env-file", "",
			"--memory-provider", "cassandra",
		)
		err := cmd.Execute()
		Expect(err).To(MatchError(ContainSubstring("unsupported memory.provider")))
	})

	It("refuses to start with a threshold outside [-1, 1]", func() {
		cmd := newTestServeCmd(tmpDir,
			"--env-file", "",
			"--memory-provider", "memory",
			"--threshold", "2",
		)
		err := cmd.Execute()
		Expect(err).To(MatchError(ContainSubstring("memory.threshold")))
	})

	It("fails when the log file cannot be opened", func() {
		GinkgoT().Setenv("RAGGADON_LOG_FILE", filepath.Join(tmpDir, "missing", "raggadon.log"))

		cmd := newTestServeCmd(tmpDir,
			"--env-file", "",
			"--memory-provider", "memory",
		)
		err := cmd.Execute()
		Expect(err).To(MatchError(ContainSubstring("opening log file")))
	})

	Describe("buildService", func() {
		It("starts without a ledger when the ledger backend cannot be opened", func() {
			var logs bytes.Buffer
			cmder := &serveCommander{logger: logger.New(logger.WithWriter(&logs))}

			cfg := config.NewDefaultConfig()
			cfg.Embedding.Provider = "ollama"
			cfg.Embedding.Model = "nomic-embed-text"
			cfg.Embedding.Dimensions = 768
			cfg.Memory.Provider = "memory"
			cfg.Usage.Provider = "sqlite"
			cfg.Usage.Target = filepath.Join(tmpDir, "missing", "usage.sqlite")

			svc, cleanup, err := cmder.buildService(context.Background(), cfg)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(cleanup)
			Expect(svc).NotTo(BeNil())
			Expect(logs.String()).To(ContainSubstring("usage ledger unavailable"))
		})

		It("still fails on an unsupported ledger provider", func() {
			cmder := &serveCommander{logger: logger.Nop()}

			cfg := config.NewDefaultConfig()
			cfg.Embedding.Provider = "ollama"
			cfg.Memory.Provider = "memory"
			cfg.Usage.Provider = "redis"

			_, _, err := cmder.buildService(context.Background(), cfg)
			Expect(err).To(MatchError(ContainSubstring("unsupported usage provider")))
		})
	})

	Describe("loadEnvFile", func() {
		It("ignores a missing file", func() {
			Expect(loadEnvFile(filepath.Join(tmpDir, "absent.env"))).To(Succeed())
		})

		It("loads variables without overriding existing ones", func() {
			path := filepath.Join(tmpDir, ".env")
			Expect(os.WriteFile(path, []byte("RAGGADON_TEST_ENV_A=from-file\nRAGGADON_TEST_ENV_B=from-file\n"), 0o600)).To(Succeed())

			os.Setenv("RAGGADON_TEST_ENV_B", "from-process")
			DeferCleanup(func() {
				os.Unsetenv("RAGGADON_TEST_ENV_A")
				os.Unsetenv("RAGGADON_TEST_ENV_B")
			})

			Expect(loadEnvFile(path)).To(Succeed())
			Expect(os.Getenv("RAGGADON_TEST_ENV_A")).To(Equal("from-file"))
			Expect(os.Getenv("RAGGADON_TEST_ENV_B")).To(Equal("from-process"))
		})
	})
})
