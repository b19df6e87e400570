package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/raggadon/pkg/logger"
)

func decodeLine(raw string) map[string]any {
	var parsed map[string]any
	ExpectWithOffset(1, json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed)).To(Succeed())
	return parsed
}

type failingHandler struct{}

func (failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }
func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h failingHandler) WithGroup(string) slog.Handler           { return h }

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("writes text records at Info by default", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("memory saved", "project", "demo")
			l.Debug("hidden")

			Expect(buf.String()).To(ContainSubstring("memory saved"))
			Expect(buf.String()).To(ContainSubstring("project=demo"))
			Expect(buf.String()).NotTo(ContainSubstring("hidden"))
		})

		It("emits debug records when debug is on", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
			l.Debug("embedding request", "model", "text-embedding-3-small")

			Expect(buf.String()).To(ContainSubstring("embedding request"))
		})

		It("honors an explicit level", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithLevel(slog.LevelWarn))
			l.Info("quiet")
			l.Warn("usage ledger unavailable")

			Expect(buf.String()).NotTo(ContainSubstring("quiet"))
			Expect(buf.String()).To(ContainSubstring("usage ledger unavailable"))
		})

		It("writes JSON records", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			l.Info("usage recorded", "tokens", 42)

			parsed := decodeLine(buf.String())
			Expect(parsed["msg"]).To(Equal("usage recorded"))
			Expect(parsed["tokens"]).To(BeNumerically("==", 42))
		})

		It("prefers JSON over pretty", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true), logger.WithJSON(true))
			l.Info("structured")

			Expect(decodeLine(buf.String())["msg"]).To(Equal("structured"))
		})

		It("writes pretty records", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true))
			l.Info("starting raggadon server")

			Expect(buf.String()).To(ContainSubstring("starting raggadon server"))
		})

		It("stamps attributes on every record", func() {
			var buf bytes.Buffer
			l := logger.New(
				logger.WithWriter(&buf),
				logger.WithJSON(true),
				logger.WithAttrs("service", "raggadon"),
			)
			l.Info("ready")

			Expect(decodeLine(buf.String())["service"]).To(Equal("raggadon"))
		})

		It("fans out to multiple writers", func() {
			var buf1, buf2 bytes.Buffer
			l := logger.New(logger.WithWriters(&buf1, &buf2))
			l.Info("multi")

			Expect(buf1.String()).To(ContainSubstring("multi"))
			Expect(buf2.String()).To(ContainSubstring("multi"))
		})
	})

	Describe("NewFile", func() {
		It("appends JSON records to the file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "raggadon.log")

			l, closeFn, err := logger.NewFile(path, logger.WithPretty(true))
			Expect(err).NotTo(HaveOccurred())
			l.Info("first")
			l.Info("second")
			Expect(closeFn()).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			Expect(lines).To(HaveLen(2))
			Expect(decodeLine(lines[1])["msg"]).To(Equal("second"))
		})

		It("fails for an unwritable path", func() {
			path := filepath.Join(GinkgoT().TempDir(), "missing", "raggadon.log")

			_, _, err := logger.NewFile(path)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("opening log file"))
		})
	})

	Describe("Nop", func() {
		It("is disabled at every level", func() {
			l := logger.Nop()
			Expect(l.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
			Expect(func() {
				l.With("key", "value").WithGroup("group").Error("msg")
			}).NotTo(Panic())
		})
	})

	Describe("Multi", func() {
		It("dispatches to all loggers", func() {
			var text, js bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&text)),
				logger.New(logger.WithWriter(&js), logger.WithJSON(true)),
			)

			multi.Info("broadcast", "project", "demo")

			Expect(text.String()).To(ContainSubstring("broadcast"))
			Expect(decodeLine(js.String())["project"]).To(Equal("demo"))
		})

		It("respects each logger's level", func() {
			var info, debug bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&info)),
				logger.New(logger.WithWriter(&debug), logger.WithDebug(true)),
			)

			multi.Debug("detail")

			Expect(info.String()).To(BeEmpty())
			Expect(debug.String()).To(ContainSubstring("detail"))
		})

		It("skips nil loggers", func() {
			var buf bytes.Buffer
			multi := logger.Multi(nil, logger.New(logger.WithWriter(&buf)))

			multi.Info("kept")
			Expect(buf.String()).To(ContainSubstring("kept"))
		})

		It("keeps delivering when one handler fails", func() {
			var buf bytes.Buffer
			multi := logger.Multi(slog.New(failingHandler{}), logger.New(logger.WithWriter(&buf)))

			multi.Info("still delivered")
			Expect(buf.String()).To(ContainSubstring("still delivered"))
		})

		It("carries With and WithGroup through", func() {
			var buf bytes.Buffer
			multi := logger.Multi(logger.New(logger.WithWriter(&buf), logger.WithJSON(true)))

			multi.With("component", "api").WithGroup("request").Info("processed", "method", "GET")

			parsed := decodeLine(buf.String())
			Expect(parsed["component"]).To(Equal("api"))
			group, ok := parsed["request"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(group["method"]).To(Equal("GET"))
		})
	})
})
