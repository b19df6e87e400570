// Package cliui renders raggadon's terminal output: progress lines carrying
// token usage, key/value listings, confirmations and markdown tables.
package cliui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	KeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	ValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	DimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	ScoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	okMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	failMark = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	spinner  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Usage is the embedding cost of one CLI operation as reported by the server.
type Usage struct {
	Tokens  int
	Monthly int
	CostUSD float64
}

func (u Usage) String() string {
	return fmt.Sprintf("%d tokens · %d this month · $%.6f", u.Tokens, u.Monthly, u.CostUSD)
}

// Step runs fn and prints one result line: a mark, msg, the elapsed time and
// the usage fn reports, if any. While fn runs, a spinner is drawn when w is a
// terminal.
func Step(w io.Writer, msg string, fn func() (*Usage, error)) error {
	stop := func() {}
	if isTerminal(w) {
		stop = spin(w, msg)
	}

	start := time.Now()
	usage, err := fn()
	elapsed := time.Since(start)
	stop()

	line := fmt.Sprintf("\r  %s %s %s", mark(err), msg, DimStyle.Render("("+formatDuration(elapsed)+")"))
	if err == nil && usage != nil {
		line += "  " + DimStyle.Render(usage.String())
	}
	fmt.Fprintln(w, line)

	return err
}

// spin draws the spinner until the returned function is called.
func spin(w io.Writer, msg string) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			fmt.Fprintf(w, "\r  %s %s", spinner.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func mark(err error) string {
	if err != nil {
		return failMark
	}
	return okMark
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// Done prints a checked confirmation line.
func Done(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", okMark, fmt.Sprintf(format, args...))
}

// KeyValue renders an aligned "key: value" line.
func KeyValue(key string, value any) string {
	return fmt.Sprintf("  %s %s", KeyStyle.Render(fmt.Sprintf("%-22s", key+":")), ValueStyle.Render(fmt.Sprint(value)))
}

// Confirm asks a yes/no question on w and reads the answer from r.
// Anything but y or yes is a no.
func Confirm(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s %s ", question, DimStyle.Render("[y/N]"))

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// RenderMarkdown renders markdown for the terminal. On failure the input is
// returned unchanged alongside the error.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return rendered, nil
}
