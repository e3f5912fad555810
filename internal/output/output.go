// Package output writes exttest's human and machine readable output.
//
// Commands get a Writer from the context. It prints status lines with
// ✓/✗/⚠ marks, JSON documents for --json, result tables, a spinner while
// an external test runs and a progress bar across a manifest. Colors and
// animations are only used on an interactive terminal.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/mesos-tools/exttest/internal/terminal"
)

type contextKey struct{}

// Writer handles CLI output with multiple modes.
type Writer struct {
	Out   io.Writer
	Err   io.Writer
	JSON  bool
	Quiet bool

	terminal *terminal.Info

	successColor *color.Color
	errorColor   *color.Color
	warningColor *color.Color
	infoColor    *color.Color
	mutedColor   *color.Color
}

// Default returns a Writer for stdout and stderr.
func Default() *Writer {
	return NewWriter(os.Stdout, os.Stderr, terminal.Detect())
}

// NewWriter creates a Writer with custom writers and terminal info.
func NewWriter(out, err io.Writer, term *terminal.Info) *Writer {
	w := &Writer{
		Out:          out,
		Err:          err,
		terminal:     term,
		successColor: color.New(color.FgGreen),
		errorColor:   color.New(color.FgRed),
		warningColor: color.New(color.FgYellow),
		infoColor:    color.New(color.FgCyan),
		mutedColor:   color.New(color.FgHiBlack),
	}

	if !term.ColorEnabled() {
		color.NoColor = true
	}

	return w
}

// WithContext stores the Writer in the context.
func (w *Writer) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, w)
}

// FromContext retrieves the Writer from context, or returns Default().
func FromContext(ctx context.Context) *Writer {
	if w, ok := ctx.Value(contextKey{}).(*Writer); ok {
		return w
	}

	return Default()
}

// Terminal returns the terminal info.
func (w *Writer) Terminal() *terminal.Info {
	return w.terminal
}

// SetNoColor disables colored output.
func (w *Writer) SetNoColor(disabled bool) {
	w.terminal.ForceFlag = disabled
	if disabled {
		color.NoColor = true
	}
}

// Print writes to stdout unless quiet.
func (w *Writer) Print(format string, args ...any) {
	if !w.Quiet {
		fmt.Fprintf(w.Out, format, args...)
	}
}

// Println writes a line to stdout unless quiet.
func (w *Writer) Println(args ...any) {
	if !w.Quiet {
		fmt.Fprintln(w.Out, args...)
	}
}

// PrintJSON writes v as indented JSON. Quiet mode does not apply.
func (w *Writer) PrintJSON(v any) error {
	enc := json.NewEncoder(w.Out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// Error writes to stderr.
func (w *Writer) Error(format string, args ...any) {
	fmt.Fprintf(w.Err, format, args...)
}

// Errorln writes a line to stderr.
func (w *Writer) Errorln(args ...any) {
	fmt.Fprintln(w.Err, args...)
}

// Write implements io.Writer on stdout, honoring quiet mode.
func (w *Writer) Write(p []byte) (int, error) {
	if w.Quiet {
		return len(p), nil
	}

	return w.Out.Write(p)
}

func (w *Writer) writeStatus(out io.Writer, tone *color.Color, mark, message string) {
	if w.terminal.ColorEnabled() {
		tone.Fprint(out, mark+" ")
		fmt.Fprintln(out, message)

		return
	}

	fmt.Fprintln(out, mark+" "+message)
}

// Success writes a line with a check mark.
func (w *Writer) Success(format string, args ...any) {
	if w.Quiet {
		return
	}

	w.writeStatus(w.Out, w.successColor, CheckMark, fmt.Sprintf(format, args...))
}

// Failure writes a line with an X mark to stderr. Quiet mode does not apply.
func (w *Writer) Failure(format string, args ...any) {
	w.writeStatus(w.Err, w.errorColor, XMark, fmt.Sprintf(format, args...))
}

// Warning writes a line with a warning mark.
func (w *Writer) Warning(format string, args ...any) {
	if w.Quiet {
		return
	}

	w.writeStatus(w.Out, w.warningColor, WarningMark, fmt.Sprintf(format, args...))
}

// Info writes a line with an info mark.
func (w *Writer) Info(format string, args ...any) {
	if w.Quiet {
		return
	}

	w.writeStatus(w.Out, w.infoColor, InfoMark, fmt.Sprintf(format, args...))
}

// Hint writes a line with an info mark to stderr, where it cannot corrupt
// JSON on stdout. Quiet mode does not apply.
func (w *Writer) Hint(format string, args ...any) {
	w.writeStatus(w.Err, w.infoColor, InfoMark, fmt.Sprintf(format, args...))
}

// Muted writes dimmed text.
func (w *Writer) Muted(format string, args ...any) {
	if w.Quiet {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if w.terminal.ColorEnabled() {
		w.mutedColor.Fprintln(w.Out, msg)
		return
	}

	fmt.Fprintln(w.Out, msg)
}

// Status marks.
const (
	CheckMark   = "\u2713" // ✓
	XMark       = "\u2717" // ✗
	WarningMark = "\u26A0" // ⚠
	InfoMark    = "\u2139" // ℹ
)

// Table renders rows under headers with a rounded border. Cells in the
// status column are colored by their leading mark when color is enabled.
func (w *Writer) Table(headers []string, rows [][]string, statusCol int) {
	if w.Quiet {
		return
	}

	colored := w.terminal.ColorEnabled()
	headerStyle := lipgloss.NewStyle().Bold(colored).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			if !colored || col != statusCol || row < 0 || row >= len(rows) {
				return cellStyle
			}

			return cellStyle.Foreground(statusColor(rows[row][col]))
		})

	fmt.Fprintln(w.Out, t.Render())
}

func statusColor(cell string) lipgloss.Color {
	switch {
	case strings.HasPrefix(cell, CheckMark):
		return lipgloss.Color("10")
	case strings.HasPrefix(cell, XMark):
		return lipgloss.Color("9")
	default:
		return lipgloss.Color("11")
	}
}

// Spinner returns a spinner for a long operation. It degrades to a plain
// "message... " prefix on non-interactive output.
func (w *Writer) Spinner(message string) *Spinner {
	if w.Quiet || w.JSON || !w.terminal.SpinnersEnabled() {
		return &Spinner{disabled: true, message: message, writer: w}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Writer = w.Out
	s.Suffix = " " + message

	return &Spinner{spinner: s, message: message, writer: w}
}

// Spinner wraps briandowns/spinner with a non-TTY fallback.
type Spinner struct {
	spinner  *spinner.Spinner
	message  string
	writer   *Writer
	disabled bool
}

// Start begins the animation.
func (s *Spinner) Start() {
	if s.disabled {
		if !s.writer.JSON {
			s.writer.Print("%s... ", s.message)
		}

		return
	}

	s.spinner.Start()
}

// Stop stops the animation without printing anything.
func (s *Spinner) Stop() {
	if !s.disabled {
		s.spinner.Stop()
	}
}

// StopWithSuccess stops the spinner and prints message with a check mark.
func (s *Spinner) StopWithSuccess(message string) {
	s.finish("ok")

	if message != "" {
		s.writer.Success("%s", message)
	}
}

// StopWithFailure stops the spinner and prints message with an X mark.
func (s *Spinner) StopWithFailure(message string) {
	s.finish("failed")

	if message != "" {
		s.writer.Failure("%s", message)
	}
}

func (s *Spinner) finish(word string) {
	if !s.disabled {
		s.spinner.Stop()
		return
	}

	if !s.writer.JSON {
		s.writer.Println(word)
	}
}

// Progress tracks a run of several external tests with a progress bar on
// stderr. It does nothing where a spinner would be disabled.
type Progress struct {
	bar    *progressbar.ProgressBar
	passed int
	failed int
}

// Progress returns a progress bar for total tests. Runs of fewer than two
// tests get a disabled bar.
func (w *Writer) Progress(total int) *Progress {
	if total < 2 || w.Quiet || w.JSON || !w.terminal.SpinnersEnabled() {
		return &Progress{}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w.Err),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription(progressDescription(0, 0)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
	)

	return &Progress{bar: bar}
}

// Enabled reports whether the bar is drawn.
func (p *Progress) Enabled() bool {
	return p.bar != nil
}

// Clear erases the bar so a result line can be printed. The next Record
// draws it again.
func (p *Progress) Clear() {
	if p.bar != nil {
		_ = p.bar.Clear()
	}
}

// Record counts one finished test and advances the bar.
func (p *Progress) Record(passed bool) {
	if passed {
		p.passed++
	} else {
		p.failed++
	}

	if p.bar == nil {
		return
	}

	p.bar.Describe(progressDescription(p.passed, p.failed))
	_ = p.bar.Add(1)
}

// Skip advances the bar for a test that was not run.
func (p *Progress) Skip() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// Finish removes the bar.
func (p *Progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func progressDescription(passed, failed int) string {
	return fmt.Sprintf("passed: %d  failed: %d", passed, failed)
}
