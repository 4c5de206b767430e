package cli

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
)

// Printer writes command progress for humans.
type Printer struct {
	w        io.Writer
	colorize bool
}

// NewPrinter returns a printer on w. Color is only used on a terminal.
func NewPrinter(w io.Writer) *Printer {
	f, ok := w.(*os.File)
	return &Printer{w: w, colorize: ok && isTerminal(f)}
}

// Success prints a success line.
func (p *Printer) Success(message string) {
	p.line(ColorGreen, "✓", message)
}

// Error prints a failure line.
func (p *Printer) Error(message string) {
	p.line(ColorRed, "✗", message)
}

// Warning prints a warning line.
func (p *Printer) Warning(message string) {
	p.line(ColorYellow, "⚠", message)
}

// Step runs fn and reports its outcome with the elapsed time.
func (p *Printer) Step(name string, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		p.Error(fmt.Sprintf("%s: %v", name, err))
		return fmt.Errorf("%s: %w", name, err)
	}
	p.Success(fmt.Sprintf("%s (%s)", name, formatDuration(time.Since(start))))
	return nil
}

func (p *Printer) line(color, mark, message string) {
	if p.colorize {
		fmt.Fprintf(p.w, "%s%s%s %s\n", color, mark, ColorReset, message)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", mark, message)
}

func isTerminal(f *os.File) bool {
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
