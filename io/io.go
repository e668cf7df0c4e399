// Package clio holds the terminal-facing pieces of the command line: the
// stream manager used to print usage errors and results, and the leveled
// logger that the parser uses for its trace output.
package clio

import (
	stdio "io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// IOManager centralizes the standard streams and terminal capabilities.
type IOManager struct {
	in  stdio.Reader
	out stdio.Writer
	err stdio.Writer

	forceColor bool
	noColor    bool
}

// New returns a manager bound to the process streams.
func New() *IOManager {
	return &IOManager{in: os.Stdin, out: os.Stdout, err: os.Stderr}
}

// WithIn sets the input reader.
func (m *IOManager) WithIn(r stdio.Reader) *IOManager { m.in = r; return m }

// WithOut sets the standard output writer.
func (m *IOManager) WithOut(w stdio.Writer) *IOManager { m.out = w; return m }

// WithErr sets the standard error writer.
func (m *IOManager) WithErr(w stdio.Writer) *IOManager { m.err = w; return m }

// ForceColor turns color on regardless of the environment.
func (m *IOManager) ForceColor() *IOManager { m.forceColor = true; m.noColor = false; return m }

// NoColor turns color off regardless of the environment.
func (m *IOManager) NoColor() *IOManager { m.noColor = true; m.forceColor = false; return m }

// ColorAuto decides color support from the environment and the terminal.
func (m *IOManager) ColorAuto() *IOManager { m.noColor = false; m.forceColor = false; return m }

func (m *IOManager) In() stdio.Reader  { return m.in }
func (m *IOManager) Out() stdio.Writer { return m.out }
func (m *IOManager) Err() stdio.Writer { return m.err }

// IsTTY reports whether the output writer is a terminal.
func (m *IOManager) IsTTY() bool { return isTerminal(m.out) }

// IsInteractive reports whether input comes from a terminal outside CI.
func (m *IOManager) IsInteractive() bool { return isTerminal(m.in) && os.Getenv("CI") == "" }

func (m *IOManager) IsPiped() bool      { return !isTerminal(m.in) }
func (m *IOManager) IsRedirected() bool { return !isTerminal(m.out) }

// Width returns the terminal width, then $COLUMNS, then 80.
func (m *IOManager) Width() int {
	if w, _, ok := size(m.out); ok && w > 0 {
		return w
	}
	if w := envInt("COLUMNS"); w > 0 {
		return w
	}
	return 80
}

// Height returns the terminal height, then $LINES, then 24.
func (m *IOManager) Height() int {
	if _, h, ok := size(m.out); ok && h > 0 {
		return h
	}
	if h := envInt("LINES"); h > 0 {
		return h
	}
	return 24
}

// SupportsColor reports whether ANSI colors should be written to Out.
// NO_COLOR and FORCE_COLOR are honored unless an explicit mode was chosen.
func (m *IOManager) SupportsColor() bool {
	switch {
	case m.noColor:
		return false
	case m.forceColor:
		return true
	case os.Getenv("NO_COLOR") != "":
		return false
	case os.Getenv("FORCE_COLOR") != "":
		return true
	}
	if !m.IsTTY() {
		return false
	}
	t := os.Getenv("TERM")
	return t != "" && t != "dumb"
}

// Paint renders s with the given attributes when color is supported.
func (m *IOManager) Paint(s string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if m.SupportsColor() {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (m *IOManager) Bold(s string) string      { return m.Paint(s, color.Bold) }
func (m *IOManager) Faint(s string) string     { return m.Paint(s, color.Faint) }
func (m *IOManager) Underline(s string) string { return m.Paint(s, color.Underline) }

type fder interface{ Fd() uintptr }

func isTerminal(v any) bool {
	f, ok := v.(fder)
	return ok && term.IsTerminal(int(f.Fd()))
}

func size(v any) (width, height int, ok bool) {
	f, isFile := v.(fder)
	if !isFile {
		return 0, 0, false
	}
	w, h, err := term.GetSize(int(f.Fd()))
	return w, h, err == nil
}

func envInt(name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name)))
	if err != nil {
		return 0
	}
	return n
}
