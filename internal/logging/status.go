package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

const clearLine = "\r\033[K"

// StatusLine is a single transient line at the bottom of a terminal. Log lines
// written through a ConsoleLogger sharing the same StatusLine are printed above
// it and the status is redrawn afterwards.
type StatusLine struct {
	mu      sync.Mutex
	writer  io.Writer
	enabled bool
	width   int
	current string
}

// NewStatusLine returns a status line on w. It is only active when w is a
// terminal; otherwise Set is a no-op so redirected output stays clean.
func NewStatusLine(w io.Writer) *StatusLine {
	s := &StatusLine{writer: w}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		s.enabled = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			s.width = width
		}
	}
	return s
}

// NewStatusLineForced returns an always-enabled status line, used in tests
func NewStatusLineForced(w io.Writer, width int) *StatusLine {
	return &StatusLine{writer: w, enabled: true, width: width}
}

// Enabled reports whether the status line draws anything
func (s *StatusLine) Enabled() bool {
	if s == nil {
		return false
	}
	return s.enabled
}

// Set replaces the status text. An empty string clears it.
func (s *StatusLine) Set(msg string) {
	if !s.Enabled() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.fit(msg)
	fmt.Fprint(s.writer, clearLine+s.current)
}

// Clear removes the status text
func (s *StatusLine) Clear() {
	s.Set("")
}

// PrintAbove writes line to w above the status, keeping the status visible
func (s *StatusLine) PrintAbove(w io.Writer, line string) {
	if !s.Enabled() {
		fmt.Fprintln(w, line)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.writer, clearLine)
	fmt.Fprintln(w, line)
	if s.current != "" {
		fmt.Fprint(s.writer, s.current)
	}
}

func (s *StatusLine) fit(msg string) string {
	if s.width <= 1 {
		return msg
	}
	runes := []rune(msg)
	if len(runes) < s.width {
		return msg
	}
	// keep the tail, which holds the file name
	return "…" + string(runes[len(runes)-s.width+2:])
}
