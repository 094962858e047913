package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestStatusLine_DisabledForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	status := NewStatusLine(&buf)

	status.Set("scanning")

	if status.Enabled() {
		t.Error("status line should be disabled for a buffer")
	}
	if buf.Len() != 0 {
		t.Errorf("disabled status wrote %q", buf.String())
	}
}

func TestStatusLine_SetAndClear(t *testing.T) {
	var buf bytes.Buffer
	status := NewStatusLineForced(&buf, 0)

	status.Set("one")
	status.Set("two")
	status.Clear()

	if got, want := buf.String(), clearLine+"one"+clearLine+"two"+clearLine; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestStatusLine_TruncatesToWidth(t *testing.T) {
	var buf bytes.Buffer
	status := NewStatusLineForced(&buf, 10)

	status.Set("/a/very/long/path/name.txt")

	line := strings.TrimPrefix(buf.String(), clearLine)
	if n := len([]rune(line)); n >= 10 {
		t.Errorf("line %q has %d runes, want < 10", line, n)
	}
	if !strings.HasSuffix(line, "name.txt") {
		t.Errorf("tail not kept: %q", line)
	}
}

func TestStatusLine_NilIsSafe(t *testing.T) {
	var status *StatusLine
	status.Set("x")
	status.Clear()
	if status.Enabled() {
		t.Error("nil status line reported enabled")
	}
}
