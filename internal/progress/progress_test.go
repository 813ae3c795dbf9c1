package progress

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectSymbols(t *testing.T) {
	tests := map[string]struct {
		caps TerminalCapabilities
		want ProgressSymbols
	}{
		"unicode": {
			caps: TerminalCapabilities{IsTTY: true, SupportsUnicode: true},
			want: ProgressSymbols{Checkmark: "✓", Failure: "✗", SpinnerSet: 14},
		},
		"ascii": {
			caps: TerminalCapabilities{IsTTY: true},
			want: ProgressSymbols{Checkmark: "[OK]", Failure: "[FAIL]", SpinnerSet: 9},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, SelectSymbols(tc.caps))
		})
	}
}

func TestDetectTerminalCapabilities_File(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	caps := DetectTerminalCapabilities(f)
	assert.False(t, caps.IsTTY)
	assert.False(t, caps.SupportsColor)
	assert.Zero(t, caps.Width)
}

func TestSpinner_NonInteractive(t *testing.T) {
	var buf bytes.Buffer
	sp := NewSpinner(&buf, TerminalCapabilities{})

	assert.False(t, sp.Active())
	sp.Start("reading history")
	sp.Stop(nil)
	sp.Stop(errors.New("boom"))
	assert.Empty(t, buf.String())
}

func TestSpinner_Interactive(t *testing.T) {
	var buf bytes.Buffer
	sp := NewSpinner(&buf, TerminalCapabilities{IsTTY: true})

	assert.True(t, sp.Active())
	sp.Start("reading history")
	sp.Stop(errors.New("boom"))
	assert.Contains(t, buf.String(), "[FAIL] reading history\n")
}
