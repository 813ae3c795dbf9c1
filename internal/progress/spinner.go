package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Spinner reports a running step. On a non-interactive writer it stays
// silent until the step finishes.
type Spinner struct {
	w       io.Writer
	caps    TerminalCapabilities
	symbols ProgressSymbols
	s       *spinner.Spinner
	message string
}

// NewSpinner returns a spinner writing to w with the given capabilities.
func NewSpinner(w io.Writer, caps TerminalCapabilities) *Spinner {
	sp := &Spinner{w: w, caps: caps, symbols: SelectSymbols(caps)}
	if caps.IsTTY {
		sp.s = spinner.New(
			spinner.CharSets[sp.symbols.SpinnerSet],
			100*time.Millisecond,
			spinner.WithWriter(w),
			spinner.WithHiddenCursor(true),
		)
		if caps.SupportsColor {
			_ = sp.s.Color("cyan")
		}
	}
	return sp
}

// Start shows message next to the spinner.
func (sp *Spinner) Start(message string) {
	sp.message = message
	if sp.s == nil {
		return
	}
	sp.s.Suffix = " " + message
	sp.s.Start()
}

// Stop ends the step, printing a success or failure line on a terminal.
func (sp *Spinner) Stop(err error) {
	if sp.s == nil {
		return
	}
	sp.s.Stop()
	if err != nil {
		fmt.Fprintf(sp.w, "%s %s\n", sp.paint(color.FgRed, sp.symbols.Failure), sp.message)
		return
	}
	fmt.Fprintf(sp.w, "%s %s\n", sp.paint(color.FgGreen, sp.symbols.Checkmark), sp.message)
}

// Active reports whether the spinner draws anything.
func (sp *Spinner) Active() bool {
	return sp.s != nil
}

func (sp *Spinner) paint(attr color.Attribute, s string) string {
	if !sp.caps.SupportsColor {
		return s
	}
	return color.New(attr).Sprint(s)
}
