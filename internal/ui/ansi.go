package ui

import (
	"fmt"
	"io"
	"os"
)

var (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	strike = "\033[9m"

	fgGray   = "\033[90m"
	fgGreen  = "\033[32m"
	fgYellow = "\033[33m"
	fgBlue   = "\033[34m"
	fgRed    = "\033[31m"
)

// Out and Err are where the helpers print. Tests swap them.
var (
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr
)

var (
	forceColor   bool
	disableColor bool
)

func SetColorForcing(force, disable bool) {
	forceColor = force
	disableColor = disable
}

func isTTY() bool {
	f, ok := Out.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// C wraps s in color when the output is a terminal (or color is forced).
func C(color, s string) string {
	if disableColor || color == "" {
		return s
	}
	if forceColor || isTTY() {
		return color + s + reset
	}
	return s
}

// Dim and Strike are fixed attributes independent of the theme.
func Dim(s string) string    { return C(dim, s) }
func Strike(s string) string { return C(strike, s) }

func OK(msg string)   { fmt.Fprintln(Out, C(current.Success, current.SymDone+" "+msg)) }
func Fail(msg string) { fmt.Fprintln(Err, C(current.Error, current.SymFail+" "+msg)) }

// Hint prints a muted follow-up line on Err.
func Hint(msg string) { fmt.Fprintln(Err, C(current.Muted, msg)) }
