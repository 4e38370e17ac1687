package ui

import (
	"fmt"
	"sort"
	"strings"
)

// Theme bundles palette + symbols + box borders.
// The ANSI fields feed the line helpers; Colors feeds the interactive screen.
type Theme struct {
	Name                                          string
	Title, Muted, Accent, Success, Error, Pending string
	BoxUnchecked, BoxChecked                      string
	CornerTL, CornerTR, CornerBL, CornerBR        string
	H, V                                          string
	SymDone, SymFail, SymPending                  string

	Colors  Palette
	NoColor bool
}

// Palette holds ANSI-256 color numbers ("" = terminal default).
type Palette struct {
	Accent, Success, Pending, Error, Border string
}

var themes = map[string]Theme{
	"classic": {
		Title: bold, Muted: fgGray, Accent: fgBlue,
		Success: fgGreen, Error: fgRed, Pending: fgYellow,
		BoxUnchecked: "☐", BoxChecked: "☑",
		CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
		H: "─", V: "│",
		SymDone: "✔", SymFail: "✖", SymPending: "•",
		Colors: Palette{Accent: "12", Success: "42", Pending: "214", Error: "9", Border: "8"},
	},
	"neon": {
		Title: "\033[95m", // bright magenta
		Muted: fgGray, Accent: "\033[96m",
		Success: fgGreen, Error: fgRed, Pending: "\033[93m",
		BoxUnchecked: "◻", BoxChecked: "◼",
		CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
		H: "─", V: "│",
		SymDone: "✔", SymFail: "✖", SymPending: "•",
		Colors: Palette{Accent: "51", Success: "46", Pending: "226", Error: "197", Border: "201"},
	},
	"mono": {
		BoxUnchecked: "[ ]", BoxChecked: "[x]",
		CornerTL: "+", CornerTR: "+", CornerBL: "+", CornerBR: "+",
		H: "-", V: "|",
		SymDone: "x", SymFail: "!", SymPending: "-",
		NoColor: true,
	},
}

var current Theme

func init() { _ = SetTheme("classic") }

// SetTheme selects a theme by name. Unknown names leave the current theme in place.
func SetTheme(name string) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "classic"
	}
	t, ok := themes[key]
	if !ok {
		return fmt.Errorf("unknown theme %q (have %s)", name, strings.Join(Themes(), ", "))
	}
	t.Name = key
	current = t
	disableColor = t.NoColor
	return nil
}

// Themes lists the theme names, sorted.
func Themes() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Current is the active theme.
func Current() Theme { return current }
