package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter renders one kind of CLI output. Without color it falls back to
// a textual decoration so the meaning survives copy and paste.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

func (f Formatter) Sprint(a ...interface{}) string {
	return f.render(fmt.Sprint(a...))
}

func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline appends a newline to s unless it already ends with one.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// noColor honours NO_COLOR (https://no-color.org/) and fatih/color's own
// terminal detection.
func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Code is a command to run, `backticked` without color.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path is a file, container or chunk directory.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Flag is a CLI flag such as --chunk-size.
	Flag = Formatter{color.New(color.FgYellow), "", ""}

	Success = Formatter{color.New(color.FgGreen), "", ""}
	Error   = Formatter{color.New(color.FgRed), "", ""}
	Warning = Formatter{color.New(color.FgYellow), "", ""}
	Info    = Formatter{color.New(color.FgCyan), "", ""}

	// Highlight is a user value: key names, contacts, recovered filenames.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	// Muted is secondary detail such as sizes and fingerprints.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)
