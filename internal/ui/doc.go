// Package ui renders the human-facing parts of kete's output.
//
// Formatters are picked by meaning rather than color:
//
//	ui.Success.Sprint("✓") + " Encrypted 2 files"
//	ui.Error.Sprint("✗") + " " + kerrors.Describe(err)
//	ui.Info.Sprint("→") + " Decrypt with " + ui.Code.Sprint("kete decrypt <file>")
//
// Path, Flag, Highlight, Warning and Muted cover the rest. When NO_COLOR is
// set or stdout is not a terminal, Code falls back to backticks, Highlight
// to single quotes and Muted to parentheses; the others print plain text.
//
// Bytes, Percent and Ordinal format sizes and progress with go-humanize.
package ui
