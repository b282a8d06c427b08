package ui

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Bytes renders a byte count in SI units, e.g. "5.2 MB".
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Percent renders progress as " 42%" for spinner suffixes.
func Percent(p int) string {
	switch {
	case p < 0:
		p = 0
	case p > 100:
		p = 100
	}
	return fmt.Sprintf("%3d%%", p)
}

// Ordinal renders a 1-based chunk number, e.g. "3rd".
func Ordinal(n int) string {
	return humanize.Ordinal(n)
}
