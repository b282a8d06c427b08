package ui

import (
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withColor(t *testing.T, enabled bool) {
	t.Helper()
	original := color.NoColor
	if enabled {
		os.Unsetenv("NO_COLOR")
		color.NoColor = false
	} else {
		t.Setenv("NO_COLOR", "1")
	}
	t.Cleanup(func() { color.NoColor = original })
}

func TestFormatterWithColor(t *testing.T) {
	withColor(t, true)

	result := Code.Sprint("kete encrypt report.pdf")
	if strings.Contains(result, "`") {
		t.Errorf("Code.Sprint should not contain backticks with color, got: %s", result)
	}
	if !strings.Contains(result, "\x1b[") {
		t.Errorf("Code.Sprint should contain ANSI escape codes with color, got: %s", result)
	}

	result = Highlight.Sprintf("key: %s", "laptop")
	if strings.HasPrefix(result, "'") || !strings.Contains(result, "key: laptop") {
		t.Errorf("Highlight.Sprintf with color = %q", result)
	}
}

func TestFormatterWithNoColor(t *testing.T) {
	withColor(t, false)

	tests := []struct {
		name      string
		formatter Formatter
		input     string
		want      string
	}{
		{"Code", Code, "kete keys init", "`kete keys init`"},
		{"Path", Path, "report.pdf.enc", "report.pdf.enc"},
		{"Flag", Flag, "--chunk-size", "--chunk-size"},
		{"Success", Success, "✓", "✓"},
		{"Error", Error, "✗", "✗"},
		{"Warning", Warning, "⚠", "⚠"},
		{"Info", Info, "→", "→"},
		{"Highlight", Highlight, "alice", "'alice'"},
		{"Muted", Muted, "4.2 MB", "(4.2 MB)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.formatter.Sprint(tt.input); got != tt.want {
				t.Errorf("%s.Sprint(%q) = %q, want %q", tt.name, tt.input, got, tt.want)
			}
		})
	}

	if got := Code.Sprintf("kete %s", "verify"); got != "`kete verify`" {
		t.Errorf("Code.Sprintf() = %q", got)
	}
	if got := Code.Sprint("kete", " ", "inspect"); got != "`kete inspect`" {
		t.Errorf("Code.Sprint with multiple args = %q", got)
	}
}

func TestNoColorFunction(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if !noColor() {
		t.Error("noColor() should return true when NO_COLOR is set")
	}
	os.Unsetenv("NO_COLOR")

	original := color.NoColor
	defer func() { color.NoColor = original }()
	color.NoColor = true
	if !noColor() {
		t.Error("noColor() should return true when color.NoColor is true")
	}
}

func TestEnsureNewline(t *testing.T) {
	for in, want := range map[string]string{"": "\n", "a": "a\n", "a\n": "a\n"} {
		if got := EnsureNewline(in); got != want {
			t.Errorf("EnsureNewline(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSizes(t *testing.T) {
	if got := Bytes(5_000_000); got != "5.0 MB" {
		t.Errorf("Bytes(5000000) = %q", got)
	}
	if got := Bytes(-1); got != "0 B" {
		t.Errorf("Bytes(-1) = %q", got)
	}
	if got := Percent(42); got != " 42%" {
		t.Errorf("Percent(42) = %q", got)
	}
	if got := Percent(150); got != "100%" {
		t.Errorf("Percent(150) = %q", got)
	}
	if got := Ordinal(3); got != "3rd" {
		t.Errorf("Ordinal(3) = %q", got)
	}
}
