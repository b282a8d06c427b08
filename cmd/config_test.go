package cmd

import (
	"strings"
	"testing"
)

func TestConfigSetAndShow(t *testing.T) {
	setupTestEnvironment(t)

	mustRunCLI(t, "config", "set", "encrypt.default_chunk_size", "2MiB")

	output := mustRunCLI(t, "config", "show", "--json")
	if !strings.Contains(output, `"encrypt.default_chunk_size": "2MiB"`) {
		t.Errorf("Expected the new chunk size, got: %s", output)
	}
	if !strings.Contains(output, `"user.uuid"`) {
		t.Errorf("Expected the user UUID, got: %s", output)
	}

	output = mustRunCLI(t, "config", "show")
	if !strings.Contains(output, "User Configuration") || !strings.Contains(output, "2MiB") {
		t.Errorf("Unexpected text output: %s", output)
	}
}

func TestConfigSetRejectsInvalid(t *testing.T) {
	setupTestEnvironment(t)

	tests := [][]string{
		{"config", "set", "encrypt.default_chunk_size", "huge"},
		{"config", "set", "audit.enabled", "sometimes"},
		{"config", "set", "nope", "1"},
	}
	for _, args := range tests {
		if _, err := runCLI(t, args...); err == nil {
			t.Errorf("Expected kete %s to fail", strings.Join(args, " "))
		}
	}
}

func TestToolsCommand(t *testing.T) {
	setupTestEnvironment(t)

	output := mustRunCLI(t, "tools")
	for _, want := range []string{"file-encryptor", "secure-text", "key-manager", "kete encrypt"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output: %s", want, output)
		}
	}

	output = mustRunCLI(t, "tools", "container-inspector")
	if !strings.Contains(output, "kete inspect") {
		t.Errorf("Unexpected output: %s", output)
	}

	if _, err := runCLI(t, "tools", "nonexistent"); err == nil {
		t.Error("Expected an error for an unknown tool")
	}
}
