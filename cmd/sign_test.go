package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSignAndVerifySignatureCommands(t *testing.T) {
	dir := setupTestEnvironment(t)
	initKeyringWithKey(t, "laptop")
	doc := writeTestFile(t, filepath.Join(dir, "report.txt"), "quarterly numbers")

	output := mustRunCLI(t, "sign", doc)
	if !strings.Contains(output, "Signed") || !strings.Contains(output, "laptop") {
		t.Errorf("Unexpected sign output: %s", output)
	}
	if _, err := os.Stat(doc + ".sig"); err != nil {
		t.Fatalf("Signature file was not written: %v", err)
	}

	output = mustRunCLI(t, "verify-signature", doc, "-r", "laptop")
	if !strings.Contains(output, "Signature is valid") {
		t.Errorf("Unexpected verify output: %s", output)
	}

	output = mustRunCLI(t, "verify-signature", doc, doc+".sig")
	if !strings.Contains(output, "laptop") {
		t.Errorf("Expected the matching key to be named, got: %s", output)
	}

	output, err := runCLI(t, "sign", doc)
	if !errors.Is(err, errReported) {
		t.Fatalf("Expected reported error for an existing signature, got %v", err)
	}
	if !strings.Contains(output, "--force") {
		t.Errorf("Expected a hint to use --force, got: %s", output)
	}

	writeTestFile(t, doc, "quarterly numbers, revised")
	output, err = runCLI(t, "verify-signature", doc)
	if !errors.Is(err, errReported) {
		t.Fatalf("Expected reported error for a changed file, got %v", err)
	}
	if !strings.Contains(output, "INVALID") {
		t.Errorf("Expected an invalid signature message, got: %s", output)
	}
}

func TestSignUnknownKey(t *testing.T) {
	dir := setupTestEnvironment(t)
	initKeyringWithKey(t, "laptop")
	doc := writeTestFile(t, filepath.Join(dir, "a.txt"), "a")

	output, err := runCLI(t, "sign", doc, "-k", "nobody")
	if !errors.Is(err, errReported) {
		t.Fatalf("Expected reported error, got %v", err)
	}
	if !strings.Contains(output, "key not found") {
		t.Errorf("Unexpected output: %s", output)
	}
	if _, err := os.Stat(doc + ".sig"); !os.IsNotExist(err) {
		t.Errorf("No signature should be written, stat err: %v", err)
	}
}
