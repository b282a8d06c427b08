package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncryptDecryptWithPassword(t *testing.T) {
	dir := setupTestEnvironment(t)
	input := writeTestFile(t, filepath.Join(dir, "notes.txt"), "meet at noon")

	withStdin(t, "hunter2\n")
	output := mustRunCLI(t, "encrypt", "--password-stdin", input)
	if !strings.Contains(output, "Encrypted 1 file") {
		t.Errorf("Expected success message, got: %s", output)
	}

	container := findOne(t, filepath.Join(dir, "*.enc"))
	if strings.Contains(filepath.Base(container), "notes") {
		t.Errorf("Container name %s reveals the original filename", container)
	}
	if err := os.Remove(input); err != nil {
		t.Fatalf("Failed to remove input: %v", err)
	}

	withStdin(t, "hunter2\n")
	output = mustRunCLI(t, "decrypt", "--password-stdin", container)
	if !strings.Contains(output, "Decrypted 1 container") {
		t.Errorf("Expected success message, got: %s", output)
	}
	if got := readTestFile(t, input); got != "meet at noon" {
		t.Errorf("Recovered %q, want %q", got, "meet at noon")
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	dir := setupTestEnvironment(t)
	input := writeTestFile(t, filepath.Join(dir, "notes.txt"), "meet at noon")

	withStdin(t, "hunter2\n")
	mustRunCLI(t, "encrypt", "--password-stdin", input)
	container := findOne(t, filepath.Join(dir, "*.enc"))

	withStdin(t, "wrong\n")
	output, err := runCLI(t, "decrypt", "--password-stdin", "-o", filepath.Join(dir, "out.txt"), container)
	if !errors.Is(err, errReported) {
		t.Fatalf("Expected reported error, got %v", err)
	}
	if !strings.Contains(output, "✗") {
		t.Errorf("Expected failure marker, got: %s", output)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.txt")); !os.IsNotExist(err) {
		t.Error("Output file should not exist after a failed decrypt")
	}
}

func TestDecryptRefusesToOverwrite(t *testing.T) {
	dir := setupTestEnvironment(t)
	input := writeTestFile(t, filepath.Join(dir, "notes.txt"), "meet at noon")
	existing := writeTestFile(t, filepath.Join(dir, "existing.txt"), "keep me")

	withStdin(t, "hunter2\n")
	mustRunCLI(t, "encrypt", "--password-stdin", input)
	container := findOne(t, filepath.Join(dir, "*.enc"))

	withStdin(t, "hunter2\n")
	if _, err := runCLI(t, "decrypt", "--password-stdin", "-o", existing, container); err == nil {
		t.Fatal("Expected decrypt to refuse an existing output file")
	}
	if got := readTestFile(t, existing); got != "keep me" {
		t.Errorf("Existing file was changed to %q", got)
	}

	withStdin(t, "hunter2\n")
	mustRunCLI(t, "decrypt", "--password-stdin", "--force", "-o", existing, container)
	if got := readTestFile(t, existing); got != "meet at noon" {
		t.Errorf("Recovered %q, want %q", got, "meet at noon")
	}
}

func TestDecryptDefaultNameDoesNotClobber(t *testing.T) {
	dir := setupTestEnvironment(t)
	input := writeTestFile(t, filepath.Join(dir, "notes.txt"), "meet at noon")

	withStdin(t, "hunter2\n")
	mustRunCLI(t, "encrypt", "--password-stdin", input)
	container := findOne(t, filepath.Join(dir, "*.enc"))

	withStdin(t, "hunter2\n")
	mustRunCLI(t, "decrypt", "--password-stdin", container)

	if got := readTestFile(t, input); got != "meet at noon" {
		t.Errorf("Original file changed to %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "notes*.txt"))
	if len(matches) != 2 {
		t.Errorf("Expected the original and a renamed copy, got %v", matches)
	}
}

func TestEncryptSplitVerifyAndDecrypt(t *testing.T) {
	dir := setupTestEnvironment(t)
	content := strings.Repeat("0123456789abcdef", 640) // 10 KiB
	input := writeTestFile(t, filepath.Join(dir, "disk.img"), content)
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		t.Fatalf("Failed to create output directory: %v", err)
	}

	withStdin(t, "hunter2\n")
	output := mustRunCLI(t, "encrypt", "--password-stdin", "--split=4KiB", "-o", outDir, input)
	if !strings.Contains(output, "parts") {
		t.Errorf("Expected part count in output, got: %s", output)
	}
	manifest := findOne(t, filepath.Join(outDir, "manifest.json"))
	parts, _ := filepath.Glob(filepath.Join(filepath.Dir(manifest), "*.enc.part*"))
	if len(parts) < 3 {
		t.Errorf("Expected at least 3 parts, got %v", parts)
	}

	output = mustRunCLI(t, "verify", filepath.Dir(manifest))
	if !strings.Contains(output, "All parts intact") {
		t.Errorf("Expected verify success, got: %s", output)
	}

	output = mustRunCLI(t, "inspect", "--json", manifest)
	if !strings.Contains(output, `"chunked": true`) || !strings.Contains(output, `"mode": "password"`) {
		t.Errorf("Unexpected inspect output: %s", output)
	}

	restored := filepath.Join(dir, "restored.img")
	withStdin(t, "hunter2\n")
	mustRunCLI(t, "decrypt", "--password-stdin", "-o", restored, manifest)
	if got := readTestFile(t, restored); got != content {
		t.Errorf("Reassembled content differs: %d bytes, want %d", len(got), len(content))
	}
}

func TestVerifyDetectsTamperedPart(t *testing.T) {
	dir := setupTestEnvironment(t)
	input := writeTestFile(t, filepath.Join(dir, "disk.img"), strings.Repeat("x", 9000))

	withStdin(t, "hunter2\n")
	mustRunCLI(t, "encrypt", "--password-stdin", "--split=4KiB", input)
	manifest := findOne(t, filepath.Join(dir, "*", "manifest.json"))
	part := findOne(t, filepath.Join(filepath.Dir(manifest), "*.part002"))

	data := []byte(readTestFile(t, part))
	data[10] ^= 0xff
	if err := os.WriteFile(part, data, 0644); err != nil {
		t.Fatalf("Failed to tamper with part: %v", err)
	}

	output, err := runCLI(t, "verify", manifest)
	if !errors.Is(err, errReported) {
		t.Fatalf("Expected reported error, got %v", err)
	}
	if !strings.Contains(output, "re-created from the original file") {
		t.Errorf("Expected integrity failure message, got: %s", output)
	}
}

func TestEncryptNoMatchingFiles(t *testing.T) {
	dir := setupTestEnvironment(t)

	withStdin(t, "hunter2\n")
	output, err := runCLI(t, "encrypt", "--password-stdin", filepath.Join(dir, "missing.txt"))
	if !errors.Is(err, errReported) {
		t.Fatalf("Expected reported error, got %v", err)
	}
	if !strings.Contains(output, "not found") {
		t.Errorf("Expected not found message, got: %s", output)
	}
}

func TestEncryptPasswordAndRecipientConflict(t *testing.T) {
	dir := setupTestEnvironment(t)
	input := writeTestFile(t, filepath.Join(dir, "notes.txt"), "x")

	withStdin(t, "hunter2\n")
	output, err := runCLI(t, "encrypt", "--password-stdin", "-r", "alice", input)
	if err == nil {
		t.Fatal("Expected an error when both a password and a recipient are given")
	}
	if !strings.Contains(output, "not both") {
		t.Errorf("Unexpected output: %s", output)
	}
}

func TestInspectSingleFileContainer(t *testing.T) {
	dir := setupTestEnvironment(t)
	input := writeTestFile(t, filepath.Join(dir, "notes.txt"), "meet at noon")

	withStdin(t, "hunter2\n")
	mustRunCLI(t, "encrypt", "--password-stdin", input)
	container := findOne(t, filepath.Join(dir, "*.enc"))

	output := mustRunCLI(t, "inspect", container)
	for _, want := range []string{"Format version:", "password", "not authenticated"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output: %s", want, output)
		}
	}
	if strings.Contains(output, "notes.txt") {
		t.Errorf("Inspect revealed the encrypted filename: %s", output)
	}
}
