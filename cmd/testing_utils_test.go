package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/kete/internal/configs"
	logger "github.com/PolarWolf314/kete/internal/logging"
)

const testMasterPassword = "correct horse battery staple"

// setupTestEnvironment points the user settings at a temporary directory,
// supplies the keyring master password through the environment and returns
// a scratch directory for test files.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()
	tempUserDir := t.TempDir()

	originalUserSettings := *configs.UserKeteSettings
	configs.UserKeteSettings.UserConfigsPath = filepath.Join(tempUserDir, "config")
	configs.UserKeteSettings.UserDataPath = filepath.Join(tempUserDir, "data")
	configs.UserKeteSettings.Username = "testuser"

	t.Setenv(configs.MasterPasswordEnv, testMasterPassword)
	t.Setenv(configs.KeyringEnv, "")

	t.Cleanup(func() {
		*configs.UserKeteSettings = originalUserSettings
		ResetGlobalState()
	})
	return t.TempDir()
}

// withStdin makes the commands read content instead of the real stdin.
func withStdin(t *testing.T, content string) {
	t.Helper()
	original := stdin
	stdin = strings.NewReader(content)
	t.Cleanup(func() { stdin = original })
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	stdoutChan := make(chan string, 1)
	stderrChan := make(chan string, 1)

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stdoutReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stdoutChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stderrReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stderrChan <- buf.String()
	}()

	err := fn()

	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	return <-stdoutChan + <-stderrChan, err
}

// runCLI executes kete with args on a clean command tree and returns the
// combined output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ResetGlobalState()
	SetLogger(logger.Logger{})
	RootCmd.SetArgs(args)
	return captureOutput(RootCmd.Execute)
}

// mustRunCLI is runCLI for commands that are expected to succeed.
func mustRunCLI(t *testing.T, args ...string) string {
	t.Helper()
	output, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("kete %s failed: %v\nOutput: %s", strings.Join(args, " "), err, output)
	}
	return output
}

func writeTestFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

// findOne returns the single path matching pattern.
func findOne(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(pattern)
	if err != nil {
		t.Fatalf("Bad pattern %s: %v", pattern, err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected one match for %s, got %v", pattern, matches)
	}
	return matches[0]
}

// initKeyringWithKey creates a keyring holding one unprotected 2048-bit key pair.
func initKeyringWithKey(t *testing.T, name string) {
	t.Helper()
	mustRunCLI(t, "keys", "init")
	mustRunCLI(t, "keys", "generate", name, "--bits", "2048")
}
