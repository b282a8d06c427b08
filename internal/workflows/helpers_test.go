package workflows

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/kete/internal/audit"
	"github.com/PolarWolf314/kete/internal/configs"
	"github.com/PolarWolf314/kete/internal/container"
	"github.com/stretchr/testify/require"
)

// useTempSettings points the user config and data directories at a fresh
// temporary directory, so audit entries land there.
func useTempSettings(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	original := *configs.UserKeteSettings
	configs.UserKeteSettings.UserConfigsPath = filepath.Join(dir, "config")
	configs.UserKeteSettings.UserDataPath = filepath.Join(dir, "data")
	t.Cleanup(func() { *configs.UserKeteSettings = original })
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func passwordResolver(pw string) container.KeyResolver {
	return container.StaticResolver{Password: pw}
}

func auditOps(t *testing.T) []string {
	t.Helper()
	entries, err := audit.ReadEntries()
	require.NoError(t, err)
	var ops []string
	for _, e := range entries {
		ops = append(ops, e.Operation)
	}
	return ops
}
