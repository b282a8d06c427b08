package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileExists reports whether path exists. Permission errors count as existing
// so callers never overwrite something they could not inspect.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// AvailablePath returns path if nothing exists there, otherwise the first of
// "name (1).ext", "name (2).ext", ... that is free.
func AvailablePath(path string) (string, error) {
	if !FileExists(path) {
		return path, nil
	}
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; i < 1000; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if !FileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free file name next to %s", path)
}
