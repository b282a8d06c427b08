package workflows

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PolarWolf314/kete/internal/container"
	kerrors "github.com/PolarWolf314/kete/internal/errors"
	"github.com/bmatcuk/doublestar/v4"
)

var partPattern = regexp.MustCompile(`\.enc\.part\d{3,}$`)

// ResolveInputs expands the paths, directories and globs given to
// encrypt into a deduplicated list of plaintext files. Containers, chunk
// parts and manifests are never picked up by a directory or glob.
//
// Returns ErrFileNotFound if a literal path does not exist.
// Returns ErrNoFilesFound if nothing matched.
func ResolveInputs(patterns []string) ([]string, error) {
	return resolve(patterns, isPlaintextFile)
}

// ResolveContainers does the same for decrypt: .enc files and manifests.
func ResolveContainers(patterns []string) ([]string, error) {
	return resolve(patterns, isContainerFile)
}

func resolve(patterns []string, keep func(string) bool) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		resolved, err := resolvePattern(pattern, keep)
		if err != nil {
			return nil, err
		}
		for _, f := range resolved {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	if len(files) == 0 {
		return nil, kerrors.ErrNoFilesFound
	}
	return files, nil
}

func resolvePattern(pattern string, keep func(string) bool) ([]string, error) {
	info, err := os.Stat(pattern)
	if err == nil && info.IsDir() {
		return findFilesInDir(pattern, keep)
	}

	if strings.ContainsAny(pattern, "*?[{") {
		return expandGlob(pattern, keep)
	}

	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, pattern)
		}
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", pattern)
	}

	// A literal path is taken as given; the user asked for it by name.
	return []string{filepath.Clean(pattern)}, nil
}

func expandGlob(pattern string, keep func(string) bool) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	var filtered []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if keep(m) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

func findFilesInDir(dir string, keep func(string) bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && keep(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

func isPlaintextFile(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return false
	case base == container.ManifestName:
		return false
	case strings.HasSuffix(base, container.Extension):
		return false
	case partPattern.MatchString(base):
		return false
	}
	return true
}

func isContainerFile(path string) bool {
	base := filepath.Base(path)
	return base == container.ManifestName || strings.HasSuffix(base, container.Extension)
}

// isManifest reports whether path names a chunk manifest.
func isManifest(path string) bool {
	return strings.EqualFold(filepath.Base(path), container.ManifestName)
}
