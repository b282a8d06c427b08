package workflows

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PolarWolf314/kete/internal/container"
	"github.com/PolarWolf314/kete/internal/utils"
	"github.com/google/uuid"
)

// defaultContainerName is the name a new container gets when the user does
// not choose one. It says nothing about the plaintext.
func defaultContainerName() string {
	return uuid.NewString() + container.Extension
}

// writeAtomic streams into a temporary file next to path and renames it
// into place once write succeeds. On failure the temporary file is removed.
func writeAtomic(path string, perm os.FileMode, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := write(tmp); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail(fmt.Errorf("failed to set permissions on %s: %w", path, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// lazyFile creates its file on the first write, so a decrypt that fails
// before producing plaintext leaves nothing behind.
type lazyFile struct {
	path string
	perm os.FileMode
	f    *os.File
}

func (l *lazyFile) Write(p []byte) (int, error) {
	if l.f == nil {
		if err := l.open(); err != nil {
			return 0, err
		}
	}
	return l.f.Write(p)
}

func (l *lazyFile) open() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, l.perm)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	l.f = f
	return nil
}

// Close creates the file if nothing was written, for empty plaintexts.
func (l *lazyFile) Close() error {
	if l.f == nil {
		if err := l.open(); err != nil {
			return err
		}
	}
	return l.f.Close()
}

// abort closes the file if it was opened, keeping whatever was written.
func (l *lazyFile) abort() {
	if l.f != nil {
		l.f.Close()
	}
}

// safeFilename reduces a filename recovered from a header to a plain base
// name, so a crafted header cannot write outside the output directory.
func safeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.FromSlash(name))
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return "decrypted"
	}
	return name
}

// decryptedPath picks where plaintext goes. An explicit output is used as
// is, or as a directory when it is one; otherwise the recovered filename is
// placed next to the container without overwriting anything. The output is
// never one of inputs, even with force.
func decryptedPath(output, containerDir, recovered string, force bool, inputs []string) (string, error) {
	name := safeFilename(recovered)
	switch {
	case output == "":
		return utils.AvailablePath(filepath.Join(containerDir, name))
	case utils.IsDir(output):
		return utils.AvailablePath(filepath.Join(output, name))
	case utils.FileExists(output) && !force:
		return "", fmt.Errorf("%s already exists, use --force to overwrite", output)
	}
	if err := notAnInput(output, inputs); err != nil {
		return "", err
	}
	return output, nil
}

// notAnInput fails if path is the same file as any of inputs.
func notAnInput(path string, inputs []string) error {
	out, err := os.Stat(path)
	if err != nil {
		return nil
	}
	for _, in := range inputs {
		if info, err := os.Stat(in); err == nil && os.SameFile(out, info) {
			return fmt.Errorf("%s is also being read from, choose a different output", path)
		}
	}
	return nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// batchProgress turns per-file percentages into one percentage over all
// files, weighted by size.
type batchProgress struct {
	report container.ProgressFunc
	total  int64
	done   int64
	last   int
}

func newBatchProgress(report container.ProgressFunc, sizes []int64) *batchProgress {
	b := &batchProgress{report: report, last: -1}
	for _, s := range sizes {
		b.total += s
	}
	return b
}

// file returns the progress func for a file of size bytes; call finish
// when it is done.
func (b *batchProgress) file(size int64) (container.ProgressFunc, func()) {
	start := b.done
	fn := func(p int) {
		if b.report == nil {
			return
		}
		b.emit(start + size*int64(p)/100)
	}
	return fn, func() {
		b.done = start + size
		if b.report != nil {
			b.emit(b.done)
		}
	}
}

func (b *batchProgress) emit(done int64) {
	percent := 100
	if b.total > 0 {
		percent = int(done * 100 / b.total)
	}
	if percent != b.last {
		b.last = percent
		b.report(percent)
	}
}
