package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/wthud/internal/errors"
)

const prefix = "wthud-"

// File guards against a second instance of the same overlay.
type File struct {
	path string
}

// New returns the guard for the named overlay in the OS temp directory.
func New(name string) *File {
	return NewInDir(os.TempDir(), name)
}

func NewInDir(dir, name string) *File {
	return &File{path: filepath.Join(dir, prefix+name+".pid")}
}

func (f *File) Path() string {
	return f.path
}

// Write records the current process ID. It fails with ErrAlreadyRunning when
// the file names another live process; stale files are replaced.
func (f *File) Write() error {
	errFactory := errors.New()
	self := os.Getpid()

	if data, err := os.ReadFile(f.path); err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err == nil && pid != self && processAlive(pid) {
			return errFactory.WithData(errors.ErrAlreadyRunning, pid)
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(f.path, []byte(strconv.Itoa(self)), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove deletes the PID file.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}
