package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/wthud/internal/errors"
	"github.com/gofrs/flock"
	"github.com/spf13/viper"
)

const (
	lockSuffix     = ".lock"
	lockTimeout    = 5 * time.Second
	lockRetryDelay = 10 * time.Millisecond

	renameAttempts = 5
	renameBackoff  = 20 * time.Millisecond
)

// lockFile takes the cross-process lock guarding path and returns its release.
func lockFile(path string) (func(), error) {
	errFactory := errors.New()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errFactory.Wrap(errors.ErrWriteConfig, err)
		}
	}

	lock := flock.New(path + lockSuffix)

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrConfigLocked, err)
	}
	if !ok {
		return nil, errFactory.WithData(errors.ErrConfigLocked, path+lockSuffix)
	}

	return func() { _ = lock.Unlock() }, nil
}

// writeAtomic writes v to a temp file beside path and renames it into place,
// so readers see either the old or the new file, never a truncated one.
func writeAtomic(v *viper.Viper, path string) error {
	errFactory := errors.New()

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+strings.TrimSuffix(base, ext)+".*"+ext)
	if err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := v.WriteConfigAs(tmpPath); err != nil {
		os.Remove(tmpPath)
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}

	if err := rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}

	return nil
}

// rename retries briefly; on Windows the target may be open in a reader
// that did not ask for delete sharing.
func rename(from, to string) error {
	var err error
	for i := 0; i < renameAttempts; i++ {
		if err = os.Rename(from, to); err == nil {
			return nil
		}
		time.Sleep(renameBackoff)
	}
	return err
}
