package pid

import (
	"os"
	"strconv"
	"testing"

	"codeberg.org/mutker/wthud/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	f := NewInDir(t.TempDir(), "hud")

	require.NoError(t, f.Write())

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	// Rewriting our own pid is not a conflict.
	require.NoError(t, f.Write())

	require.NoError(t, f.Remove())
	_, err = os.Stat(f.Path())
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, f.Remove())
}

func TestStaleFileIsReplaced(t *testing.T) {
	f := NewInDir(t.TempDir(), "timer")
	require.NoError(t, os.WriteFile(f.Path(), []byte("not-a-pid"), 0o600))

	require.NoError(t, f.Write())
}

func TestLiveProcessBlocks(t *testing.T) {
	f := NewInDir(t.TempDir(), "timer")
	require.NoError(t, os.WriteFile(f.Path(), []byte(strconv.Itoa(os.Getppid())), 0o600))

	err := f.Write()
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestOverlaysUseSeparateFiles(t *testing.T) {
	dir := t.TempDir()
	assert.NotEqual(t, NewInDir(dir, "hud").Path(), NewInDir(dir, "timer").Path())
	assert.Contains(t, New("hud").Path(), "wthud-hud.pid")
}
