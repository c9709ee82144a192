package driver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockfileRoundTripNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockfileFileName)
	lock := NewLockfile("ffi-shapes", " untagged 0.1.0 ")
	lock.Packages = []*LockedPackage{
		{Name: "zeta", Version: "v2@abc", Source: "git+https://example.com/zeta.git@abc", Checksum: "ff", Dependencies: []string{"beta-lib", "alpha"}},
		nil,
		{Name: "alpha", Version: "0.1.0", Source: "path:/tmp/alpha"},
	}
	require.NoError(t, WriteLockfile(lock, path))

	loaded, err := LoadLockfile(path)
	require.NoError(t, err)
	require.Equal(t, "ffi_shapes", loaded.Root)
	require.Equal(t, "untagged 0.1.0", loaded.Tool)
	require.NotEmpty(t, loaded.Generated)
	require.Len(t, loaded.Packages, 2)
	require.Equal(t, "alpha", loaded.Packages[0].Name)
	require.Equal(t, []string{"alpha", "beta_lib"}, loaded.Packages[1].Dependencies)

	zeta, ok := loaded.Package("zeta")
	require.True(t, ok)
	require.True(t, zeta.Equal(lock.Packages[1]))
	require.False(t, zeta.Equal(loaded.Packages[0]))
}

func TestLoadLockfileMissing(t *testing.T) {
	_, err := LoadLockfile(filepath.Join(t.TempDir(), LockfileFileName))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadLockfileRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockfileFileName)
	require.NoError(t, os.WriteFile(path, []byte("root: app\nextra: 1\n"), 0o644))
	_, err := LoadLockfile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "extra")
}
