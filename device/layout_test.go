package device

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateFullLayout(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Contents", "Artist"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "PIONEER", "rekordbox"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "PIONEER", "rekordbox", "exportLibrary.db"), []byte("x"), 0644))

	layout, err := Locate(root)
	require.NoError(t, err)
	assert.Equal(t, root, layout.Root)
	assert.Equal(t, filepath.Join(root, "Contents"), layout.Contents)
	assert.Equal(t, filepath.Join(root, "PIONEER", "rekordbox"), layout.Catalog)
	assert.Equal(t, filepath.Join(root, "PIONEER", "rekordbox", "exportLibrary.db"), layout.LibraryDB)
	assert.NoError(t, layout.RequireContents())
	assert.NoError(t, layout.RequireCatalog())
}

func TestLocateAlternateCasing(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("needs a case-sensitive file system")
	}
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "PIONEER", "REKORDBOX"), 0755))

	layout, err := Locate(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "PIONEER", "REKORDBOX"), layout.Catalog)
	assert.Empty(t, layout.LibraryDB)
	assert.ErrorIs(t, layout.RequireContents(), ErrNoContents)
}

func TestLocateMissingParts(t *testing.T) {
	root := t.TempDir()

	layout, err := Locate(root)
	require.NoError(t, err)
	assert.ErrorIs(t, layout.RequireCatalog(), ErrNoCatalog)
	assert.ErrorIs(t, layout.RequireContents(), ErrNoContents)

	_, err = Locate(filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, ErrNoDevice)

	_, err = Locate("")
	assert.ErrorIs(t, err, ErrNoDevice)
}
