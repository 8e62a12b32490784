package pdb

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"RekordPdbPatcher/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalogBytes builds a pseudo catalog: random binary noise with the given
// path strings embedded at fixed offsets
func catalogBytes(seed int64, paths ...string) []byte {
	rng := rand.New(rand.NewSource(seed))
	var buf bytes.Buffer
	for _, p := range paths {
		noise := make([]byte, 64)
		rng.Read(noise)
		// keep the noise from forming extension text by accident
		for i := range noise {
			if noise[i] == '.' {
				noise[i] = 0
			}
		}
		buf.Write(noise)
		buf.WriteString(p)
	}
	buf.Write(make([]byte, 32))
	return buf.Bytes()
}

func writeCatalog(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.pdb")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestPatchReplacesAndPreservesSize(t *testing.T) {
	original := catalogBytes(1,
		"/Contents/A/01.flac", "/Contents/A/02.flac", "/Contents/B/03.flac", "/Contents/C/x.mp3")
	path := writeCatalog(t, original)

	out, err := NewPatcher(nil).Patch(path, ".flac", ".aiff")
	require.NoError(t, err)
	assert.Equal(t, 3, out.Replaced)
	assert.True(t, out.Rewritten)
	assert.True(t, out.BackupCreated)

	patched, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, patched, len(original))
	assert.Equal(t, 0, bytes.Count(patched, []byte(".flac")))
	assert.Equal(t, 3, bytes.Count(patched, []byte(".aiff")))

	for i := range original {
		if !bytes.Equal(original[i:i+1], patched[i:i+1]) {
			// only bytes inside a replaced extension may change
			window := original[max(0, i-4):min(len(original), i+5)]
			assert.Contains(t, string(window), ".flac", "unexpected change at offset %d", i)
		}
	}
}

func TestPatchCountMatchesNonOverlappingOccurrences(t *testing.T) {
	data := []byte(".m4a.m4a..m4a\x00x.m4a.m4")
	path := writeCatalog(t, data)

	out, err := NewPatcher(nil).Patch(path, ".m4a", ".mp3")
	require.NoError(t, err)
	assert.Equal(t, bytes.Count(data, []byte(".m4a")), out.Replaced)
	assert.Equal(t, 4, out.Replaced)
}

func TestPatchIsIdempotent(t *testing.T) {
	path := writeCatalog(t, catalogBytes(2, "a.flac", "b.flac"))
	p := NewPatcher(nil)

	_, err := p.Patch(path, ".flac", ".aiff")
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	out, err := NewPatcher(nil).Patch(path, ".flac", ".aiff")
	require.ErrorIs(t, err, ErrNoSuchReferences)
	assert.True(t, out.NoReferences())
	assert.False(t, out.Rewritten)
	assert.Zero(t, out.Replaced)

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPatchBackupHoldsPreRunBytesAcrossPairs(t *testing.T) {
	original := catalogBytes(3, "a.flac", "b.flac", "c.flac", "d.m4a")
	path := writeCatalog(t, original)
	p := NewPatcher(nil)

	outcomes := p.PatchAll(path, [][2]string{{".flac", ".aiff"}, {".m4a", ".mp3"}, {".ogg", ".mp3"}})
	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].BackupCreated)
	assert.False(t, outcomes[1].BackupCreated)
	assert.Equal(t, 3, outcomes[0].Replaced)
	assert.Equal(t, 1, outcomes[1].Replaced)
	assert.True(t, outcomes[2].NoReferences())

	backup, err := os.ReadFile(BackupPath(path))
	require.NoError(t, err)
	assert.Equal(t, original, backup)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "export.pdb.backup"), outcomes[0].BackupPath)
}

func TestPatchLengthMismatchTouchesNothing(t *testing.T) {
	original := catalogBytes(4, "a.flac")
	path := writeCatalog(t, original)

	out, err := NewPatcher(nil).Patch(path, ".flac", ".mp3")
	require.ErrorIs(t, err, ErrLengthMismatch)
	assert.False(t, out.BackupCreated)
	assert.NoFileExists(t, BackupPath(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestPatchLengthIsMeasuredInBytes(t *testing.T) {
	path := writeCatalog(t, []byte("x.flac"))
	// four characters, five bytes
	_, err := NewPatcher(nil).Patch(path, ".fla", ".flä")
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestPatchMissingFileIsIOError(t *testing.T) {
	_, err := NewPatcher(nil).Patch(filepath.Join(t.TempDir(), "export.pdb"), ".flac", ".aiff")
	require.Error(t, err)
	assert.True(t, common.IsIOError(err))
}

func TestPatchEmptyExtension(t *testing.T) {
	path := writeCatalog(t, []byte("abc"))
	_, err := NewPatcher(nil).Patch(path, "", "")
	require.ErrorIs(t, err, ErrEmptyExtension)
}

func TestRestore(t *testing.T) {
	original := catalogBytes(5, "a.flac")
	path := writeCatalog(t, original)
	_, err := NewPatcher(nil).Patch(path, ".flac", ".aiff")
	require.NoError(t, err)

	require.NoError(t, Restore(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)

	err = Restore(filepath.Join(t.TempDir(), "export.pdb"))
	assert.True(t, common.IsIOError(err))
}

func TestFindTargets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"export.pdb", "exportExt.pdb", "export.pdb.backup", "export.pdb.2026-01-02@03_04_05.backup", "._export.pdb", "exportLibrary.db", "DEVSETTING.DAT"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	targets, err := FindTargets(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "export.pdb"), filepath.Join(dir, "exportExt.pdb")}, targets)

	_, err = FindTargets(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestCountReferences(t *testing.T) {
	path := writeCatalog(t, catalogBytes(6, "a.flac", "b.flac", "c.m4a"))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	counts, err := CountReferences(path, []string{".flac", ".m4a", ".ogg"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{".flac": 2, ".m4a": 1, ".ogg": 0}, counts)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	empty := writeCatalog(t, nil)
	counts, err = CountReferences(empty, []string{".flac"})
	require.NoError(t, err)
	assert.Equal(t, 0, counts[".flac"])
}

func TestSecondRunKeepsFirstBackup(t *testing.T) {
	original := catalogBytes(9, "/Contents/a.flac", "/Contents/b.m4a")
	path := writeCatalog(t, original)

	_, err := NewPatcher(nil).Patch(path, ".flac", ".aiff")
	require.NoError(t, err)
	afterFirst, err := os.ReadFile(path)
	require.NoError(t, err)

	firstRun := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	require.NoError(t, os.Chtimes(BackupPath(path), firstRun, firstRun))

	out, err := NewPatcher(nil).Patch(path, ".m4a", ".mp3")
	require.NoError(t, err)
	assert.True(t, out.BackupCreated)

	kept, err := os.ReadFile(RotatedBackupPath(path, firstRun))
	require.NoError(t, err)
	assert.Equal(t, original, kept)

	latest, err := os.ReadFile(BackupPath(path))
	require.NoError(t, err)
	assert.Equal(t, afterFirst, latest)

	targets, err := FindTargets(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, targets)
}
