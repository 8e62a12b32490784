package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"RekordPdbPatcher/converter"
	"RekordPdbPatcher/discovery"
	"RekordPdbPatcher/formats"
	"RekordPdbPatcher/library"
	"RekordPdbPatcher/pdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEncoder writes a small output file, or fails for sources whose base name is listed
type stubEncoder struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (e *stubEncoder) Encode(ctx context.Context, src, dst string, target formats.TargetFormat) error {
	e.mu.Lock()
	e.calls = append(e.calls, filepath.Base(src))
	e.mu.Unlock()

	if e.fail[filepath.Base(src)] {
		return &converter.EncodeError{Source: src, ExitCode: 1, Diagnostic: "Invalid data found when processing input"}
	}
	return os.WriteFile(dst, []byte("converted "+target.Name), 0644)
}

type testDevice struct {
	root     string
	contents string
	catalog  string
	pdb      string
	original []byte
}

// newDevice lays out Contents with the given files and one export.pdb
func newDevice(t *testing.T, files []string, catalog []byte) testDevice {
	t.Helper()
	root := t.TempDir()
	d := testDevice{
		root:     root,
		contents: filepath.Join(root, "Contents"),
		catalog:  filepath.Join(root, "PIONEER", "rekordbox"),
		original: catalog,
	}
	require.NoError(t, os.MkdirAll(d.contents, 0755))
	require.NoError(t, os.MkdirAll(d.catalog, 0755))
	for _, f := range files {
		path := filepath.Join(d.contents, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("audio "+f), 0644))
	}
	d.pdb = filepath.Join(d.catalog, "export.pdb")
	require.NoError(t, os.WriteFile(d.pdb, catalog, 0644))
	return d
}

// scenarioCatalog holds ".flac" three times and ".m4a" once between binary fields
func scenarioCatalog() []byte {
	var b bytes.Buffer
	b.Write([]byte{0x00, 0x01, 0x02, 0x03})
	b.WriteString("/Contents/a.flac")
	b.Write([]byte{0x00, 0x00, 0x17, 0x9a})
	b.WriteString("/Contents/old/x.flac")
	b.Write([]byte{0xff, 0x00})
	b.WriteString("/Contents/old/y.flac")
	b.Write([]byte{0x10})
	b.WriteString("/Contents/c.m4a")
	b.Write([]byte{0x00, 0x00, 0x00})
	b.WriteString("/Contents/b.wav")
	b.Write(make([]byte, 16))
	return b.Bytes()
}

func newTestPipeline(opts Options, enc converter.Encoder) *Pipeline {
	p := New(opts, nil)
	p.Encoder = enc
	p.Available = func(context.Context) bool { return true }
	return p
}

func testOptions(t *testing.T, root string) Options {
	opts := DefaultOptions(root)
	opts.StagingRoot = t.TempDir()
	opts.Concurrency = 2
	return opts
}

func TestFullRunScenario(t *testing.T) {
	for _, staged := range []bool{true, false} {
		name := "direct"
		if staged {
			name = "staged"
		}
		t.Run(name, func(t *testing.T) {
			d := newDevice(t, []string{"a.flac", "b.wav", "c.m4a"}, scenarioCatalog())
			opts := testOptions(t, d.root)
			opts.Staged = staged

			var snapshots []converter.Snapshot
			p := newTestPipeline(opts, &stubEncoder{})
			p.Observer = func(s converter.Snapshot) { snapshots = append(snapshots, s) }

			report, err := p.Run(context.Background())
			require.NoError(t, err)

			assert.FileExists(t, filepath.Join(d.contents, "a.aiff"))
			assert.FileExists(t, filepath.Join(d.contents, "c.mp3"))
			assert.NoFileExists(t, filepath.Join(d.contents, "a.flac"))
			assert.NoFileExists(t, filepath.Join(d.contents, "c.m4a"))
			wav, err := os.ReadFile(filepath.Join(d.contents, "b.wav"))
			require.NoError(t, err)
			assert.Equal(t, "audio b.wav", string(wav))

			patched, err := os.ReadFile(d.pdb)
			require.NoError(t, err)
			assert.Len(t, patched, len(d.original))
			assert.Equal(t, 3, bytes.Count(patched, []byte(".aiff")))
			assert.Equal(t, 1, bytes.Count(patched, []byte(".mp3")))
			assert.Zero(t, bytes.Count(patched, []byte(".flac")))
			assert.Zero(t, bytes.Count(patched, []byte(".m4a")))

			backup, err := os.ReadFile(d.pdb + ".backup")
			require.NoError(t, err)
			assert.Equal(t, d.original, backup)

			assert.Equal(t, name, report.Strategy)
			assert.Equal(t, 2, report.Conversion.Succeeded)
			assert.Zero(t, report.Conversion.Failed)
			assert.Equal(t, 1, report.Compatible())
			assert.Equal(t, Mapping{{".flac", ".aiff"}, {".m4a", ".mp3"}}, report.Mapping)
			assert.Equal(t, 1, report.Patched)
			assert.Equal(t, 4, report.Replaced)
			assert.Zero(t, report.PatchErrors)
			assert.False(t, report.HasFailures())
			assert.NotEmpty(t, report.RunID)

			require.NotEmpty(t, snapshots)
			last := snapshots[len(snapshots)-1]
			assert.Equal(t, 2, last.Encoded)
			if staged {
				assert.Equal(t, 2, last.CopiedBack)
			}

			staging, err := os.ReadDir(opts.StagingRoot)
			require.NoError(t, err)
			assert.Empty(t, staging)
		})
	}
}

func TestFullRunKeepOriginals(t *testing.T) {
	d := newDevice(t, []string{"a.flac", "b.wav", "c.m4a"}, scenarioCatalog())
	opts := testOptions(t, d.root)
	opts.KeepOriginals = true

	_, err := newTestPipeline(opts, &stubEncoder{}).Run(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(d.contents, "a.flac"))
	assert.FileExists(t, filepath.Join(d.contents, "c.m4a"))
	assert.FileExists(t, filepath.Join(d.contents, "a.aiff"))
	assert.FileExists(t, filepath.Join(d.contents, "c.mp3"))
}

func TestFullRunOneEncoderFailure(t *testing.T) {
	d := newDevice(t, []string{"Artist/a.flac", "Artist/b.flac", "c.m4a"}, scenarioCatalog())
	enc := &stubEncoder{fail: map[string]bool{"b.flac": true}}

	report, err := newTestPipeline(testOptions(t, d.root), enc).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Conversion.Total)
	assert.Equal(t, 2, report.Conversion.Succeeded)
	assert.Equal(t, 1, report.Conversion.Failed)
	assert.Zero(t, report.Conversion.IOFailures)
	assert.True(t, report.HasFailures())

	original, err := os.ReadFile(filepath.Join(d.contents, "Artist", "b.flac"))
	require.NoError(t, err)
	assert.Equal(t, "audio Artist/b.flac", string(original))
	assert.NoFileExists(t, filepath.Join(d.contents, "Artist", "b.aiff"))
	assert.FileExists(t, filepath.Join(d.contents, "Artist", "a.aiff"))

	lines := report.FailureLines(0, 0)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], filepath.Join("Contents", "Artist", "b.flac")+": "))
	assert.Contains(t, lines[0], "Invalid data found")
	assert.Zero(t, report.RemainingFailures(0))
}

func TestNoSuchReferencesIsSoft(t *testing.T) {
	catalog := []byte("\x00/Contents/a.flac\x00")
	d := newDevice(t, []string{"a.flac", "c.m4a"}, catalog)

	report, err := newTestPipeline(testOptions(t, d.root), &stubEncoder{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.NoReferences)
	assert.Zero(t, report.PatchErrors)
	assert.Equal(t, 1, report.Patched)
	assert.False(t, report.HasFailures())
	assert.Empty(t, report.FailureLines(5, 200))
}

func TestEveryCatalogFileIsPatched(t *testing.T) {
	d := newDevice(t, []string{"a.flac"}, []byte("x.flac y.flac"))
	ext := filepath.Join(d.catalog, "exportExt.pdb")
	require.NoError(t, os.WriteFile(ext, []byte("z.flac"), 0644))

	report, err := newTestPipeline(testOptions(t, d.root), &stubEncoder{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{d.pdb, ext}, report.Targets)
	assert.Equal(t, 2, report.Patched)
	assert.Equal(t, 3, report.Replaced)

	data, err := os.ReadFile(ext)
	require.NoError(t, err)
	assert.Equal(t, "z.aiff", string(data))
	assert.FileExists(t, ext+".backup")
}

func TestPreconditionsFailBeforeAnyChange(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, d testDevice) Options
		wantErr error
	}{
		{
			name: "missing device",
			setup: func(t *testing.T, d testDevice) Options {
				return testOptions(t, filepath.Join(d.root, "missing"))
			},
		},
		{
			name: "missing contents",
			setup: func(t *testing.T, d testDevice) Options {
				require.NoError(t, os.Rename(d.contents, filepath.Join(d.root, "Music")))
				return testOptions(t, d.root)
			},
		},
		{
			name: "no catalog files",
			setup: func(t *testing.T, d testDevice) Options {
				require.NoError(t, os.Rename(d.pdb, filepath.Join(d.catalog, "export.bak")))
				return testOptions(t, d.root)
			},
			wantErr: ErrNoTargets,
		},
		{
			name: "staging root is not a directory",
			setup: func(t *testing.T, d testDevice) Options {
				opts := testOptions(t, d.root)
				opts.Staged = true
				opts.StagingRoot = filepath.Join(d.root, "staging-file")
				require.NoError(t, os.WriteFile(opts.StagingRoot, nil, 0644))
				return opts
			},
		},
		{
			name: "extra group with wrong length",
			setup: func(t *testing.T, d testDevice) Options {
				opts := testOptions(t, d.root)
				opts.ExtraGroups = map[string][]string{"mp3": {".opus"}}
				return opts
			},
			wantErr: formats.ErrGroupLengthMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDevice(t, []string{"a.flac"}, scenarioCatalog())
			opts := tt.setup(t, d)
			enc := &stubEncoder{}

			_, err := newTestPipeline(opts, enc).Run(context.Background())
			require.Error(t, err)
			assert.True(t, IsPrecondition(err))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, enc.calls)
			assert.NoFileExists(t, d.pdb+".backup")
		})
	}
}

func TestEncoderUnavailable(t *testing.T) {
	d := newDevice(t, []string{"a.flac"}, scenarioCatalog())
	p := newTestPipeline(testOptions(t, d.root), &stubEncoder{})
	p.Available = func(context.Context) bool { return false }

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrEncoderUnavailable)
	assert.True(t, IsPrecondition(err))
	assert.FileExists(t, filepath.Join(d.contents, "a.flac"))

	// nothing to convert, so the encoder is not needed
	d = newDevice(t, []string{"b.wav"}, scenarioCatalog())
	p = newTestPipeline(testOptions(t, d.root), &stubEncoder{})
	p.Available = func(context.Context) bool { return false }
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Mapping)
	assert.NoFileExists(t, d.pdb+".backup")
}

func TestPatchOnlyInfersMapping(t *testing.T) {
	d := newDevice(t, nil, []byte("a.flac b.ogg c.wma d.mp3"))
	require.NoError(t, os.RemoveAll(d.contents))
	opts := testOptions(t, d.root)
	opts.Mode = ModePatchOnly
	enc := &stubEncoder{}

	p := newTestPipeline(opts, enc)
	p.Available = func(context.Context) bool { return false }
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, enc.calls)

	data, err := os.ReadFile(d.pdb)
	require.NoError(t, err)
	assert.Equal(t, "a.aiff b.mp3 c.mp3 d.mp3", string(data))
	assert.Equal(t, InferMapping(formats.Default()), report.Mapping)
	assert.Equal(t, 3, report.Replaced)
	assert.Equal(t, 2, report.NoReferences)
}

func TestConvertOnlyLeavesCatalog(t *testing.T) {
	d := newDevice(t, []string{"a.flac"}, scenarioCatalog())
	opts := testOptions(t, d.root)
	opts.Mode = ModeConvertOnly

	report, err := newTestPipeline(opts, &stubEncoder{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Conversion.Succeeded)
	assert.Empty(t, report.Patches)

	data, err := os.ReadFile(d.pdb)
	require.NoError(t, err)
	assert.Equal(t, d.original, data)
	assert.NoFileExists(t, d.pdb+".backup")
}

func TestDryRunWritesNothing(t *testing.T) {
	d := newDevice(t, []string{"a.flac", "b.wav", "c.m4a"}, scenarioCatalog())
	opts := testOptions(t, d.root)
	opts.DryRun = true
	enc := &stubEncoder{}

	p := newTestPipeline(opts, enc)
	p.Available = func(context.Context) bool { return false }
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, enc.calls)
	assert.True(t, report.DryRun)
	assert.Equal(t, map[string]map[string]int{d.pdb: {".flac": 3, ".m4a": 1}}, report.References)
	assert.FileExists(t, filepath.Join(d.contents, "a.flac"))
	assert.NoFileExists(t, filepath.Join(d.contents, "a.aiff"))
	assert.NoFileExists(t, d.pdb+".backup")

	data, err := os.ReadFile(d.pdb)
	require.NoError(t, err)
	assert.Equal(t, d.original, data)
}

func TestCancelledRunCountsFailures(t *testing.T) {
	d := newDevice(t, []string{"a.flac", "c.m4a"}, scenarioCatalog())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestPipeline(testOptions(t, d.root), &stubEncoder{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Conversion.Failed)
	assert.Empty(t, report.Mapping)
	assert.FileExists(t, filepath.Join(d.contents, "a.flac"))

	data, err := os.ReadFile(d.pdb)
	require.NoError(t, err)
	assert.Equal(t, d.original, data)
}

func TestRestore(t *testing.T) {
	d := newDevice(t, []string{"a.flac", "c.m4a"}, scenarioCatalog())
	_, err := newTestPipeline(testOptions(t, d.root), &stubEncoder{}).Run(context.Background())
	require.NoError(t, err)

	restored, err := Restore(d.root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{d.pdb}, restored)

	data, err := os.ReadFile(d.pdb)
	require.NoError(t, err)
	assert.Equal(t, d.original, data)

	fresh := newDevice(t, nil, scenarioCatalog())
	_, err = Restore(fresh.root, nil)
	assert.ErrorIs(t, err, ErrNoBackups)
}

func TestLibraryStepFailureIsNotFatal(t *testing.T) {
	d := newDevice(t, []string{"a.flac"}, scenarioCatalog())
	require.NoError(t, os.WriteFile(filepath.Join(d.catalog, "exportLibrary.db"), []byte("not a database"), 0644))
	opts := testOptions(t, d.root)
	opts.Library = library.ModeInspect

	report, err := newTestPipeline(opts, &stubEncoder{}).Run(context.Background())
	require.NoError(t, err)
	assert.Error(t, report.LibraryErr)
	assert.True(t, report.HasFailures())
	assert.Equal(t, 1, report.Patched)

	lines := report.FailureLines(5, 40)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "exportLibrary.db: "))
}

func TestMapping(t *testing.T) {
	m := InferMapping(formats.Default())
	assert.Equal(t, Mapping{
		{".aac", ".mp3"}, {".flac", ".aiff"}, {".m4a", ".mp3"}, {".ogg", ".mp3"}, {".wma", ".mp3"},
	}, m)
	require.NoError(t, m.Validate())

	classifier := formats.Default()
	planned := PlanMapping([]discovery.AudioFile{
		{Path: "/x/a.flac", Ext: ".flac", RawExt: ".flac", Class: classifier.Classify(".flac")},
		{Path: "/x/B.FLAC", Ext: ".flac", RawExt: ".FLAC", Class: classifier.Classify(".flac")},
		{Path: "/x/c.wav", Ext: ".wav", RawExt: ".wav", Class: classifier.Classify(".wav")},
	})
	assert.Equal(t, Mapping{{".FLAC", ".AIFF"}, {".flac", ".aiff"}}, planned)
	assert.Equal(t, [][2]string{{".FLAC", ".AIFF"}, {".flac", ".aiff"}}, planned.Pairs())

	bad := Mapping{{".flac", ".mp3"}}
	assert.ErrorIs(t, bad.Validate(), ErrMappingLength)

	results := []converter.Result{
		{Success: true, Task: converter.Task{File: fileWithExt(".m4a"), Target: formats.MP3}},
		{Success: false, Task: converter.Task{File: fileWithExt(".ogg"), Target: formats.MP3}},
		{Success: true, Task: converter.Task{File: fileWithExt(".flac"), Target: formats.AIFF}},
	}
	assert.Equal(t, Mapping{{".flac", ".aiff"}, {".m4a", ".mp3"}}, DeriveMapping(results))
	assert.Equal(t, ".flac -> .aiff, .m4a -> .mp3", DeriveMapping(results).String())
}

func TestFailureLinesAreBounded(t *testing.T) {
	var failures []converter.Result
	for i := 0; i < 8; i++ {
		failures = append(failures, converter.Result{
			Task: converter.Task{File: fileWithExt(".flac")},
			Err:  errors.New(strings.Repeat("x", 500)),
		})
	}
	report := &Report{Conversion: converter.Summary{Failed: 8, Failures: failures}}

	lines := report.FailureLines(0, 0)
	assert.Len(t, lines, DefaultFailureLines)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), len("/x/track.flac: ...")+DefaultDiagnosticLength)
	}
	assert.Equal(t, 3, report.RemainingFailures(0))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("patch-only")
	require.NoError(t, err)
	assert.Equal(t, ModePatchOnly, m)
	assert.False(t, m.Converts())
	assert.True(t, m.Patches())

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, m)

	_, err = ParseMode("everything")
	assert.Error(t, err)
}

func TestPatchErrorsAreReported(t *testing.T) {
	d := newDevice(t, []string{"a.flac"}, scenarioCatalog())
	// a directory where the backup should go makes the backup copy fail
	require.NoError(t, os.Mkdir(pdb.BackupPath(d.pdb), 0755))

	report, err := newTestPipeline(testOptions(t, d.root), &stubEncoder{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.PatchErrors)
	assert.Zero(t, report.Patched)
	assert.True(t, report.HasFailures())

	data, err := os.ReadFile(d.pdb)
	require.NoError(t, err)
	assert.Equal(t, d.original, data)
}

func fileWithExt(ext string) discovery.AudioFile {
	return discovery.AudioFile{Path: "/x/track" + ext, Ext: ext}
}

func TestUpperCaseExtensionsStayResolvable(t *testing.T) {
	for _, staged := range []bool{true, false} {
		t.Run(fmt.Sprintf("staged=%t", staged), func(t *testing.T) {
			catalog := []byte("\x00/Contents/Track.FLAC\x00/Contents/mix.Flac\x00/Contents/a.flac\x00")
			d := newDevice(t, []string{"Track.FLAC", "mix.Flac", "a.flac"}, catalog)
			opts := testOptions(t, d.root)
			opts.Staged = staged

			report, err := newTestPipeline(opts, &stubEncoder{}).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 3, report.Conversion.Succeeded)
			assert.Equal(t, Mapping{{".FLAC", ".AIFF"}, {".Flac", ".Aiff"}, {".flac", ".aiff"}}, report.Mapping)
			assert.Equal(t, 3, report.Replaced)

			patched, err := os.ReadFile(d.pdb)
			require.NoError(t, err)
			assert.Len(t, patched, len(catalog))
			for _, name := range []string{"Track.AIFF", "mix.Aiff", "a.aiff"} {
				assert.Contains(t, string(patched), "/Contents/"+name)
				assert.FileExists(t, filepath.Join(d.contents, name))
			}
			assert.NotContains(t, strings.ToLower(string(patched)), ".flac")
		})
	}
}

func TestSameStemSourcesKeepOneOriginal(t *testing.T) {
	for _, staged := range []bool{true, false} {
		t.Run(fmt.Sprintf("staged=%t", staged), func(t *testing.T) {
			catalog := []byte("|/Contents/song.m4a|/Contents/song.ogg|")
			d := newDevice(t, []string{"song.m4a", "song.ogg"}, catalog)
			opts := testOptions(t, d.root)
			opts.Staged = staged

			report, err := newTestPipeline(opts, &stubEncoder{}).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, report.Conversion.Succeeded)
			assert.Equal(t, 1, report.Conversion.Failed)
			require.Len(t, report.Conversion.Failures, 1)
			assert.ErrorIs(t, report.Conversion.Failures[0].Err, converter.ErrOutputExists)

			assert.FileExists(t, filepath.Join(d.contents, "song.mp3"))
			assert.NoFileExists(t, filepath.Join(d.contents, "song.m4a"))
			assert.FileExists(t, filepath.Join(d.contents, "song.ogg"))

			// only the converted source is remapped; the other reference still resolves
			assert.Equal(t, Mapping{{".m4a", ".mp3"}}, report.Mapping)
			patched, err := os.ReadFile(d.pdb)
			require.NoError(t, err)
			assert.Equal(t, "|/Contents/song.mp3|/Contents/song.ogg|", string(patched))
		})
	}
}
