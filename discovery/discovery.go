// discovery/discovery.go

// Package discovery walks the device content tree and sorts audio files into
// convertible and compatible sets.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"RekordPdbPatcher/common"
	"RekordPdbPatcher/formats"
)

// AudioFile is a discovered file. It is never mutated after discovery.
// Ext is lower-case; RawExt keeps the spelling found on disk, which is what
// the catalog files refer to.
type AudioFile struct {
	Path   string
	Ext    string
	RawExt string
	Class  formats.Classification
}

// SourceExt returns the extension as spelled on disk, falling back to Ext
func (f AudioFile) SourceExt() string {
	if f.RawExt != "" {
		return f.RawExt
	}
	return f.Ext
}

// RelPath returns the path of the file relative to root.
func (f AudioFile) RelPath(root string) (string, error) {
	return filepath.Rel(root, f.Path)
}

// Result holds the outcome of one discovery pass.
type Result struct {
	Root          string
	Convertible   []AudioFile
	Compatible    []AudioFile
	Ignored       int
	HiddenSkipped int
	Unreadable    int
}

// Total returns the number of recognized audio files
func (r Result) Total() int {
	return len(r.Convertible) + len(r.Compatible)
}

// Extensions returns the distinct extensions of the convertible files, sorted
func (r Result) Extensions() []string {
	seen := make(map[string]struct{})
	for _, f := range r.Convertible {
		seen[f.Ext] = struct{}{}
	}
	exts := make([]string, 0, len(seen))
	for ext := range seen {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Discover walks root once and classifies every regular file.
// Names starting with "._" are skipped, directories included, and unknown
// extensions are counted but not returned. Entries that cannot be read are
// logged and skipped. Slices are sorted by path for stable reporting only.
func Discover(root string, classifier *formats.Classifier, logger *common.Logger) (Result, error) {
	result := Result{Root: root}

	info, err := os.Stat(root)
	if err != nil {
		return result, fmt.Errorf("content directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("content directory %s is not a directory", root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return result, fmt.Errorf("content directory %s: %w", root, err)
	}
	result.Root = absRoot

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == absRoot {
				return walkErr
			}
			logger.Warning("Skipping unreadable entry %s: %v", path, walkErr)
			result.Unreadable++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path != absRoot && strings.HasPrefix(d.Name(), common.HiddenFilePrefix) {
			result.HiddenSkipped++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rawExt := filepath.Ext(d.Name())
		ext := formats.Normalize(rawExt)
		class := classifier.Classify(ext)
		file := AudioFile{Path: path, Ext: ext, RawExt: rawExt, Class: class}

		switch class.Kind {
		case formats.Convertible:
			result.Convertible = append(result.Convertible, file)
		case formats.Compatible:
			result.Compatible = append(result.Compatible, file)
		default:
			result.Ignored++
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walking %s: %w", absRoot, err)
	}

	sortByPath(result.Convertible)
	sortByPath(result.Compatible)

	logger.Info("Discovered %d convertible and %d compatible files under %s (%d ignored, %d hidden skipped)",
		len(result.Convertible), len(result.Compatible), absRoot, result.Ignored, result.HiddenSkipped)

	return result, nil
}

func sortByPath(files []AudioFile) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
}
