// device/layout.go

// Package device locates the Rekordbox export structure on a removable device.
package device

import (
	"errors"
	"fmt"
	"path/filepath"

	"RekordPdbPatcher/common"
)

var (
	// ErrNoDevice is returned when the device root is missing or not a directory
	ErrNoDevice = errors.New("device root not found")
	// ErrNoContents is returned when the device has no Contents directory
	ErrNoContents = errors.New("contents directory not found")
	// ErrNoCatalog is returned when no PIONEER/rekordbox directory exists in any casing
	ErrNoCatalog = errors.New("rekordbox catalog directory not found")
)

// Layout holds the paths of an exported device. Empty fields were not found.
type Layout struct {
	Root      string
	Contents  string
	Catalog   string
	LibraryDB string
}

// Locate inspects root and fills in whatever parts of the export structure exist.
// Only a missing root is an error; callers decide which of the remaining parts
// they require.
func Locate(root string) (Layout, error) {
	root = common.NormalizePath(root)
	if common.IsEmptyString(root) || !common.DirectoryExists(root) {
		return Layout{}, fmt.Errorf("%w: %s", ErrNoDevice, root)
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	layout := Layout{Root: root}

	contents := filepath.Join(root, common.DirNameContents)
	if common.DirectoryExists(contents) {
		layout.Contents = contents
	}

	for _, name := range common.RekordboxDirNames {
		catalog := filepath.Join(root, common.DirNamePioneer, name)
		if common.DirectoryExists(catalog) {
			layout.Catalog = catalog
			break
		}
	}

	if layout.Catalog != "" {
		db := filepath.Join(layout.Catalog, common.FileNameLibraryDB)
		if common.FileExists(db) {
			layout.LibraryDB = db
		}
	}

	return layout, nil
}

// RequireContents returns ErrNoContents when the layout has no Contents directory
func (l Layout) RequireContents() error {
	if l.Contents == "" {
		return fmt.Errorf("%w: %s", ErrNoContents, filepath.Join(l.Root, common.DirNameContents))
	}
	return nil
}

// RequireCatalog returns ErrNoCatalog when no catalog directory was found
func (l Layout) RequireCatalog() error {
	if l.Catalog == "" {
		return fmt.Errorf("%w: %s", ErrNoCatalog, filepath.Join(l.Root, common.DirNamePioneer, common.RekordboxDirNames[0]))
	}
	return nil
}
