// pdb/targets.go

package pdb

import (
	"fmt"
	"path/filepath"
	"strings"

	"RekordPdbPatcher/common"
)

// FindTargets returns every catalog file (*.pdb, any case) directly inside
// catalogDir, sorted by path. Backup copies end in .backup and are never returned,
// nor are "._" resource-fork sidecars left by macOS.
func FindTargets(catalogDir string) ([]string, error) {
	if !common.DirectoryExists(catalogDir) {
		return nil, fmt.Errorf("catalog directory not found: %s", catalogDir)
	}
	files, err := common.ListFilesWithExtensions(catalogDir, []string{common.ExtensionPDB}, false)
	if err != nil {
		return nil, err
	}

	targets := files[:0]
	for _, f := range files {
		if strings.HasPrefix(filepath.Base(f), common.HiddenFilePrefix) {
			continue
		}
		targets = append(targets, f)
	}
	return targets, nil
}
