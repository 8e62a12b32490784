// pdb/scan.go

package pdb

import (
	"bytes"
	"fmt"
	"os"

	"RekordPdbPatcher/common"

	"github.com/edsrzf/mmap-go"
)

// CountReferences maps file read-only and counts non-overlapping occurrences of
// every extension. The file is never modified, so it is safe for dry runs.
func CountReferences(file string, exts []string) (map[string]int, error) {
	counts := make(map[string]int, len(exts))
	for _, ext := range exts {
		counts[ext] = 0
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, common.NewIOError("open", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, common.NewIOError("stat", file, err)
	}
	// Zero-length files cannot be mapped
	if info.Size() == 0 {
		return counts, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, common.NewIOError("mmap", file, err)
	}
	defer m.Unmap()

	for _, ext := range exts {
		if ext == "" {
			return nil, fmt.Errorf("%w in reference scan", ErrEmptyExtension)
		}
		counts[ext] = bytes.Count(m, []byte(ext))
	}
	return counts, nil
}
