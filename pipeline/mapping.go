// pipeline/mapping.go

package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"RekordPdbPatcher/converter"
	"RekordPdbPatcher/discovery"
	"RekordPdbPatcher/formats"
)

// Pair is one old -> new extension substitution
type Pair struct {
	Old string
	New string
}

// Mapping is the set of substitutions applied to every catalog file, sorted by Old
type Mapping []Pair

// DeriveMapping builds the mapping from the extensions that were converted successfully
func DeriveMapping(results []converter.Result) Mapping {
	return fromMap(converter.ConvertedExtensions(results))
}

// InferMapping maps every convertible extension of the classifier to its target
func InferMapping(c *formats.Classifier) Mapping {
	pairs := make(map[string]string)
	for _, g := range c.Groups() {
		for _, member := range g.Members {
			pairs[member] = g.Target.Extension
		}
	}
	return fromMap(pairs)
}

// PlanMapping is the mapping a run over files would apply if every conversion
// succeeded, one pair per extension spelling found on disk
func PlanMapping(files []discovery.AudioFile) Mapping {
	pairs := make(map[string]string)
	for _, f := range files {
		if f.Class.Target == nil {
			continue
		}
		pairs[f.SourceExt()] = formats.MatchCase(f.SourceExt(), f.Class.Target.Extension)
	}
	return fromMap(pairs)
}

func fromMap(pairs map[string]string) Mapping {
	m := make(Mapping, 0, len(pairs))
	for old, newExt := range pairs {
		m = append(m, Pair{Old: old, New: newExt})
	}
	sort.Slice(m, func(i, j int) bool { return m[i].Old < m[j].Old })
	return m
}

// Validate rejects pairs whose extensions differ in byte length
func (m Mapping) Validate() error {
	for _, p := range m {
		if len(p.Old) != len(p.New) {
			return fmt.Errorf("%w: %s -> %s", ErrMappingLength, p.Old, p.New)
		}
	}
	return nil
}

// Pairs returns the mapping in the form the patcher takes
func (m Mapping) Pairs() [][2]string {
	out := make([][2]string, len(m))
	for i, p := range m {
		out[i] = [2]string{p.Old, p.New}
	}
	return out
}

// Olds returns the source extensions
func (m Mapping) Olds() []string {
	out := make([]string, len(m))
	for i, p := range m {
		out[i] = p.Old
	}
	return out
}

func (m Mapping) String() string {
	parts := make([]string, len(m))
	for i, p := range m {
		parts[i] = p.Old + " -> " + p.New
	}
	return strings.Join(parts, ", ")
}
