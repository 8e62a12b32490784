// formats/classifier.go

// Package formats decides which audio files the playback hardware can read as-is
// and which have to be re-encoded, and into what.
package formats

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the classification state of a file extension.
type Kind int

const (
	// Unknown extensions are ignored by discovery.
	Unknown Kind = iota
	// Compatible files are left untouched.
	Compatible
	// Convertible files are re-encoded into their group's target format.
	Convertible
)

// String returns a human readable name of the kind
func (k Kind) String() string {
	switch k {
	case Compatible:
		return "compatible"
	case Convertible:
		return "convertible"
	default:
		return "unknown"
	}
}

// TargetFormat names an output container. Extension includes the leading dot.
type TargetFormat struct {
	Name      string
	Extension string
}

var (
	// AIFF is the uncompressed PCM target (16-bit big endian).
	AIFF = TargetFormat{Name: "aiff", Extension: ".aiff"}
	// MP3 is the constant-bitrate compressed target.
	MP3 = TargetFormat{Name: "mp3", Extension: ".mp3"}
)

var (
	// ErrGroupLengthMismatch is returned when a source extension and its target differ in byte length.
	ErrGroupLengthMismatch = errors.New("extension group member does not match target extension length")
	// ErrDuplicateExtension is returned when one extension is assigned twice.
	ErrDuplicateExtension = errors.New("extension is assigned more than once")
	// ErrInvalidExtension is returned for empty or malformed extensions.
	ErrInvalidExtension = errors.New("invalid extension")
)

// ExtensionGroup is a set of source extensions converted into the same target format.
type ExtensionGroup struct {
	Target  TargetFormat
	Members []string
}

// Classification is the outcome of Classify. Target is only set for Convertible.
type Classification struct {
	Kind   Kind
	Target *TargetFormat
}

// Classifier maps file extensions to classifications. It is immutable once built.
type Classifier struct {
	compatible  map[string]struct{}
	convertible map[string]TargetFormat
	groups      []ExtensionGroup
}

// DefaultCompatible lists the extensions the playback hardware reads natively.
var DefaultCompatible = []string{".mp3", ".wav", ".aiff", ".aif"}

// DefaultGroups returns the built-in conversion groups.
func DefaultGroups() []ExtensionGroup {
	return []ExtensionGroup{
		{Target: AIFF, Members: []string{".flac"}},
		{Target: MP3, Members: []string{".m4a", ".ogg", ".aac", ".wma"}},
	}
}

// NewClassifier validates the configuration and builds a Classifier.
// Every member of a group must have the same byte length as the target extension,
// otherwise the database patch step could shift bytes.
func NewClassifier(compatible []string, groups []ExtensionGroup) (*Classifier, error) {
	c := &Classifier{
		compatible:  make(map[string]struct{}),
		convertible: make(map[string]TargetFormat),
	}

	for _, raw := range compatible {
		ext, err := normalizeConfigured(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := c.compatible[ext]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateExtension, ext)
		}
		c.compatible[ext] = struct{}{}
	}

	for _, group := range groups {
		target, err := normalizeConfigured(group.Target.Extension)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", group.Target.Name, err)
		}
		tf := TargetFormat{Name: group.Target.Name, Extension: target}
		normalized := ExtensionGroup{Target: tf}

		for _, raw := range group.Members {
			ext, err := normalizeConfigured(raw)
			if err != nil {
				return nil, err
			}
			if len(ext) != len(target) {
				return nil, fmt.Errorf("%w: %s (%d bytes) -> %s (%d bytes)",
					ErrGroupLengthMismatch, ext, len(ext), target, len(target))
			}
			if _, dup := c.compatible[ext]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateExtension, ext)
			}
			if _, dup := c.convertible[ext]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateExtension, ext)
			}
			c.convertible[ext] = tf
			normalized.Members = append(normalized.Members, ext)
		}
		c.groups = append(c.groups, normalized)
	}

	return c, nil
}

// Default returns the built-in classifier. The built-in table is known to be valid.
func Default() *Classifier {
	c, err := NewClassifier(DefaultCompatible, DefaultGroups())
	if err != nil {
		panic(fmt.Sprintf("built-in extension table is invalid: %v", err))
	}
	return c
}

// WithExtraGroups returns a new classifier with additional source extensions merged
// into the groups of the named targets ("aiff", "mp3"). The result is validated again.
func (c *Classifier) WithExtraGroups(extra map[string][]string) (*Classifier, error) {
	if len(extra) == 0 {
		return c, nil
	}

	groups := make([]ExtensionGroup, 0, len(c.groups))
	for _, g := range c.groups {
		members := append([]string(nil), g.Members...)
		members = append(members, extra[g.Target.Name]...)
		groups = append(groups, ExtensionGroup{Target: g.Target, Members: members})
	}
	for name := range extra {
		if !c.hasTarget(name) {
			return nil, fmt.Errorf("unknown target format %q", name)
		}
	}

	return NewClassifier(c.CompatibleExtensions(), groups)
}

func (c *Classifier) hasTarget(name string) bool {
	for _, g := range c.groups {
		if g.Target.Name == name {
			return true
		}
	}
	return false
}

// Classify returns the classification of ext. Case is ignored and the leading dot is optional.
func (c *Classifier) Classify(ext string) Classification {
	ext = Normalize(ext)
	if ext == "" {
		return Classification{Kind: Unknown}
	}
	if _, ok := c.compatible[ext]; ok {
		return Classification{Kind: Compatible}
	}
	if target, ok := c.convertible[ext]; ok {
		t := target
		return Classification{Kind: Convertible, Target: &t}
	}
	return Classification{Kind: Unknown}
}

// ConvertibleExtensions returns every source extension in sorted order.
func (c *Classifier) ConvertibleExtensions() []string {
	exts := make([]string, 0, len(c.convertible))
	for ext := range c.convertible {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// CompatibleExtensions returns the compatible set in sorted order.
func (c *Classifier) CompatibleExtensions() []string {
	exts := make([]string, 0, len(c.compatible))
	for ext := range c.compatible {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// TargetFor returns the target format of a convertible extension.
func (c *Classifier) TargetFor(ext string) (TargetFormat, bool) {
	t, ok := c.convertible[Normalize(ext)]
	return t, ok
}

// Groups returns a copy of the validated groups.
func (c *Classifier) Groups() []ExtensionGroup {
	out := make([]ExtensionGroup, len(c.groups))
	for i, g := range c.groups {
		out[i] = ExtensionGroup{Target: g.Target, Members: append([]string(nil), g.Members...)}
	}
	return out
}

// Normalize lowercases ext and makes sure it starts with a dot.
// An empty or dot-only input yields an empty string.
func Normalize(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// MatchCase spells target with the letter case of source, position by position:
// (".FLAC", ".aiff") gives ".AIFF" and (".Flac", ".aiff") gives ".Aiff".
// target is returned unchanged when the lengths differ.
func MatchCase(source, target string) string {
	if len(source) != len(target) {
		return target
	}
	out := []byte(target)
	for i := 0; i < len(out); i++ {
		c := source[i]
		switch {
		case c >= 'A' && c <= 'Z' && out[i] >= 'a' && out[i] <= 'z':
			out[i] -= 'a' - 'A'
		case c >= 'a' && c <= 'z' && out[i] >= 'A' && out[i] <= 'Z':
			out[i] += 'a' - 'A'
		}
	}
	return string(out)
}

func normalizeConfigured(raw string) (string, error) {
	ext := Normalize(raw)
	if ext == "" || strings.ContainsAny(ext[1:], "./\\ ") {
		return "", fmt.Errorf("%w: %q", ErrInvalidExtension, raw)
	}
	return ext, nil
}
