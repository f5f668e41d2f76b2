package manifest

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Requirement is one parsed, non comment manifest line: a package name plus
// an optional version specifier.
type Requirement struct {
	Name       string
	Normalized string
	Operator   string // "==", "~=" or "" when unconstrained
	Version    string // raw version literal from the specifier
	RawSpec    string // the original line without comments
	Line       int
	// Constraint is the range form of the specifier. nil means any version.
	Constraint *semver.Constraints
}

// PrerequisiteKind classifies a piece of install guidance found in a comment.
type PrerequisiteKind string

const (
	PrerequisiteRuntime PrerequisiteKind = "runtime"
	PrerequisiteToolkit PrerequisiteKind = "toolkit"
	PrerequisiteCommand PrerequisiteKind = "command"
	PrerequisiteNote    PrerequisiteKind = "note"
)

// Prerequisite is structured guidance parsed from a comment line, e.g. a
// required runtime version range, a CUDA toolkit version or a platform
// specific install command. Nothing in this package enforces prerequisites;
// they are surfaced so an operator can act on them.
type Prerequisite struct {
	Kind     PrerequisiteKind
	Name     string // runtime or toolkit name, e.g. "python", "cuda"
	Spec     string // version range text, e.g. ">=3.8, <3.12"
	Platform string // target platform for command kind, e.g. "linux"
	Command  string
	Raw      string
	Line     int
}

// Manifest is a parsed requirements style file: an ordered list of package
// requirements plus the install guidance carried by its comments.
type Manifest struct {
	Path          string
	Requirements  []*Requirement
	Prerequisites []*Prerequisite
}

// Lookup returns the first requirement matching the given package name,
// normalized, or nil.
func (m *Manifest) Lookup(name string) *Requirement {
	normalized := NormalizeName(name)
	for _, r := range m.Requirements {
		if r.Normalized == normalized {
			return r
		}
	}
	return nil
}

// Packages returns the unique normalized package names in first-seen order.
func (m *Manifest) Packages() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range m.Requirements {
		if !seen[r.Normalized] {
			seen[r.Normalized] = true
			names = append(names, r.Normalized)
		}
	}
	return names
}

// NormalizeName lower-cases a package name and collapses every run of the
// separator characters `-`, `_` and `.` into a single `-`, so that
// `Faster_Whisper` and `faster-whisper` refer to the same package.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(name))
	inSep := false
	for _, c := range name {
		if c == '-' || c == '_' || c == '.' {
			inSep = true
			continue
		}
		if inSep {
			b.WriteByte('-')
			inSep = false
		}
		b.WriteRune(c)
	}
	return b.String()
}
