package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	nameRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)

	// comment guidance patterns
	requiresRe = regexp.MustCompile(`(?i)^requires\s+([A-Za-z][A-Za-z0-9._-]*)\s+(.+)$`)
	platformRe = regexp.MustCompile(`(?i)^(linux|darwin|macos|windows)\s*:\s*(.+)$`)
)

// ParseFile reads and parses the manifest at the given path.
func ParseFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// Parse reads a requirements style manifest. Every non comment, non blank
// line must name a package with an optional `==` or `~=` specifier; a line
// that does not is a parse error carrying its line number. Comment lines are
// collected as install guidance, never enforced.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			m.Prerequisites = append(m.Prerequisites, parsePrerequisite(line, lineNo))
			continue
		}

		// strip a trailing comment; it needs whitespace before the hash so
		// that local version labels are not cut in half
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		req, err := parseRequirement(line, lineNo)
		if err != nil {
			return nil, err
		}
		m.Requirements = append(m.Requirements, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return m, nil
}

func parseRequirement(line string, lineNo int) (*Requirement, error) {
	name := line
	op := ""
	version := ""

	for _, candidate := range []string{"==", "~="} {
		if idx := strings.Index(line, candidate); idx >= 0 {
			name = strings.TrimSpace(line[:idx])
			op = candidate
			version = strings.TrimSpace(line[idx+len(candidate):])
			break
		}
	}

	if op == "" && strings.ContainsAny(line, "=~<>!") {
		return nil, fmt.Errorf("line %d: %q is not a valid package specifier, only == and ~= comparators are supported", lineNo, line)
	}
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("line %d: %q is not a valid package name", lineNo, name)
	}
	if op != "" && version == "" {
		return nil, fmt.Errorf("line %d: specifier %q is missing a version", lineNo, line)
	}

	req := &Requirement{
		Name:       name,
		Normalized: NormalizeName(name),
		Operator:   op,
		Version:    version,
		RawSpec:    line,
		Line:       lineNo,
	}

	if op != "" {
		c, err := buildConstraint(op, version)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		req.Constraint = c
	}

	return req, nil
}

// parsePrerequisite turns a comment line into structured guidance. Anything
// it cannot classify stays available as a plain note.
func parsePrerequisite(line string, lineNo int) *Prerequisite {
	raw := line
	text := strings.TrimSpace(strings.TrimLeft(line, "#"))

	p := &Prerequisite{
		Kind: PrerequisiteNote,
		Raw:  raw,
		Line: lineNo,
	}
	if text == "" {
		return p
	}

	if mt := requiresRe.FindStringSubmatch(text); mt != nil {
		p.Name = strings.ToLower(mt[1])
		p.Spec = strings.TrimSpace(mt[2])
		switch p.Name {
		case "cuda", "cudnn":
			p.Kind = PrerequisiteToolkit
		default:
			p.Kind = PrerequisiteRuntime
		}
		return p
	}

	if mt := platformRe.FindStringSubmatch(text); mt != nil {
		p.Kind = PrerequisiteCommand
		p.Platform = strings.ToLower(mt[1])
		p.Command = strings.TrimSpace(mt[2])
		return p
	}

	return p
}
