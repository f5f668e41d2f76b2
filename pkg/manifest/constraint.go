package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// buildConstraint translates a manifest specifier into a semver range.
//
// `==V` pins exactly V. `~=V` is a compatible release: the last given
// segment may grow, everything before it is fixed, so `~=1.4` allows
// `>=1.4, <2.0` and `~=1.4.2` allows `>=1.4.2, <1.5.0`.
func buildConstraint(op, version string) (*semver.Constraints, error) {
	segments, err := versionSegments(version)
	if err != nil {
		return nil, err
	}

	switch op {
	case "==":
		c, err := semver.NewConstraint("=" + version)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: %w", version, err)
		}
		return c, nil
	case "~=":
		if len(segments) < 2 {
			return nil, fmt.Errorf("compatible release specifier ~=%s needs at least two version segments", version)
		}
		upper := upperBound(segments)
		c, err := semver.NewConstraint(fmt.Sprintf(">=%s, <%s", version, upper))
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: %w", version, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported comparator %q", op)
	}
}

// versionSegments validates the numeric core of a version literal and
// returns its dot separated segments. A pre-release or build suffix
// (`-rc1`, `+cu118`) is allowed after the core.
func versionSegments(version string) ([]int, error) {
	if version == "" {
		return nil, fmt.Errorf("empty version")
	}

	core := version
	if idx := strings.IndexAny(core, "-+"); idx >= 0 {
		core = core[:idx]
	}

	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		return nil, fmt.Errorf("version %q has more than three segments", version)
	}

	segments := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || p == "" {
			return nil, fmt.Errorf("version %q is not a valid version literal", version)
		}
		segments = append(segments, n)
	}
	return segments, nil
}

// upperBound drops the last segment and increments the new last one:
// [1 4] -> "2.0.0", [1 4 2] -> "1.5.0".
func upperBound(segments []int) string {
	kept := segments[:len(segments)-1]
	out := make([]string, 3)
	for i := 0; i < 3; i++ {
		switch {
		case i < len(kept)-1:
			out[i] = strconv.Itoa(kept[i])
		case i == len(kept)-1:
			out[i] = strconv.Itoa(kept[i] + 1)
		default:
			out[i] = "0"
		}
	}
	return strings.Join(out, ".")
}
