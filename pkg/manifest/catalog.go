package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Release is one installable version of a package known to the catalog,
// optionally carrying a downloadable artifact.
type Release struct {
	Version *semver.Version
	Url     string
	Sha256  string
	Size    int64
}

// Catalog holds the known releases per package. Resolution and the
// installability check run against it.
type Catalog struct {
	releases map[string][]*Release
}

func NewCatalog() *Catalog {
	return &Catalog{
		releases: make(map[string][]*Release),
	}
}

// AddRelease registers a release for a package. Releases are kept sorted
// newest first.
func (c *Catalog) AddRelease(name, version, url, sha256 string, size int64) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid catalog version %q for %s: %w", version, name, err)
	}

	normalized := NormalizeName(name)
	c.releases[normalized] = append(c.releases[normalized], &Release{
		Version: v,
		Url:     url,
		Sha256:  sha256,
		Size:    size,
	})
	sort.Slice(c.releases[normalized], func(i, j int) bool {
		return c.releases[normalized][i].Version.GreaterThan(c.releases[normalized][j].Version)
	})
	return nil
}

// Releases returns the known releases of a package, newest first.
func (c *Catalog) Releases(name string) []*Release {
	return c.releases[NormalizeName(name)]
}

// ResolvedPackage is the resolution result for one package of a manifest:
// the release chosen for the intersection of every constraint on it.
type ResolvedPackage struct {
	Name         string
	Requirements []*Requirement
	// Version the package resolved to. For an exact pin on a package the
	// catalog does not know it is the pinned version itself.
	Version *semver.Version
	// Release is nil when the catalog carries no artifact for the version.
	Release *Release
}

// Resolve picks, for every package named in the manifest, the highest
// catalog release satisfying the intersection of all constraints on that
// package. Constraints on the same package are intersected, not last-wins.
// Partial results are returned together with an error describing every
// package that could not be resolved.
func (c *Catalog) Resolve(m *Manifest) ([]*ResolvedPackage, error) {
	groups := groupByPackage(m)

	var resolved []*ResolvedPackage
	var problems []string

	for _, g := range groups {
		item, err := c.resolvePackage(g)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		resolved = append(resolved, item)
	}

	if len(problems) > 0 {
		return resolved, fmt.Errorf("manifest is not installable: %s", strings.Join(problems, "; "))
	}
	return resolved, nil
}

// CheckInstallable verifies that the version pins listed in the manifest are
// mutually installable: no two constraints on one package exclude each other
// and every package resolves against the catalog.
func (c *Catalog) CheckInstallable(m *Manifest) error {
	_, err := c.Resolve(m)
	return err
}

func (c *Catalog) resolvePackage(reqs []*Requirement) (*ResolvedPackage, error) {
	name := reqs[0].Normalized

	// two exact pins that disagree can never be satisfied, regardless of
	// what the catalog knows
	var pin *Requirement
	for _, r := range reqs {
		if r.Operator != "==" {
			continue
		}
		if pin != nil && pin.Version != r.Version {
			return nil, fmt.Errorf("%s is pinned to both %s (line %d) and %s (line %d)",
				name, pin.Version, pin.Line, r.Version, r.Line)
		}
		if pin == nil {
			pin = r
		}
	}

	candidates := c.releases[name]
	if len(candidates) == 0 {
		if pin == nil {
			return nil, fmt.Errorf("%s has no known releases and is not pinned to an exact version", name)
		}
		v, err := semver.NewVersion(pin.Version)
		if err != nil {
			return nil, fmt.Errorf("%s is pinned to unparseable version %q", name, pin.Version)
		}
		if err := checkAll(reqs, v); err != nil {
			return nil, err
		}
		return &ResolvedPackage{Name: name, Requirements: reqs, Version: v}, nil
	}

	for _, rel := range candidates {
		if err := checkAll(reqs, rel.Version); err == nil {
			return &ResolvedPackage{Name: name, Requirements: reqs, Version: rel.Version, Release: rel}, nil
		}
	}

	return nil, fmt.Errorf("no release of %s satisfies %s", name, describeSpecs(reqs))
}

func checkAll(reqs []*Requirement, v *semver.Version) error {
	for _, r := range reqs {
		if r.Constraint == nil {
			continue
		}
		if !r.Constraint.Check(v) {
			return fmt.Errorf("version %s of %s does not satisfy %s (line %d)",
				v, r.Normalized, r.RawSpec, r.Line)
		}
	}
	return nil
}

func groupByPackage(m *Manifest) [][]*Requirement {
	byName := make(map[string][]*Requirement)
	var order []string
	for _, r := range m.Requirements {
		if _, ok := byName[r.Normalized]; !ok {
			order = append(order, r.Normalized)
		}
		byName[r.Normalized] = append(byName[r.Normalized], r)
	}

	groups := make([][]*Requirement, 0, len(order))
	for _, name := range order {
		groups = append(groups, byName[name])
	}
	return groups
}

func describeSpecs(reqs []*Requirement) string {
	specs := make([]string, 0, len(reqs))
	for _, r := range reqs {
		specs = append(specs, r.RawSpec)
	}
	return strings.Join(specs, " and ")
}
