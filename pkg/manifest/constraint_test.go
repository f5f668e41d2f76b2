package manifest

import (
	"testing"

	"github.com/Masterminds/semver/v3"
)

func TestBuildConstraint(t *testing.T) {
	cases := []struct {
		op      string
		version string
		accept  []string
		reject  []string
	}{
		{
			op: "==", version: "3.10.0",
			accept: []string{"3.10.0"},
			reject: []string{"3.10.1", "3.9.0"},
		},
		{
			op: "~=", version: "1.4",
			accept: []string{"1.4.0", "1.4.9", "1.9.9"},
			reject: []string{"1.3.9", "2.0.0"},
		},
		{
			op: "~=", version: "0.2.13",
			accept: []string{"0.2.13", "0.2.20"},
			reject: []string{"0.2.12", "0.3.0", "1.0.0"},
		},
		{
			op: "==", version: "2.0.0+cu118",
			accept: []string{"2.0.0+cu118"},
			reject: []string{"2.0.1"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.op+tc.version, func(t *testing.T) {
			c, err := buildConstraint(tc.op, tc.version)
			if err != nil {
				t.Fatal(err)
			}
			for _, v := range tc.accept {
				if !c.Check(semver.MustParse(v)) {
					t.Errorf("%s%s should accept %s", tc.op, tc.version, v)
				}
			}
			for _, v := range tc.reject {
				if c.Check(semver.MustParse(v)) {
					t.Errorf("%s%s should reject %s", tc.op, tc.version, v)
				}
			}
		})
	}
}

func TestBuildConstraintErrors(t *testing.T) {
	cases := []struct{ op, version string }{
		{"~=", "3"},        // compatible release needs two segments
		{"==", ""},         // empty version
		{"==", "1.2.3.4"},  // too many segments
		{"==", "abc"},      // not numeric
		{">=", "1.0.0"},    // unsupported comparator
	}
	for _, tc := range cases {
		if _, err := buildConstraint(tc.op, tc.version); err == nil {
			t.Errorf("expected error for %s%s", tc.op, tc.version)
		}
	}
}

func TestUpperBound(t *testing.T) {
	cases := []struct {
		segments []int
		want     string
	}{
		{[]int{1, 4}, "2.0.0"},
		{[]int{1, 4, 2}, "1.5.0"},
		{[]int{0, 2, 13}, "0.3.0"},
	}
	for _, tc := range cases {
		if got := upperBound(tc.segments); got != tc.want {
			t.Errorf("upperBound(%v) = %s, want %s", tc.segments, got, tc.want)
		}
	}
}
