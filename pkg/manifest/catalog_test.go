package manifest

import (
	"strings"
	"testing"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog()
	releases := []struct {
		name, version string
	}{
		{"speechrecognition", "3.10.0"},
		{"speechrecognition", "3.9.0"},
		{"faster-whisper", "0.9.0"},
		{"faster-whisper", "0.10.0"},
		{"faster-whisper", "0.10.1"},
		{"pyaudio", "0.2.13"},
		{"pyaudio", "0.2.14"},
	}
	for _, r := range releases {
		if err := c.AddRelease(r.name, r.version, "https://models.example.com/"+r.name, "", 0); err != nil {
			t.Fatal(err)
		}
	}
	return c
}

func mustParse(t *testing.T, body string) *Manifest {
	t.Helper()
	m, err := Parse(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestResolvePicksHighestSatisfying(t *testing.T) {
	c := testCatalog(t)
	m := mustParse(t, "faster-whisper~=0.9\n")

	resolved, err := c.Resolve(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 resolved package, got %d", len(resolved))
	}
	// ~=0.9 allows anything below 1.0, so the newest 0.x release wins
	if got := resolved[0].Version.String(); got != "0.10.1" {
		t.Errorf("expected 0.10.1, got %s", got)
	}
	if resolved[0].Release == nil {
		t.Error("expected a catalog release")
	}
}

func TestResolveIntersectsDuplicateConstraints(t *testing.T) {
	c := NewCatalog()
	for _, v := range []string{"1.4.5", "1.4.8", "1.5.0"} {
		if err := c.AddRelease("foo", v, "", "", 0); err != nil {
			t.Fatal(err)
		}
	}
	m := mustParse(t, "foo~=1.4\nfoo~=1.4.6\n")

	resolved, err := c.Resolve(m)
	if err != nil {
		t.Fatal(err)
	}
	if got := resolved[0].Version.String(); got != "1.4.8" {
		t.Errorf("expected 1.4.8 from the intersection, got %s", got)
	}
}

func TestResolveConflictingPins(t *testing.T) {
	c := testCatalog(t)
	m := mustParse(t, "pyaudio==0.2.13\npyaudio==0.2.14\n")

	err := c.CheckInstallable(m)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if !strings.Contains(err.Error(), "0.2.13") || !strings.Contains(err.Error(), "0.2.14") {
		t.Errorf("conflict error should name both pins: %v", err)
	}
}

func TestResolveExactPinWithoutCatalogEntry(t *testing.T) {
	c := testCatalog(t)
	m := mustParse(t, "torch==2.0.0\n")

	resolved, err := c.Resolve(m)
	if err != nil {
		t.Fatal(err)
	}
	if resolved[0].Version.String() != "2.0.0" {
		t.Errorf("pin should resolve to itself, got %s", resolved[0].Version)
	}
	if resolved[0].Release != nil {
		t.Error("unknown package must not get a catalog release")
	}
}

func TestResolveUnknownUnpinnedPackage(t *testing.T) {
	c := testCatalog(t)
	m := mustParse(t, "mystery-package~=1.0\n")

	if err := c.CheckInstallable(m); err == nil {
		t.Error("expected error for unknown, unpinned package")
	}
}

func TestResolveNoSatisfyingRelease(t *testing.T) {
	c := testCatalog(t)
	m := mustParse(t, "faster-whisper==9.9.9\n")

	if err := c.CheckInstallable(m); err == nil {
		t.Error("expected error when no release satisfies the pin")
	}
}

func TestCheckInstallableAcceptsCoherentManifest(t *testing.T) {
	c := testCatalog(t)
	m := mustParse(t, sampleManifest)
	// silero-vad is unconstrained and unknown; register one release for it
	if err := c.AddRelease("silero-vad", "4.0.0", "", "", 0); err != nil {
		t.Fatal(err)
	}

	if err := c.CheckInstallable(m); err != nil {
		t.Errorf("manifest should be installable: %v", err)
	}
}

func TestResolveReportsEveryProblem(t *testing.T) {
	c := testCatalog(t)
	m := mustParse(t, "unknown-a~=1.0\nunknown-b~=2.0\n")

	_, err := c.Resolve(m)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unknown-a") || !strings.Contains(err.Error(), "unknown-b") {
		t.Errorf("error should list every unresolvable package: %v", err)
	}
}
