package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/voxlive/voxlive-server/pkg/manifest"
)

func TestArtifactFileName(t *testing.T) {
	v := semver.MustParse("1.0.3")

	rel := &manifest.Release{
		Version: v,
		Url:     "https://cdn.example.com/models/ggml-medium.en.bin?sig=abc123",
	}
	if got := artifactFileName("faster-whisper", rel); got != "ggml-medium.en.bin" {
		t.Errorf("expected file name from the url path, got %s", got)
	}

	// no usable path falls back to name-version
	rel = &manifest.Release{Version: v, Url: "https://cdn.example.com/"}
	if got := artifactFileName("faster-whisper", rel); got != "faster-whisper-1.0.3.bin" {
		t.Errorf("expected fallback file name, got %s", got)
	}
}

func TestVerifyFileChecksum(t *testing.T) {
	file := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(file, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	// sha256 of "abc"
	sum := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

	ok, err := verifyFileChecksum(file, sum)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected the checksum to match")
	}

	// hex case must not matter
	ok, err = verifyFileChecksum(file, strings.ToUpper(sum))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected an uppercase checksum to match")
	}

	ok, err = verifyFileChecksum(file, strings.Repeat("ff", 32))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected a wrong checksum to fail")
	}
}
