package models

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
)

func newTestArtifactModel(t *testing.T) *ArtifactModel {
	t.Helper()

	store := t.TempDir()
	validity := time.Minute * 30

	app := &config.AppConfig{
		Client: config.ClientInfo{
			ApiKey: "testKey",
			Secret: "testSecret",
		},
	}
	app.Session.ArtifactsStorePath = &store
	app.Session.ArtifactTokenValidity = &validity

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &ArtifactModel{
		app:    app,
		logger: logger.WithField("model", "artifact"),
	}
}

func TestArtifactDownloadTokenRoundTrip(t *testing.T) {
	m := newTestArtifactModel(t)

	dir := filepath.Join(*m.app.Session.ArtifactsStorePath, "demo-session")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "transcript.vtt")
	if err := os.WriteFile(file, []byte("WEBVTT\n"), 0644); err != nil {
		t.Fatal(err)
	}

	token, err := m.generateToken(filepath.Join("demo-session", "transcript.vtt"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := m.VerifyArtifactDownloadToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if got != file {
		t.Errorf("expected path %s, got %s", file, got)
	}
}

func TestVerifyArtifactDownloadTokenRejectsTraversal(t *testing.T) {
	m := newTestArtifactModel(t)

	// a file right outside the store
	outside := filepath.Join(filepath.Dir(*m.app.Session.ArtifactsStorePath), "secret.txt")
	if err := os.WriteFile(outside, []byte("keep out"), 0644); err != nil {
		t.Fatal(err)
	}

	token, err := m.generateToken(filepath.Join("..", "secret.txt"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.VerifyArtifactDownloadToken(token); err == nil {
		t.Error("expected a path outside the store to be rejected")
	}
}

func TestVerifyArtifactDownloadTokenRejectsMissingFile(t *testing.T) {
	m := newTestArtifactModel(t)

	token, err := m.generateToken(filepath.Join("demo-session", "gone.vtt"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.VerifyArtifactDownloadToken(token); err == nil {
		t.Error("expected a missing file to be rejected")
	}
}

func TestVerifyArtifactDownloadTokenRejectsForeignSignature(t *testing.T) {
	m := newTestArtifactModel(t)

	token, err := m.generateToken("demo-session/transcript.vtt")
	if err != nil {
		t.Fatal(err)
	}

	m.app.Client.Secret = "anotherSecret"
	if _, err := m.VerifyArtifactDownloadToken(token); err == nil {
		t.Error("expected a token signed with a different secret to be rejected")
	}
}
