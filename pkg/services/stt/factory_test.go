package sttservice

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
)

func TestNewProviderRejectsUnknownType(t *testing.T) {
	_, err := NewProvider(&config.AppConfig{}, "carrier-pigeon", nil, nil, logrus.New().WithField("test", t.Name()))
	if err == nil {
		t.Fatal("expected an error for an unknown provider type")
	}
	if !strings.Contains(err.Error(), "carrier-pigeon") {
		t.Errorf("error should name the offending type, got %q", err.Error())
	}
}

func TestNewSummaryProviderRejectsUnknownType(t *testing.T) {
	_, err := NewSummaryProvider(context.Background(), "azure", nil, nil, logrus.New().WithField("test", t.Name()))
	if err == nil {
		t.Fatal("expected an error, azure cannot summarize")
	}
}

func TestResolveWhisperModelPath(t *testing.T) {
	app := &config.AppConfig{}
	app.ModelAssets.ModelsDir = "/var/lib/voxlive/models"

	p, err := ResolveWhisperModelPath(app, &config.ServiceConfig{
		Options: map[string]interface{}{"model": "ggml-base.en.bin"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/var/lib/voxlive/models", "ggml-base.en.bin"); p != want {
		t.Errorf("got %q, want %q", p, want)
	}

	p, err = ResolveWhisperModelPath(app, &config.ServiceConfig{
		Options: map[string]interface{}{"model_path": "/opt/models/custom.bin"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p != "/opt/models/custom.bin" {
		t.Errorf("model_path should win as-is, got %q", p)
	}

	if _, err = ResolveWhisperModelPath(app, &config.ServiceConfig{}); err == nil {
		t.Error("expected an error when no model is configured")
	}
}
