package config

import (
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

const testYaml = `
client:
  port: 8080
  debug: true
  api_key: "testkey"
  secret: "testsecret"
log_settings:
  log_file: ""
  log_level: "debug"
capture:
  default_source: "usb-mic"
  sources:
    - name: "usb-mic"
      max_input_channels: 1
    - name: "hdmi-out"
      max_input_channels: 0
speech:
  providers:
    azure:
      - id: "azure-east"
        credentials:
          api_key: "abc"
          region: "eastus"
  services:
    transcription:
      provider: "azure"
      id: "azure-east"
      options:
        language: "en-US"
    local-transcription:
      provider: "whisper"
      options:
        model_size: "medium.en"
`

func TestNewFillsDefaults(t *testing.T) {
	var a AppConfig
	if err := yaml.Unmarshal([]byte(testYaml), &a); err != nil {
		t.Fatal(err)
	}
	a.RootWorkingDir = t.TempDir()

	if err := New(&a); err != nil {
		t.Fatal(err)
	}

	if a.Client.TokenValidity == nil || *a.Client.TokenValidity != 10*time.Minute {
		t.Error("expected default token validity of 10 minutes")
	}
	if a.Capture.SampleRate != 16000 || a.Capture.Channels != 1 {
		t.Errorf("expected 16kHz mono capture defaults, got %d/%d", a.Capture.SampleRate, a.Capture.Channels)
	}
	if a.Recognizer.EnergyThreshold != 300 {
		t.Errorf("expected default energy threshold 300, got %f", a.Recognizer.EnergyThreshold)
	}
	if a.Recognizer.PauseThreshold == nil || *a.Recognizer.PauseThreshold != 800*time.Millisecond {
		t.Error("expected default pause threshold of 800ms")
	}
	if a.Session.StopWord == nil || *a.Session.StopWord != "stop" {
		t.Error("expected default stop word")
	}
	// New resolves "./" against the working dir
	if filepath.Base(a.ModelAssets.ManifestPath) != "models.txt" || !filepath.IsAbs(a.ModelAssets.ManifestPath) {
		t.Errorf("unexpected default manifest path: %s", a.ModelAssets.ManifestPath)
	}
	if GetConfig() != &a {
		t.Error("New should store the config for global usage")
	}
}

func TestGetProviderAccountForService(t *testing.T) {
	var a AppConfig
	if err := yaml.Unmarshal([]byte(testYaml), &a); err != nil {
		t.Fatal(err)
	}

	t.Run("configured account", func(t *testing.T) {
		acc, svc, err := a.Speech.GetProviderAccountForService("transcription")
		if err != nil {
			t.Fatal(err)
		}
		if acc.Credentials.Region != "eastus" {
			t.Errorf("unexpected region: %s", acc.Credentials.Region)
		}
		if svc.Provider != "azure" {
			t.Errorf("unexpected provider: %s", svc.Provider)
		}
	})

	t.Run("local provider without account", func(t *testing.T) {
		_, svc, err := a.Speech.GetProviderAccountForService("local-transcription")
		if err != nil {
			t.Fatal(err)
		}
		if svc.Options["model_size"] != "medium.en" {
			t.Error("expected model_size option to survive")
		}
	})

	t.Run("unknown service", func(t *testing.T) {
		if _, _, err := a.Speech.GetProviderAccountForService("nope"); err == nil {
			t.Error("expected error for unknown service")
		}
	})
}

func TestFormatDBTable(t *testing.T) {
	dbTablePrefix = ""
	if FormatDBTable("session_info") != "session_info" {
		t.Error("no prefix expected")
	}
	dbTablePrefix = "vxl_"
	if FormatDBTable("session_info") != "vxl_session_info" {
		t.Error("prefix expected")
	}
	dbTablePrefix = ""
}
