package audio

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
)

func testLogger() *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	return lg
}

func TestDefaultSourcePrefersConfigured(t *testing.T) {
	cfg := &config.CaptureSettings{
		DefaultSource: "conference-mic",
		Sources: []config.CaptureSource{
			{Name: "loopback", MaxInputChannels: 2},
			{Name: "conference-mic", MaxInputChannels: 1},
		},
	}

	src, err := DefaultSource(cfg, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Name != "conference-mic" {
		t.Errorf("expected configured default, got %s", src.Name)
	}
}

func TestDefaultSourceFallsBackInOrder(t *testing.T) {
	cfg := &config.CaptureSettings{
		DefaultSource: "conference-mic",
		Sources: []config.CaptureSource{
			{Name: "hdmi-out", MaxInputChannels: 0},
			{Name: "conference-mic", MaxInputChannels: 0},
			{Name: "usb-mic", MaxInputChannels: 1},
		},
	}

	src, err := DefaultSource(cfg, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Name != "usb-mic" {
		t.Errorf("expected first usable source, got %s", src.Name)
	}
}

func TestDefaultSourceNoneUsable(t *testing.T) {
	cfg := &config.CaptureSettings{
		Sources: []config.CaptureSource{
			{Name: "hdmi-out", MaxInputChannels: 0},
		},
	}

	_, err := DefaultSource(cfg, testLogger())
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != config.NoInputDevicesFound {
		t.Errorf("unexpected error message: %v", err)
	}
}
