package audio

import (
	"math"
	"testing"
)

func TestBytesToPCM16RoundTrip(t *testing.T) {
	samples := PCM16Sample{0, 1, -1, 32767, -32768, 12345, -12345}

	got := BytesToPCM16(samples.Bytes())
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d: expected %d, got %d", i, samples[i], got[i])
		}
	}
}

func TestBytesToPCM16IgnoresTrailingByte(t *testing.T) {
	data := append(PCM16Sample{100, -200}.Bytes(), 0x7f)

	got := BytesToPCM16(data)
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if got[0] != 100 || got[1] != -200 {
		t.Errorf("unexpected samples: %v", got)
	}
}

func TestFloat32Range(t *testing.T) {
	f := PCM16Sample{-32768, 0, 32767}.Float32()

	if f[0] != -1.0 {
		t.Errorf("expected -32768 to map to -1.0, got %f", f[0])
	}
	if f[1] != 0 {
		t.Errorf("expected 0 to map to 0, got %f", f[1])
	}
	if f[2] >= 1.0 || f[2] < 0.9999 {
		t.Errorf("expected 32767 to map just below 1.0, got %f", f[2])
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("expected empty frame energy 0, got %f", got)
	}

	silence := make(PCM16Sample, 480)
	if got := RMS(silence); got != 0 {
		t.Errorf("expected silence energy 0, got %f", got)
	}

	tone := make(PCM16Sample, 480)
	for i := range tone {
		tone[i] = 1000
	}
	if got := RMS(tone); math.Abs(got-1000) > 0.001 {
		t.Errorf("expected constant 1000 to have energy 1000, got %f", got)
	}
}
