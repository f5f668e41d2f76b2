package audio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func sineWave(numSamples int, freq float64, sampleRate int) PCM16Sample {
	out := make(PCM16Sample, numSamples)
	for i := range out {
		out[i] = int16(10000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestEncodeDecodeWAV(t *testing.T) {
	samples := sineWave(1600, 440, 16000)

	data := EncodeWAV(samples.Bytes(), 16000, 1)
	if len(data) != 44+len(samples)*2 {
		t.Fatalf("expected %d bytes, got %d", 44+len(samples)*2, len(data))
	}

	got, sampleRate, numChannels, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if sampleRate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", sampleRate)
	}
	if numChannels != 1 {
		t.Errorf("expected 1 channel, got %d", numChannels)
	}
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, samples[i], got[i])
		}
	}
}

func TestWAVWriterPatchesHeaderOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	closed := false
	w, err := NewWAVWriter(f, 16000, 1, func() { closed = true })
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	first := sineWave(480, 440, 16000)
	second := sineWave(480, 880, 16000)
	if err := w.WriteSample(first); err != nil {
		t.Fatalf("failed to write sample: %v", err)
	}
	if err := w.WriteSample(second); err != nil {
		t.Fatalf("failed to write sample: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	if !closed {
		t.Error("expected onClose callback to run")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file back: %v", err)
	}

	wantData := uint32((len(first) + len(second)) * 2)
	if got := binary.LittleEndian.Uint32(data[4:8]); got != wantData+36 {
		t.Errorf("expected riff size %d, got %d", wantData+36, got)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != wantData {
		t.Errorf("expected data size %d, got %d", wantData, got)
	}

	samples, sampleRate, numChannels, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if sampleRate != 16000 || numChannels != 1 {
		t.Errorf("unexpected format: rate %d, channels %d", sampleRate, numChannels)
	}
	if len(samples) != len(first)+len(second) {
		t.Fatalf("expected %d samples, got %d", len(first)+len(second), len(samples))
	}
}

func TestDecodeWAVRejectsBadInput(t *testing.T) {
	samples := sineWave(160, 440, 16000)
	valid := EncodeWAV(samples.Bytes(), 16000, 1)

	floatFmt := make([]byte, len(valid))
	copy(floatFmt, valid)
	binary.LittleEndian.PutUint16(floatFmt[20:22], 3)

	eightBit := make([]byte, len(valid))
	copy(eightBit, valid)
	binary.LittleEndian.PutUint16(eightBit[34:36], 8)

	truncated := make([]byte, len(valid))
	copy(truncated, valid)
	truncated = truncated[:60]

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("this is not audio at all....")},
		{"ieee float format", floatFmt},
		{"8 bit depth", eightBit},
		{"truncated data chunk", truncated},
		{"missing fmt chunk", valid[:12]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
