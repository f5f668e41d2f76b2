package audio

import (
	"testing"
	"time"

	"github.com/voxlive/voxlive-server/pkg/config"
)

const testSampleRate = 16000

// frames are 30ms at 16kHz, the default ingest frame size.
const testFrameSamples = 480

func testRecognizerSettings(dynamic bool) *config.RecognizerSettings {
	pause := 800 * time.Millisecond
	phrase := 300 * time.Millisecond
	pad := 500 * time.Millisecond

	return &config.RecognizerSettings{
		EnergyThreshold:     300,
		DynamicEnergy:       &dynamic,
		DynamicDamping:      0.15,
		DynamicRatio:        1.5,
		PauseThreshold:      &pause,
		PhraseThreshold:     &phrase,
		NonSpeakingDuration: &pad,
	}
}

func constantFrame(amplitude int16) PCM16Sample {
	out := make(PCM16Sample, testFrameSamples)
	for i := range out {
		out[i] = amplitude
	}
	return out
}

func feedFrames(r *Recognizer, frame PCM16Sample, count int) []Phrase {
	var out []Phrase
	for i := 0; i < count; i++ {
		out = append(out, r.Feed(frame)...)
	}
	return out
}

func TestFeedDetectsPhrase(t *testing.T) {
	r := NewRecognizer(testRecognizerSettings(false), testSampleRate)

	silence := constantFrame(0)
	speech := constantFrame(2000)

	if got := feedFrames(r, silence, 10); len(got) != 0 {
		t.Fatalf("expected no phrase during silence, got %d", len(got))
	}
	if got := feedFrames(r, speech, 20); len(got) != 0 {
		t.Fatalf("expected no phrase while speech is ongoing, got %d", len(got))
	}

	phrases := feedFrames(r, silence, 30)
	if len(phrases) != 1 {
		t.Fatalf("expected 1 phrase, got %d", len(phrases))
	}

	p := phrases[0]
	if p.Start != 0 {
		t.Errorf("expected phrase to start at 0 with the quiet pad included, got %v", p.Start)
	}
	if len(p.PCM) < 20*testFrameSamples {
		t.Errorf("expected phrase to contain at least the %d speech samples, got %d", 20*testFrameSamples, len(p.PCM))
	}
	wantEnd := time.Duration(len(p.PCM)) * time.Second / testSampleRate
	if p.End != wantEnd {
		t.Errorf("expected end %v for %d samples, got %v", wantEnd, len(p.PCM), p.End)
	}

	// The stream is back to waiting, more silence stays quiet.
	if got := feedFrames(r, silence, 30); len(got) != 0 {
		t.Errorf("expected no further phrases, got %d", len(got))
	}
}

func TestFeedDiscardsShortBlip(t *testing.T) {
	r := NewRecognizer(testRecognizerSettings(false), testSampleRate)

	silence := constantFrame(0)
	speech := constantFrame(2000)

	feedFrames(r, silence, 10)
	// 60ms of noise is below the 300ms phrase threshold.
	if got := feedFrames(r, speech, 2); len(got) != 0 {
		t.Fatalf("expected no phrase yet, got %d", len(got))
	}
	if got := feedFrames(r, silence, 30); len(got) != 0 {
		t.Fatalf("expected the blip to be discarded, got %d phrases", len(got))
	}

	// A real phrase afterwards is still detected.
	feedFrames(r, speech, 15)
	phrases := feedFrames(r, silence, 30)
	if len(phrases) != 1 {
		t.Fatalf("expected 1 phrase after the blip, got %d", len(phrases))
	}
}

func TestFlushCompletesOpenPhrase(t *testing.T) {
	r := NewRecognizer(testRecognizerSettings(false), testSampleRate)

	feedFrames(r, constantFrame(0), 5)
	feedFrames(r, constantFrame(2000), 8)

	p, ok := r.Flush()
	if !ok {
		t.Fatal("expected flush to return the open phrase")
	}
	if len(p.PCM) == 0 {
		t.Error("expected flushed phrase to contain samples")
	}

	if _, ok := r.Flush(); ok {
		t.Error("expected second flush to be empty")
	}
}

func TestFlushWithoutSpeech(t *testing.T) {
	r := NewRecognizer(testRecognizerSettings(false), testSampleRate)

	feedFrames(r, constantFrame(0), 20)
	if _, ok := r.Flush(); ok {
		t.Error("expected no phrase from silence only")
	}
}

func TestMaxPhraseDurationSplits(t *testing.T) {
	cfg := testRecognizerSettings(false)
	maxLen := 600 * time.Millisecond
	cfg.MaxPhraseDuration = &maxLen

	r := NewRecognizer(cfg, testSampleRate)

	// 1.2s of continuous speech is split at the 600ms cap.
	phrases := feedFrames(r, constantFrame(2000), 40)
	if len(phrases) != 2 {
		t.Fatalf("expected 2 phrases, got %d", len(phrases))
	}
	for i, p := range phrases {
		if got := time.Duration(len(p.PCM)) * time.Second / testSampleRate; got > maxLen {
			t.Errorf("phrase %d longer than the cap: %v", i, got)
		}
	}
	if phrases[1].Start < phrases[0].End {
		t.Errorf("expected phrases in order, got %v before %v", phrases[1].Start, phrases[0].End)
	}
}

func TestCalibrateAdjustsThreshold(t *testing.T) {
	r := NewRecognizer(testRecognizerSettings(true), testSampleRate)

	// One second of steady noise at amplitude 1000 pulls the threshold
	// from 300 towards 1500.
	noise := make(PCM16Sample, testSampleRate)
	for i := range noise {
		noise[i] = 1000
	}
	r.Calibrate(noise)

	if got := r.Threshold(); got <= 300 || got > 1500 {
		t.Errorf("expected threshold between 300 and 1500, got %f", got)
	}

	// Loud frames below the raised threshold no longer start a phrase.
	quietSpeech := constantFrame(400)
	if phrases := feedFrames(r, quietSpeech, 40); len(phrases) != 0 {
		t.Errorf("expected no phrase below the calibrated threshold, got %d", len(phrases))
	}
}

func TestDynamicThresholdDecaysInSilence(t *testing.T) {
	r := NewRecognizer(testRecognizerSettings(true), testSampleRate)

	before := r.Threshold()
	feedFrames(r, constantFrame(0), 100)
	if got := r.Threshold(); got >= before {
		t.Errorf("expected threshold to decay below %f in silence, got %f", before, got)
	}
}
