package audio

import (
	"math"
	"time"

	"github.com/voxlive/voxlive-server/pkg/config"
)

// calibrationChunk is the number of samples per energy measurement while
// calibrating, matching the capture chunk size the thresholds were tuned
// against.
const calibrationChunk = 1024

// Phrase is one segment of detected speech, including a short non-speaking
// pad before and after it. Start and End are offsets from the beginning of
// the stream.
type Phrase struct {
	PCM   PCM16Sample
	Start time.Duration
	End   time.Duration
}

// Recognizer turns a continuous PCM16 stream into phrases using an energy
// threshold. A phrase starts when a frame's RMS energy rises above the
// threshold and ends after PauseThreshold of quiet. Phrases shorter than
// PhraseThreshold are discarded as noise.
//
// Feed and Flush are synchronous and not safe for concurrent use; each
// ingest stream owns its own Recognizer.
type Recognizer struct {
	threshold float64
	dynamic   bool
	damping   float64
	ratio     float64

	sampleRate    int
	pauseSamples  int
	phraseSamples int
	padSamples    int
	maxSamples    int

	// lead is a sliding window of the most recent quiet frames, kept so
	// a phrase starts with up to NonSpeakingDuration of context.
	lead    []PCM16Sample
	leadLen int

	// frames is the phrase being collected, including the trailing quiet
	// that has not yet reached PauseThreshold.
	frames   []PCM16Sample
	frameLen int
	leadIn   int
	pauseLen int
	inPhrase bool

	// pos counts all samples consumed so far, start marks where the
	// current phrase began.
	pos   int64
	start int64
}

// NewRecognizer builds a Recognizer from the configured knobs. The config
// defaults mirror the classic speech_recognition values: threshold 300,
// damping 0.15, ratio 1.5, pause 800ms, phrase 300ms, non-speaking 500ms.
func NewRecognizer(cfg *config.RecognizerSettings, sampleRate int) *Recognizer {
	r := &Recognizer{
		threshold:     cfg.EnergyThreshold,
		dynamic:       *cfg.DynamicEnergy,
		damping:       cfg.DynamicDamping,
		ratio:         cfg.DynamicRatio,
		sampleRate:    sampleRate,
		pauseSamples:  durationSamples(*cfg.PauseThreshold, sampleRate),
		phraseSamples: durationSamples(*cfg.PhraseThreshold, sampleRate),
		padSamples:    durationSamples(*cfg.NonSpeakingDuration, sampleRate),
	}

	if cfg.MaxPhraseDuration != nil && *cfg.MaxPhraseDuration > 0 {
		r.maxSamples = durationSamples(*cfg.MaxPhraseDuration, sampleRate)
	}

	return r
}

func durationSamples(d time.Duration, sampleRate int) int {
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}

// Threshold returns the current energy threshold, which moves over time
// when dynamic adjustment is enabled.
func (r *Recognizer) Threshold() float64 {
	return r.threshold
}

// Calibrate adjusts the energy threshold from a window of ambient noise,
// the equivalent of listening to the room for a second before the first
// phrase.
func (r *Recognizer) Calibrate(samples PCM16Sample) {
	for len(samples) > 0 {
		n := calibrationChunk
		if n > len(samples) {
			n = len(samples)
		}
		r.adjust(RMS(samples[:n]), n)
		samples = samples[n:]
	}
}

// adjust moves the threshold towards energy*ratio, damped so that short
// spikes do not swing it.
func (r *Recognizer) adjust(energy float64, numSamples int) {
	seconds := float64(numSamples) / float64(r.sampleRate)
	damping := math.Pow(r.damping, seconds)
	target := energy * r.ratio
	r.threshold = r.threshold*damping + target*(1-damping)
}

// Feed consumes one frame of audio and returns any phrases completed by
// it. Frames do not have to be equally sized.
func (r *Recognizer) Feed(frame PCM16Sample) []Phrase {
	if len(frame) == 0 {
		return nil
	}

	energy := RMS(frame)
	var out []Phrase

	if !r.inPhrase {
		if energy > r.threshold {
			// Phrase starts. Prepend the buffered quiet context.
			r.inPhrase = true
			r.start = r.pos - int64(r.leadLen)
			r.frames = append(r.frames, r.lead...)
			r.frameLen = r.leadLen
			r.lead = nil
			r.leadLen = 0

			r.frames = append(r.frames, frame)
			r.frameLen += len(frame)
			// The minimum length check only counts audio after the
			// trigger frame, not the quiet context.
			r.leadIn = r.frameLen
		} else {
			r.lead = append(r.lead, frame)
			r.leadLen += len(frame)
			for len(r.lead) > 1 && r.leadLen-len(r.lead[0]) >= r.padSamples {
				r.leadLen -= len(r.lead[0])
				r.lead = r.lead[1:]
			}
			// The threshold only adapts between phrases so that
			// sustained speech cannot raise it above itself.
			if r.dynamic {
				r.adjust(energy, len(frame))
			}
		}
	} else {
		r.frames = append(r.frames, frame)
		r.frameLen += len(frame)

		if energy > r.threshold {
			r.pauseLen = 0
		} else {
			r.pauseLen += len(frame)
		}

		if r.pauseLen >= r.pauseSamples {
			if p, ok := r.finish(); ok {
				out = append(out, p)
			}
		} else if r.maxSamples > 0 && r.frameLen >= r.maxSamples {
			if p, ok := r.finish(); ok {
				out = append(out, p)
			}
		}
	}

	r.pos += int64(len(frame))
	return out
}

// Flush completes a phrase that is still open when the stream ends. It
// skips the minimum length check since there is no more audio coming.
func (r *Recognizer) Flush() (Phrase, bool) {
	if !r.inPhrase || r.frameLen <= r.pauseLen {
		r.reset()
		return Phrase{}, false
	}

	p := r.assemble()
	r.reset()
	return p, true
}

// finish closes the current phrase, trims the trailing quiet down to the
// non-speaking pad and drops phrases that are too short to be speech.
func (r *Recognizer) finish() (Phrase, bool) {
	speechLen := r.frameLen - r.leadIn - r.pauseLen
	if speechLen < r.phraseSamples {
		r.reset()
		return Phrase{}, false
	}

	p := r.assemble()
	r.reset()
	return p, true
}

func (r *Recognizer) assemble() Phrase {
	// Keep at most padSamples of the trailing quiet.
	trailing := r.pauseLen
	for len(r.frames) > 0 && trailing > r.padSamples {
		last := r.frames[len(r.frames)-1]
		if trailing-len(last) < r.padSamples {
			break
		}
		trailing -= len(last)
		r.frameLen -= len(last)
		r.frames = r.frames[:len(r.frames)-1]
	}

	pcm := make(PCM16Sample, 0, r.frameLen)
	for _, f := range r.frames {
		pcm = append(pcm, f...)
	}

	return Phrase{
		PCM:   pcm,
		Start: samplesDuration(r.start, r.sampleRate),
		End:   samplesDuration(r.start+int64(len(pcm)), r.sampleRate),
	}
}

func (r *Recognizer) reset() {
	r.frames = nil
	r.frameLen = 0
	r.leadIn = 0
	r.pauseLen = 0
	r.inPhrase = false
}

func samplesDuration(samples int64, sampleRate int) time.Duration {
	return time.Duration(samples * int64(time.Second) / int64(sampleRate))
}
