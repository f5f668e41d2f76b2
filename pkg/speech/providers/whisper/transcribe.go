package whisper

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/audio"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

// minPhraseEnergy is the RMS floor used when vad_filter is enabled. The
// ingest side already strips silence, so this only drops buffers that are
// effectively empty.
const minPhraseEnergy = 100

// whisperStream implements speech.TranscriptionStream on a local model.
// Each Write carries one whole phrase of PCM16LE audio; phrases are queued
// and decoded serially because a whisper context is single threaded.
type whisperStream struct {
	wctx whisper.Context
	opts *speech.StreamOptions
	log  *logrus.Entry

	phrases chan []float32
	results chan *speech.TranscriptionResult

	// processed is the total duration of audio decoded so far, used to
	// offset segment timestamps into the stream's own time base.
	processed time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newTranscribeStream(ctx context.Context, model whisper.Model, opts *speech.StreamOptions, log *logrus.Entry) (*whisperStream, error) {
	wctx, err := model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper context: %w", err)
	}

	if opts.Language != "" {
		if err := wctx.SetLanguage(opts.Language); err != nil {
			return nil, fmt.Errorf("unsupported language %q: %w", opts.Language, err)
		}
	}
	wctx.SetTranslate(false)
	wctx.SetTokenTimestamps(true)
	if opts.BeamSize > 0 {
		wctx.SetBeamSize(opts.BeamSize)
	}
	if opts.InitialPrompt != "" {
		wctx.SetInitialPrompt(opts.InitialPrompt)
	}

	s := &whisperStream{
		wctx:    wctx,
		opts:    opts,
		log:     log,
		phrases: make(chan []float32, 8),
		results: make(chan *speech.TranscriptionResult, 16),
		done:    make(chan struct{}),
	}

	go s.run(ctx)

	return s, nil
}

// Write queues one phrase for decoding. It blocks while the phrase queue
// is full so slow decoding applies backpressure to the caller.
func (s *whisperStream) Write(p []byte) (int, error) {
	samples := audio.BytesToPCM16(p)
	if len(samples) == 0 {
		return len(p), nil
	}

	if s.opts.VADFilter && audio.RMS(samples) < minPhraseEnergy {
		return len(p), nil
	}

	select {
	case s.phrases <- samples.Float32():
		return len(p), nil
	case <-s.done:
		return 0, io.ErrClosedPipe
	}
}

// Close stops accepting audio. Phrases already queued are still decoded
// before the results channel is closed.
func (s *whisperStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

// SetProperty adjusts the decoding context between phrases.
func (s *whisperStream) SetProperty(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch key {
	case "language":
		return s.wctx.SetLanguage(value)
	case "initial_prompt":
		s.wctx.SetInitialPrompt(value)
		return nil
	default:
		return fmt.Errorf("unknown whisper property %q", key)
	}
}

// Results implements the speech.TranscriptionStream interface.
func (s *whisperStream) Results() <-chan *speech.TranscriptionResult {
	return s.results
}

func (s *whisperStream) run(ctx context.Context) {
	defer close(s.results)

	for {
		select {
		case samples := <-s.phrases:
			s.process(ctx, samples)
		case <-s.done:
			// Decode the phrases that were queued before Close.
			for {
				select {
				case samples := <-s.phrases:
					s.process(ctx, samples)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *whisperStream) process(ctx context.Context, samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset := s.processed
	err := s.wctx.Process(samples, nil, func(segment whisper.Segment) {
		result := &speech.TranscriptionResult{
			Text:     strings.TrimSpace(segment.Text),
			Start:    offset + segment.Start,
			End:      offset + segment.End,
			Language: s.opts.Language,
		}
		if result.Text == "" {
			return
		}
		select {
		case s.results <- result:
		case <-ctx.Done():
		}
	}, nil)
	if err != nil {
		s.log.WithError(err).Errorln("whisper processing failed")
	}

	s.processed += time.Duration(len(samples)) * time.Second / time.Duration(whisper.SampleRate)
}
