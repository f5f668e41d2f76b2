package openai

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/audio"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

// openaiStream implements speech.TranscriptionStream. Every Write carries
// one whole phrase of PCM16LE audio which is WAV-wrapped and uploaded as a
// single transcription request. Phrases are processed serially in order.
type openaiStream struct {
	client openai.Client
	model  string
	opts   *speech.StreamOptions
	log    *logrus.Entry

	phrases chan []byte
	results chan *speech.TranscriptionResult

	// processed tracks the duration of audio transcribed so far to give
	// the emitted results a monotonic time base.
	processed time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newTranscribeStream(ctx context.Context, client openai.Client, model string, opts *speech.StreamOptions, log *logrus.Entry) *openaiStream {
	s := &openaiStream{
		client:  client,
		model:   model,
		opts:    opts,
		log:     log,
		phrases: make(chan []byte, 8),
		results: make(chan *speech.TranscriptionResult, 16),
		done:    make(chan struct{}),
	}

	go s.run(ctx)

	return s
}

// Write queues one phrase for upload. It blocks while the phrase queue is
// full so a slow API applies backpressure to the caller.
func (s *openaiStream) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	buf := make([]byte, len(p))
	copy(buf, p)

	select {
	case s.phrases <- buf:
		return len(p), nil
	case <-s.done:
		return 0, io.ErrClosedPipe
	}
}

// Close stops accepting audio. Queued phrases are still uploaded before
// the results channel is closed.
func (s *openaiStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

// SetProperty adjusts the request options between phrases.
func (s *openaiStream) SetProperty(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch key {
	case "language":
		s.opts.Language = value
	case "initial_prompt":
		s.opts.InitialPrompt = value
	case "model":
		s.model = value
	default:
		// Unknown keys are ignored so callers can set provider
		// specific properties without checking the backend first.
	}
	return nil
}

// Results implements the speech.TranscriptionStream interface.
func (s *openaiStream) Results() <-chan *speech.TranscriptionResult {
	return s.results
}

func (s *openaiStream) run(ctx context.Context) {
	defer close(s.results)

	for {
		select {
		case pcm := <-s.phrases:
			s.process(ctx, pcm)
		case <-s.done:
			for {
				select {
				case pcm := <-s.phrases:
					s.process(ctx, pcm)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *openaiStream) process(ctx context.Context, pcm []byte) {
	s.mu.Lock()
	model := s.model
	language := s.opts.Language
	prompt := s.opts.InitialPrompt
	s.mu.Unlock()

	sampleRate := s.opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}
	numChannels := s.opts.Channels
	if numChannels == 0 {
		numChannels = 1
	}
	duration := time.Duration(len(pcm)/2/numChannels) * time.Second / time.Duration(sampleRate)

	wav := audio.EncodeWAV(pcm, uint32(sampleRate), uint32(numChannels))

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "phrase.wav", "audio/wav"),
		Model: openai.AudioModel(model),
	}
	if language != "" {
		params.Language = openai.String(language)
	}
	if prompt != "" {
		params.Prompt = openai.String(prompt)
	}

	reqCtx, cancel := context.WithTimeout(ctx, config.DefaultTranscribeTimeout)
	defer cancel()

	res, err := s.client.Audio.Transcriptions.New(reqCtx, params)
	if err != nil {
		s.log.WithError(err).Errorln("openai transcription request failed")
		s.processed += duration
		return
	}

	text := strings.TrimSpace(res.Text)
	if text != "" {
		result := &speech.TranscriptionResult{
			Text:     text,
			Start:    s.processed,
			End:      s.processed + duration,
			Language: language,
		}
		select {
		case s.results <- result:
		case <-ctx.Done():
		}
	}

	s.processed += duration
}
