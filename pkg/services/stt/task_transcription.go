package sttservice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/audio"
	"github.com/voxlive/voxlive-server/pkg/config"
	natsservice "github.com/voxlive/voxlive-server/pkg/services/nats"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

// newTask is a factory that returns the task implementation for a service.
func newTask(ctx context.Context, conf *config.AppConfig, serviceName string, serviceConfig *config.ServiceConfig, account *config.ProviderAccount, redisService *redisservice.RedisService, natsService *natsservice.NatsService, logger *logrus.Entry, sessionId string, options []byte) (*TranscriptionTask, error) {
	switch serviceName {
	case "transcription":
		return newTranscriptionTask(ctx, conf, serviceConfig, account, redisService, natsService, logger, sessionId, options)
	default:
		return nil, fmt.Errorf("unknown stt service task: %s", serviceName)
	}
}

// TranscriptionTask is the full pipeline of one session: energy based
// phrase detection, a paced submission queue and the fan-out of provider
// results into the live subject, the chunk store and usage tracking.
type TranscriptionTask struct {
	ctx    context.Context
	conf   *config.AppConfig
	logger *logrus.Entry

	sessionId string

	redisService *redisservice.RedisService
	natsService  *natsservice.NatsService

	stream  speech.TranscriptionStream
	phrases chan audio.Phrase
	spans   *spanTracker

	sampleRate int
	stopWord   string

	// feedMu serializes recognizer access; audio can reach Feed from a
	// local socket and the NATS relay at the same time.
	feedMu     sync.Mutex
	recognizer *audio.Recognizer
	// calibrateLeft is how many upcoming samples feed the threshold
	// calibration instead of phrase detection.
	calibrateLeft int

	speakerMu sync.RWMutex
	speaker   activeSpeaker

	// onStopKeyword fires when a finalized result contains the configured
	// stop keyword.
	onStopKeyword func()

	closeOnce sync.Once
}

func newTranscriptionTask(ctx context.Context, conf *config.AppConfig, serviceConfig *config.ServiceConfig, account *config.ProviderAccount, redisService *redisservice.RedisService, natsService *natsservice.NatsService, logger *logrus.Entry, sessionId string, options []byte) (*TranscriptionTask, error) {
	provider, err := NewProvider(conf, serviceConfig.Provider, account, serviceConfig, logger)
	if err != nil {
		return nil, err
	}

	streamOpts := buildStreamOptions(conf, serviceConfig, sessionId, options)
	stream, err := provider.NewTranscriptionStream(ctx, streamOpts)
	if err != nil {
		return nil, err
	}

	t := &TranscriptionTask{
		ctx:          ctx,
		conf:         conf,
		logger:       logger,
		sessionId:    sessionId,
		redisService: redisService,
		natsService:  natsService,
		stream:       stream,
		phrases:      make(chan audio.Phrase, 16),
		spans:        new(spanTracker),
		sampleRate:   conf.Capture.SampleRate,
		stopWord:     *conf.Session.StopWord,
		recognizer:   audio.NewRecognizer(&conf.Recognizer, conf.Capture.SampleRate),
	}

	go t.pump()
	go t.consumeResults()

	return t, nil
}

// buildStreamOptions merges the service level options with the ones the
// start task carried.
func buildStreamOptions(conf *config.AppConfig, serviceConfig *config.ServiceConfig, sessionId string, options []byte) *speech.StreamOptions {
	opts := &speech.StreamOptions{
		SessionId:  sessionId,
		SampleRate: conf.Capture.SampleRate,
		Channels:   conf.Capture.Channels,
	}

	if v, ok := serviceConfig.Options["language"].(string); ok {
		opts.Language = v
	}
	if v, ok := serviceConfig.Options["model_size"].(string); ok {
		opts.ModelSize = v
	}
	if v, ok := serviceConfig.Options["beam_size"].(int); ok {
		opts.BeamSize = v
	}
	if v, ok := serviceConfig.Options["vad_filter"].(bool); ok {
		opts.VADFilter = v
	}
	if v, ok := serviceConfig.Options["initial_prompt"].(string); ok {
		opts.InitialPrompt = v
	}

	if len(options) == 0 {
		return opts
	}
	start := new(StartOptions)
	if err := json.Unmarshal(options, start); err != nil {
		return opts
	}
	if start.Language != "" {
		opts.Language = start.Language
	}
	if start.ModelSize != "" {
		opts.ModelSize = start.ModelSize
	}
	if start.BeamSize > 0 {
		opts.BeamSize = start.BeamSize
	}
	if start.VADFilter {
		opts.VADFilter = true
	}
	if start.InitialPrompt != "" {
		opts.InitialPrompt = start.InitialPrompt
	}

	return opts
}

// SetSpeaker updates who finalized chunks are attributed to. The last
// speaker sticks around so results that arrive after an end task still
// carry a name.
func (t *TranscriptionTask) SetSpeaker(userId, name string) {
	t.speakerMu.Lock()
	t.speaker = activeSpeaker{userId: userId, name: name}
	t.speakerMu.Unlock()
}

func (t *TranscriptionTask) currentSpeaker() activeSpeaker {
	t.speakerMu.RLock()
	defer t.speakerMu.RUnlock()
	return t.speaker
}

// ApplyOptions pushes the mutable knobs of a start task onto the already
// running stream. Stream creation knobs like the model size only apply to
// the first start.
func (t *TranscriptionTask) ApplyOptions(opts *StartOptions) {
	if opts.Language != "" {
		if err := t.stream.SetProperty("language", opts.Language); err != nil {
			t.logger.WithError(err).Warnln("failed to switch language")
		}
	}
	if opts.InitialPrompt != "" {
		if err := t.stream.SetProperty("initial_prompt", opts.InitialPrompt); err != nil {
			t.logger.WithError(err).Warnln("failed to set initial prompt")
		}
	}
}

// StartCalibration diverts the next calibration window of audio into the
// recognizer's ambient noise adjustment.
func (t *TranscriptionTask) StartCalibration() {
	d := *t.conf.Recognizer.CalibrationDuration

	t.feedMu.Lock()
	t.calibrateLeft = int(int64(d) * int64(t.sampleRate) / int64(time.Second))
	t.feedMu.Unlock()
}

// Feed consumes one frame of session audio and queues any phrases it
// completes.
func (t *TranscriptionTask) Feed(frame audio.PCM16Sample) {
	if len(frame) == 0 {
		return
	}

	t.feedMu.Lock()
	if t.calibrateLeft > 0 {
		n := min(t.calibrateLeft, len(frame))
		t.recognizer.Calibrate(frame[:n])
		t.calibrateLeft -= n
		frame = frame[n:]
		if len(frame) == 0 {
			t.feedMu.Unlock()
			return
		}
	}
	detected := t.recognizer.Feed(frame)
	t.feedMu.Unlock()

	for _, phrase := range detected {
		t.enqueue(phrase)
	}
}

// Flush completes a phrase that is still buffering, normally because the
// speaker stopped mid-sentence when their task ended.
func (t *TranscriptionTask) Flush() {
	t.feedMu.Lock()
	phrase, ok := t.recognizer.Flush()
	t.feedMu.Unlock()

	if ok {
		t.enqueue(phrase)
	}
}

func (t *TranscriptionTask) enqueue(phrase audio.Phrase) {
	select {
	case t.phrases <- phrase:
	default:
		// The provider is too far behind; dropping beats stalling the
		// ingest socket.
		t.logger.Warnf("phrase queue full, dropped %v of audio", phrase.End-phrase.Start)
	}
}

// pump submits detected phrases to the provider, one at a time with a
// small gap between jobs so a burst of short phrases cannot flood a
// rate-limited backend.
func (t *TranscriptionTask) pump() {
	for {
		select {
		case <-t.ctx.Done():
			return
		case phrase := <-t.phrases:
			t.spans.add(phrase, t.sampleRate)
			if _, err := t.stream.Write(phrase.PCM.Bytes()); err != nil {
				t.logger.WithError(err).Errorln("failed to submit phrase")
				return
			}

			select {
			case <-time.After(config.WaitBetweenTranscribeJobs):
			case <-t.ctx.Done():
				return
			}
		}
	}
}

func (t *TranscriptionTask) consumeResults() {
	for result := range t.stream.Results() {
		t.handleResult(result)
	}
}

// handleResult publishes every result live and persists the finalized
// ones. A finalized result containing the stop keyword ends the task.
func (t *TranscriptionTask) handleResult(res *speech.TranscriptionResult) {
	speaker := t.currentSpeaker()
	chunk := &natsservice.TranscriptChunk{
		SessionId: t.sessionId,
		UserId:    speaker.userId,
		Name:      speaker.name,
		Lang:      res.Language,
		Text:      res.Text,
		Start:     t.spans.toStreamTime(res.Start).Milliseconds(),
		End:       t.spans.toStreamTime(res.End).Milliseconds(),
		IsPartial: res.IsPartial,
	}

	if err := t.natsService.PublishLiveResult(chunk); err != nil {
		t.logger.WithError(err).Errorln("failed to publish live result")
	}

	if res.IsPartial {
		return
	}

	if err := t.natsService.AddTranscriptChunk(chunk); err != nil {
		t.logger.WithError(err).Errorln("failed to store transcript chunk")
	}
	if err := t.redisService.SetLastTranscription(t.ctx, t.sessionId, res.Text); err != nil {
		t.logger.WithError(err).Errorln("failed to store last transcription")
	}

	if containsStopWord(res.Text, t.stopWord) && t.onStopKeyword != nil {
		t.logger.Infof("stop keyword detected, ending task for %s", speaker.userId)
		t.onStopKeyword()
	}
}

// Close flushes the recognizer, pushes whatever is still queued to the
// provider and closes the stream. Queued phrases are still transcribed
// and land in the chunk store before the results channel closes.
func (t *TranscriptionTask) Close() {
	t.closeOnce.Do(func() {
		t.Flush()

		for {
			select {
			case phrase := <-t.phrases:
				t.spans.add(phrase, t.sampleRate)
				if _, err := t.stream.Write(phrase.PCM.Bytes()); err != nil {
					_ = t.stream.Close()
					return
				}
			default:
				_ = t.stream.Close()
				return
			}
		}
	})
}

// containsStopWord reports whether the phrase contains the configured stop
// keyword, matched case-insensitively anywhere in the text.
func containsStopWord(text, word string) bool {
	if word == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(word))
}

// spanTracker maps timestamps from the provider's time base, which only
// counts the audio actually submitted, back to offsets in the session's
// own stream. Silent gaps the recognizer skipped stay accounted for.
type spanTracker struct {
	mu   sync.Mutex
	base time.Duration
	list []phraseSpan
}

type phraseSpan struct {
	provStart time.Duration
	dur       time.Duration
	realStart time.Duration
}

func (st *spanTracker) add(p audio.Phrase, sampleRate int) {
	dur := time.Duration(len(p.PCM)) * time.Second / time.Duration(sampleRate)

	st.mu.Lock()
	st.list = append(st.list, phraseSpan{provStart: st.base, dur: dur, realStart: p.Start})
	st.base += dur
	st.mu.Unlock()
}

// toStreamTime translates one provider timestamp. Results arrive in
// submission order, so spans fully behind the matched one are dropped.
func (st *spanTracker) toStreamTime(provTime time.Duration) time.Duration {
	st.mu.Lock()
	defer st.mu.Unlock()

	idx := -1
	for i, sp := range st.list {
		if provTime >= sp.provStart {
			idx = i
		} else {
			break
		}
	}
	if idx < 0 {
		if len(st.list) > 0 {
			return st.list[0].realStart
		}
		return provTime
	}

	sp := st.list[idx]
	off := provTime - sp.provStart
	if off > sp.dur {
		off = sp.dur
	}
	if idx > 0 {
		st.list = st.list[idx:]
	}

	return sp.realStart + off
}
