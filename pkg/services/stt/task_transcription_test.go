package sttservice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/audio"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

func TestContainsStopWord(t *testing.T) {
	tests := []struct {
		text string
		word string
		want bool
	}{
		{"Please STOP now", "stop", true},
		{"stop", "stop", true},
		{"nonstop talking", "stop", true}, // substring match, no word boundary
		{"keep going", "stop", false},
		{"", "stop", false},
		{"anything", "", false},
		{"HALT the session", "halt", true},
	}

	for _, tt := range tests {
		if got := containsStopWord(tt.text, tt.word); got != tt.want {
			t.Errorf("containsStopWord(%q, %q) = %v, want %v", tt.text, tt.word, got, tt.want)
		}
	}
}

func TestSpanTrackerMapsProviderTime(t *testing.T) {
	st := new(spanTracker)

	// 1s phrase that really started 2s into the stream, then a 0.5s
	// phrase at 5s. The provider only sees 1.5s of audio in total.
	st.add(audio.Phrase{PCM: make(audio.PCM16Sample, 16000), Start: 2 * time.Second}, 16000)
	st.add(audio.Phrase{PCM: make(audio.PCM16Sample, 8000), Start: 5 * time.Second}, 16000)

	if got := st.toStreamTime(200 * time.Millisecond); got != 2200*time.Millisecond {
		t.Errorf("inside first phrase: got %v, want 2.2s", got)
	}
	if got := st.toStreamTime(1200 * time.Millisecond); got != 5200*time.Millisecond {
		t.Errorf("inside second phrase: got %v, want 5.2s", got)
	}
	// Timestamps past the submitted audio clamp to the phrase end.
	if got := st.toStreamTime(1900 * time.Millisecond); got != 5500*time.Millisecond {
		t.Errorf("past the end: got %v, want 5.5s", got)
	}
}

func TestSpanTrackerWithoutSpans(t *testing.T) {
	st := new(spanTracker)
	if got := st.toStreamTime(700 * time.Millisecond); got != 700*time.Millisecond {
		t.Errorf("expected identity mapping, got %v", got)
	}
}

type recordingStream struct {
	mu      sync.Mutex
	writes  []time.Time
	results chan *speech.TranscriptionResult
}

func newRecordingStream() *recordingStream {
	return &recordingStream{results: make(chan *speech.TranscriptionResult)}
}

func (s *recordingStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.writes = append(s.writes, time.Now())
	s.mu.Unlock()
	return len(p), nil
}

func (s *recordingStream) Close() error                        { return nil }
func (s *recordingStream) SetProperty(key, value string) error { return nil }
func (s *recordingStream) Results() <-chan *speech.TranscriptionResult {
	return s.results
}

func (s *recordingStream) writeTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, len(s.writes))
	copy(out, s.writes)
	return out
}

func TestPumpPacesSubmissions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := newRecordingStream()
	task := &TranscriptionTask{
		ctx:        ctx,
		logger:     logrus.New().WithField("test", t.Name()),
		stream:     stream,
		phrases:    make(chan audio.Phrase, 16),
		spans:      new(spanTracker),
		sampleRate: 16000,
	}

	for i := 0; i < 3; i++ {
		task.phrases <- audio.Phrase{PCM: make(audio.PCM16Sample, 160)}
	}

	go task.pump()

	deadline := time.After(3 * time.Second)
	for {
		if len(stream.writeTimes()) == 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected 3 submissions, got %d", len(stream.writeTimes()))
		case <-time.After(10 * time.Millisecond):
		}
	}

	writes := stream.writeTimes()
	for i := 1; i < len(writes); i++ {
		if gap := writes[i].Sub(writes[i-1]); gap < config.WaitBetweenTranscribeJobs {
			t.Errorf("submission %d came %v after the previous one, want at least %v", i, gap, config.WaitBetweenTranscribeJobs)
		}
	}
}

func TestNewTaskRejectsUnknownService(t *testing.T) {
	_, err := newTask(context.Background(), &config.AppConfig{}, "translation", nil, nil, nil, nil, logrus.New().WithField("test", t.Name()), "s1", nil)
	if err == nil {
		t.Fatal("expected an error for an unknown service")
	}
}
