package speech

import (
	"context"
	"io"
	"time"
)

// ServiceType names one of the speech services a session can enable.
type ServiceType string

const (
	ServiceTranscription ServiceType = "transcription"
	ServiceSummarizing   ServiceType = "summarizing"
)

// TranscriptionResult is the standardized struct for a single piece of transcribed text.
type TranscriptionResult struct {
	Text      string        `json:"text"`
	IsPartial bool          `json:"is_partial"` // True if this is an intermediate, non-final result.
	Start     time.Duration `json:"start"`
	End       time.Duration `json:"end"`
	Language  string        `json:"language,omitempty"`
}

// TranscriptionStream defines a universal, bidirectional interface for a live transcription.
// It is the contract that all providers must fulfill to offer real-time STT.
// The user of this interface can Write() audio to the stream and will receive
// results by reading from the Results() channel.
type TranscriptionStream interface {
	// Write accepts a chunk of 16kHz mono PCM16LE audio to be transcribed.
	io.Writer

	// Closer signals that the audio stream is finished and no more data will be sent.
	io.Closer

	// SetProperty allows setting provider-specific properties on the fly.
	SetProperty(key string, value string) error

	// Results returns a read-only channel where the transcription results will be sent.
	// The provider closes the channel once the stream is finished.
	Results() <-chan *TranscriptionResult
}

// StreamOptions carries the transcription knobs a session was created with.
type StreamOptions struct {
	SessionId     string
	Language      string
	ModelSize     string
	Device        string
	ComputeType   string
	BeamSize      int
	VADFilter     bool
	InitialPrompt string
	SampleRate    int
	Channels      int
}

// LanguageInfo describes one language a provider can transcribe.
type LanguageInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Provider is the contract every speech-to-text backend fulfils.
type Provider interface {
	// Name returns the provider kind, e.g. "whisper" or "azure".
	Name() string

	// NewTranscriptionStream opens a live transcription for one session.
	NewTranscriptionStream(ctx context.Context, opts *StreamOptions) (TranscriptionStream, error)

	// GetSupportedLanguages lists the languages the given service supports,
	// or nil when the provider does not publish such a list.
	GetSupportedLanguages(service ServiceType) []*LanguageInfo
}

// SummaryJobStatus is the lifecycle state of an asynchronous summary job.
type SummaryJobStatus string

const (
	SummaryJobRunning   SummaryJobStatus = "running"
	SummaryJobCompleted SummaryJobStatus = "completed"
	SummaryJobFailed    SummaryJobStatus = "failed"
)

// SummaryJobResult is the polled state of a summary job, including token
// usage once the job has finished.
type SummaryJobResult struct {
	Status           SummaryJobStatus `json:"status"`
	Summary          string           `json:"summary,omitempty"`
	Error            string           `json:"error,omitempty"`
	PromptTokens     uint32           `json:"prompt_tokens"`
	CompletionTokens uint32           `json:"completion_tokens"`
	TotalTokens      uint32           `json:"total_tokens"`
}

// SummaryProvider is implemented by backends that can summarize a finished
// session transcript through an asynchronous batch job.
type SummaryProvider interface {
	// CreateSummaryJob uploads the transcript file and starts a batch job.
	// It returns the job id and the name of the uploaded file so it can be
	// deleted once the job is done.
	CreateSummaryJob(ctx context.Context, transcriptPath, model, userPrompt string) (jobId string, fileName string, err error)

	// CheckSummaryJob polls the state of a previously created job.
	CheckSummaryJob(ctx context.Context, jobId string) (*SummaryJobResult, error)

	// DeleteSummaryFile removes the uploaded transcript from the provider.
	DeleteSummaryFile(ctx context.Context, fileName string) error
}
