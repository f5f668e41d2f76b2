package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/audio"
	"github.com/voxlive/voxlive-server/pkg/config"
	dbservice "github.com/voxlive/voxlive-server/pkg/services/db"
	natsservice "github.com/voxlive/voxlive-server/pkg/services/nats"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
	sttservice "github.com/voxlive/voxlive-server/pkg/services/stt"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

type TranscriptionModel struct {
	app         *config.AppConfig
	ds          *dbservice.DatabaseService
	rs          *redisservice.RedisService
	natsService *natsservice.NatsService
	sttService  *sttservice.SttService
	logger      *logrus.Entry
}

func NewTranscriptionModel(app *config.AppConfig, ds *dbservice.DatabaseService, rs *redisservice.RedisService, natsService *natsservice.NatsService, sttService *sttservice.SttService, logger *logrus.Logger) *TranscriptionModel {
	if app == nil {
		app = config.GetConfig()
	}
	if ds == nil {
		ds = dbservice.New(app.DB, logger)
	}
	if rs == nil {
		rs = redisservice.New(app.RDS, logger)
	}
	if natsService == nil {
		natsService = natsservice.New(app, logger)
	}

	return &TranscriptionModel{
		app:         app,
		ds:          ds,
		rs:          rs,
		natsService: natsService,
		sttService:  sttService,
		logger:      logger.WithField("model", "transcription"),
	}
}

type FetchTranscriptChunksReq struct {
	SessionId string `json:"session_id"`
}

type FetchTranscriptChunksResult struct {
	SessionId string                         `json:"session_id"`
	Total     int                            `json:"total"`
	Chunks    []*natsservice.TranscriptChunk `json:"chunks"`
}

// FetchTranscriptChunks returns the stored transcript of a session in
// speaking order.
func (m *TranscriptionModel) FetchTranscriptChunks(r *FetchTranscriptChunksReq) (*FetchTranscriptChunksResult, error) {
	chunks, err := m.natsService.GetTranscriptChunks(r.SessionId)
	if err != nil {
		return nil, err
	}

	return &FetchTranscriptChunksResult{
		SessionId: r.SessionId,
		Total:     len(chunks),
		Chunks:    chunks,
	}, nil
}

// GetLastTranscription returns the newest final transcription exactly once.
// The slot clears atomically, so a second call comes back empty until the
// next result lands.
func (m *TranscriptionModel) GetLastTranscription(ctx context.Context, sessionId string) (string, error) {
	return m.rs.GetDelLastTranscription(ctx, sessionId)
}

// GetSupportedLanguages lists the languages the service's provider accepts.
func (m *TranscriptionModel) GetSupportedLanguages(serviceName string) ([]*speech.LanguageInfo, error) {
	return m.sttService.GetSupportedLanguagesForService(serviceName)
}

type TranscribeFileReq struct {
	ServiceName string
	Language    string
	FilePath    string
	FileSize    int64
}

type TranscribedSegment struct {
	Text    string `json:"text"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
}

type TranscribeFileResult struct {
	Text     string                `json:"text"`
	Language string                `json:"language,omitempty"`
	Segments []*TranscribedSegment `json:"segments"`
}

// TranscribeFile runs an uploaded WAV file through the service's provider
// in one synchronous pass. The caller is responsible for removing the
// uploaded file afterwards.
func (m *TranscriptionModel) TranscribeFile(ctx context.Context, r *TranscribeFileReq) (*TranscribeFileResult, error) {
	if r.FileSize > config.MaxUploadedWavFileSize {
		return nil, fmt.Errorf("file is too large, maximum allowed is %d bytes", config.MaxUploadedWavFileSize)
	}

	account, svcConf, err := m.app.Speech.GetProviderAccountForService(r.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ServiceNotConfigured, err)
	}

	data, err := os.ReadFile(r.FilePath)
	if err != nil {
		return nil, err
	}

	pcm, sampleRate, channels, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	if channels != 1 {
		return nil, fmt.Errorf("expected mono audio, got %d channels", channels)
	}
	if int(sampleRate) != m.app.Capture.SampleRate {
		return nil, fmt.Errorf("expected %d Hz audio, got %d Hz", m.app.Capture.SampleRate, sampleRate)
	}
	if len(pcm) == 0 {
		return nil, errors.New("the file contains no audio data")
	}

	provider, err := sttservice.NewProvider(m.app, svcConf.Provider, account, svcConf, m.logger)
	if err != nil {
		return nil, err
	}

	opts := &speech.StreamOptions{
		Language:   r.Language,
		SampleRate: int(sampleRate),
		Channels:   int(channels),
	}
	if opts.Language == "" {
		if l, ok := svcConf.Options["language"].(string); ok {
			opts.Language = l
		}
	}

	ctx, cancel := context.WithTimeout(ctx, config.DefaultTranscribeTimeout)
	defer cancel()

	stream, err := provider.NewTranscriptionStream(ctx, opts)
	if err != nil {
		return nil, err
	}

	if _, err := stream.Write(pcm.Bytes()); err != nil {
		_ = stream.Close()
		return nil, err
	}
	if err := stream.Close(); err != nil {
		return nil, err
	}

	// the provider closes the channel once the last result is out
	res := new(TranscribeFileResult)
	var sb strings.Builder
	for {
		select {
		case result, ok := <-stream.Results():
			if !ok {
				res.Text = strings.TrimSpace(sb.String())
				return res, nil
			}
			if result.IsPartial {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(strings.TrimSpace(result.Text))
			res.Segments = append(res.Segments, &TranscribedSegment{
				Text:    strings.TrimSpace(result.Text),
				StartMs: result.Start.Milliseconds(),
				EndMs:   result.End.Milliseconds(),
			})
			if result.Language != "" {
				res.Language = result.Language
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
