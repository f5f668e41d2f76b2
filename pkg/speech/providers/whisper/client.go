package whisper

import (
	"context"
	"fmt"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

// WhisperProvider runs speech-to-text locally through the whisper.cpp
// bindings. One ggml model is loaded per provider and shared by all of its
// streams; every stream gets its own decoding context.
type WhisperProvider struct {
	model     whisper.Model
	modelPath string
	log       *logrus.Entry
}

// NewProvider loads the ggml model file. The path normally points into the
// model asset store after the manifest has been synced.
func NewProvider(modelPath string, log *logrus.Entry) (*WhisperProvider, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("whisper provider requires a model file")
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model %s: %w", modelPath, err)
	}

	return &WhisperProvider{
		model:     model,
		modelPath: modelPath,
		log:       log,
	}, nil
}

// Name implements the speech.Provider interface.
func (p *WhisperProvider) Name() string {
	return "whisper"
}

// NewTranscriptionStream delegates to the specialized transcribe stream.
func (p *WhisperProvider) NewTranscriptionStream(ctx context.Context, opts *speech.StreamOptions) (speech.TranscriptionStream, error) {
	return newTranscribeStream(ctx, p.model, opts, p.log)
}

// GetSupportedLanguages returns the language codes the loaded model was
// trained on. English-only models report just "en".
func (p *WhisperProvider) GetSupportedLanguages(service speech.ServiceType) []*speech.LanguageInfo {
	if service != speech.ServiceTranscription {
		return nil
	}

	var out []*speech.LanguageInfo
	for _, code := range p.model.Languages() {
		out = append(out, &speech.LanguageInfo{
			Code: code,
			Name: code,
		})
	}

	return out
}

// Close releases the loaded model. Streams must be closed first.
func (p *WhisperProvider) Close() error {
	return p.model.Close()
}
