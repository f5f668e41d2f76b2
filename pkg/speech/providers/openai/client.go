package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

// OpenAIProvider implements the speech.Provider interface against the
// OpenAI audio transcription API or any compatible endpoint.
type OpenAIProvider struct {
	client openai.Client
	model  string
	log    *logrus.Entry
}

// NewProvider constructs the OpenAI-compatible provider. An alternative
// endpoint can be set through the account option "endpoint".
func NewProvider(account *config.ProviderAccount, serviceConfig *config.ServiceConfig, log *logrus.Entry) (*OpenAIProvider, error) {
	if account.Credentials.APIKey == "" {
		return nil, fmt.Errorf("openai provider requires api_key")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(account.Credentials.APIKey),
	}
	if ep, ok := account.Options["endpoint"].(string); ok && ep != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(ep))
	}

	model := string(openai.AudioModelWhisper1)
	if m, ok := serviceConfig.Options["model"].(string); ok && m != "" {
		model = m
	}

	return &OpenAIProvider{
		client: openai.NewClient(reqOpts...),
		model:  model,
		log:    log,
	}, nil
}

// Name implements the speech.Provider interface.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// NewTranscriptionStream opens a phrase-by-phrase transcription stream. The
// API only accepts whole files, so each written phrase is uploaded as one
// small WAV file.
func (p *OpenAIProvider) NewTranscriptionStream(ctx context.Context, opts *speech.StreamOptions) (speech.TranscriptionStream, error) {
	return newTranscribeStream(ctx, p.client, p.model, opts, p.log), nil
}

// GetSupportedLanguages is not published by the API.
func (p *OpenAIProvider) GetSupportedLanguages(service speech.ServiceType) []*speech.LanguageInfo {
	return nil
}
