package azure

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/speech"
)

// AzureProvider implements the speech.Provider interface on top of the
// Azure Speech SDK.
type AzureProvider struct {
	account *config.ProviderAccount
	service *config.ServiceConfig
	log     *logrus.Entry
}

// NewProvider creates a new, fully configured Azure provider.
func NewProvider(account *config.ProviderAccount, serviceConfig *config.ServiceConfig, log *logrus.Entry) (*AzureProvider, error) {
	if account.Credentials.APIKey == "" || account.Credentials.Region == "" {
		return nil, fmt.Errorf("azure provider requires api_key (subscription key) and region")
	}

	return &AzureProvider{
		account: account,
		service: serviceConfig,
		log:     log,
	}, nil
}

// Name implements the speech.Provider interface.
func (p *AzureProvider) Name() string {
	return "azure"
}

// NewTranscriptionStream delegates the transcription task to the specialized
// transcribe client. The client's constructor extracts the credentials it
// needs from the account config.
func (p *AzureProvider) NewTranscriptionStream(ctx context.Context, opts *speech.StreamOptions) (speech.TranscriptionStream, error) {
	transcribeClient, err := newTranscribeClient(p.account.Credentials, p.log)
	if err != nil {
		return nil, err
	}

	return transcribeClient.TranscribeStream(ctx, opts)
}

// GetSupportedLanguages is not published by the SDK; sessions pass BCP-47
// tags straight through to the service.
func (p *AzureProvider) GetSupportedLanguages(service speech.ServiceType) []*speech.LanguageInfo {
	return nil
}
