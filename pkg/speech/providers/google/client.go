package google

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"google.golang.org/genai"
)

// GoogleProvider implements the speech.SummaryProvider interface for
// Google's AI services. It only handles transcript summarization; live
// transcription always goes through one of the speech backends.
type GoogleProvider struct {
	client *genai.Client
	logger *logrus.Entry
}

// NewProvider creates a new Google AI provider.
func NewProvider(ctx context.Context, account *config.ProviderAccount, serviceConfig *config.ServiceConfig, log *logrus.Entry) (*GoogleProvider, error) {
	if account.Credentials.APIKey == "" {
		return nil, fmt.Errorf("google provider requires api_key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: account.Credentials.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GoogleProvider{
		client: client,
		logger: log,
	}, nil
}
