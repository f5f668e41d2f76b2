package sttservice

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/speech"
	"github.com/voxlive/voxlive-server/pkg/speech/providers/azure"
	"github.com/voxlive/voxlive-server/pkg/speech/providers/google"
	"github.com/voxlive/voxlive-server/pkg/speech/providers/openai"
	"github.com/voxlive/voxlive-server/pkg/speech/providers/whisper"
)

// NewProvider is a factory function that creates and returns the configured
// speech-to-text provider.
func NewProvider(app *config.AppConfig, providerType string, account *config.ProviderAccount, serviceConfig *config.ServiceConfig, logger *logrus.Entry) (speech.Provider, error) {
	log := logger.WithFields(logrus.Fields{
		"provider": providerType,
	})
	switch providerType {
	case "whisper":
		modelPath, err := ResolveWhisperModelPath(app, serviceConfig)
		if err != nil {
			return nil, err
		}
		return whisper.NewProvider(modelPath, log)
	case "azure":
		return azure.NewProvider(account, serviceConfig, log)
	case "openai":
		return openai.NewProvider(account, serviceConfig, log)
	default:
		return nil, fmt.Errorf("unknown speech provider type: %s", providerType)
	}
}

// NewSummaryProvider creates the provider behind an asynchronous summary
// service. Only Gemini batch jobs are supported right now.
func NewSummaryProvider(ctx context.Context, providerType string, account *config.ProviderAccount, serviceConfig *config.ServiceConfig, logger *logrus.Entry) (speech.SummaryProvider, error) {
	log := logger.WithFields(logrus.Fields{
		"provider": providerType,
	})
	switch providerType {
	case "google":
		return google.NewProvider(ctx, account, serviceConfig, log)
	default:
		return nil, fmt.Errorf("unknown summary provider type: %s", providerType)
	}
}

// ResolveWhisperModelPath finds the ggml model file a whisper service is
// bound to. A relative "model" option is resolved inside the model asset
// store, "model_path" is taken as-is.
func ResolveWhisperModelPath(app *config.AppConfig, serviceConfig *config.ServiceConfig) (string, error) {
	if p, ok := serviceConfig.Options["model_path"].(string); ok && p != "" {
		return p, nil
	}
	if m, ok := serviceConfig.Options["model"].(string); ok && m != "" {
		return filepath.Join(app.ModelAssets.ModelsDir, m), nil
	}

	return "", fmt.Errorf("whisper service requires a model or model_path option")
}
