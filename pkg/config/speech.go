package config

import "fmt"

// SpeechConfig is the main config block for the speech features.
type SpeechConfig struct {
	// The key is the provider type ("whisper", "azure", "openai", "google"),
	// the value is a list of accounts.
	Providers map[string][]ProviderAccount `yaml:"providers"`
	Services  map[string]ServiceConfig     `yaml:"services"`
}

// ProviderAccount defines a single, uniquely identified set of credentials for a provider.
type ProviderAccount struct {
	ID          string                 `yaml:"id"`
	Credentials CredentialsConfig      `yaml:"credentials"`
	Options     map[string]interface{} `yaml:"options"` // Generic options for the provider
}

// ServiceConfig references a provider type and a specific account ID.
type ServiceConfig struct {
	Provider string                 `yaml:"provider"`
	ID       string                 `yaml:"id"`
	Options  map[string]interface{} `yaml:"options"` // Generic options, e.g. model size
}

// CredentialsConfig only contains the most common credential fields.
// Providers needing extra data can use the account Options field.
type CredentialsConfig struct {
	APIKey string `yaml:"api_key"`
	Region string `yaml:"region"`
}

// GetProviderAccountForService looks up the service by name and resolves the
// provider account it is bound to. Local providers (whisper) may run without
// any account configured; those get an empty account back.
func (s *SpeechConfig) GetProviderAccountForService(serviceName string) (*ProviderAccount, *ServiceConfig, error) {
	svc, ok := s.Services[serviceName]
	if !ok {
		return nil, nil, fmt.Errorf("service '%s' is not configured", serviceName)
	}

	accounts, ok := s.Providers[svc.Provider]
	if !ok || len(accounts) == 0 {
		if svc.Provider == "whisper" {
			return &ProviderAccount{ID: svc.ID}, &svc, nil
		}
		return nil, nil, fmt.Errorf("no accounts configured for provider '%s'", svc.Provider)
	}

	if svc.ID == "" {
		return &accounts[0], &svc, nil
	}
	for i := range accounts {
		if accounts[i].ID == svc.ID {
			return &accounts[i], &svc, nil
		}
	}

	return nil, nil, fmt.Errorf("account '%s' not found for provider '%s'", svc.ID, svc.Provider)
}
