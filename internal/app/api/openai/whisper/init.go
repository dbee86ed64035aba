package whisper

import (
	"whisper-stt/internal/app/api/provider"
	"whisper-stt/internal/config"
)

func init() {
	provider.RegisterProvider(config.EngineOpenAI, createOpenAIProvider)
}

// createOpenAIProvider creates an OpenAI Whisper engine from configuration.
// A missing API key is reported by Available, not here.
func createOpenAIProvider(cfg *config.Config, deps provider.Deps) (provider.Engine, error) {
	return NewRemoteEngine(OpenAIProviderConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Prompt:  cfg.Prompt,
	}, deps.Logger), nil
}
