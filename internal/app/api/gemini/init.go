package gemini

import (
	"whisper-stt/internal/app/api/provider"
	"whisper-stt/internal/config"
)

func init() {
	provider.RegisterProvider(config.EngineGemini, createGeminiProvider)
}

func createGeminiProvider(cfg *config.Config, deps provider.Deps) (provider.Engine, error) {
	return NewEngine(ProviderConfig{
		APIKey: cfg.Gemini.APIKey,
		Model:  cfg.Gemini.Model,
		Prompt: cfg.Prompt,
	}, deps.Logger), nil
}
