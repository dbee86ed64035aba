package whisper_server

import (
	"time"

	"whisper-stt/internal/app/api/provider"
	"whisper-stt/internal/config"
)

func init() {
	provider.RegisterProvider(config.EngineWhisperServer, createWhisperServerProvider)
}

func createWhisperServerProvider(cfg *config.Config, deps provider.Deps) (provider.Engine, error) {
	return NewServerEngine(ServerConfig{
		BaseURL:  cfg.WhisperServer.URL,
		ModelDir: cfg.WhisperServer.ModelDir,
		Timeout:  time.Duration(cfg.WhisperServer.TimeoutSeconds) * time.Second,
		Prompt:   cfg.Prompt,
	}, deps.Logger), nil
}
