package whisper_cpp

import (
	"fmt"

	"whisper-stt/internal/app/api/provider"
	"whisper-stt/internal/config"
)

func init() {
	// Register whisper_cpp provider with the factory
	provider.RegisterProvider(config.EngineWhisperCpp, createWhisperCppProvider)
}

// createWhisperCppProvider creates a whisper.cpp engine from configuration
func createWhisperCppProvider(cfg *config.Config, deps provider.Deps) (provider.Engine, error) {
	if deps.Weights == nil {
		return nil, fmt.Errorf("whisper_cpp provider requires a weights store")
	}

	return NewLocalEngine(LocalProviderConfig{
		BinaryPath: cfg.WhisperCpp.Binary,
		FFmpegPath: cfg.WhisperCpp.FFmpeg,
		TempDir:    cfg.WhisperCpp.TempDir,
		Prompt:     cfg.Prompt,
		Threads:    cfg.Threads,
	}, deps.Weights, deps.Logger), nil
}
