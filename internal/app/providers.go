package app

import (
	"io"

	"go.uber.org/zap"

	"whisper-stt/internal/app/api/provider"
	"whisper-stt/internal/app/metrics"
	"whisper-stt/internal/app/weights"
	"whisper-stt/internal/config"

	// Engines register themselves with the provider registry
	_ "whisper-stt/internal/app/api/gemini"
	_ "whisper-stt/internal/app/api/openai/whisper"
	_ "whisper-stt/internal/app/api/whisper_cpp"
	_ "whisper-stt/internal/app/api/whisper_server"
)

// Options carries the per-invocation settings that are not configuration.
type Options struct {
	// Progress receives model download progress; nil disables it
	Progress io.Writer
}

func provideMetrics() *metrics.Recorder {
	return metrics.NewRecorder()
}

func provideWeightsStore(cfg *config.Config, logger *zap.Logger, recorder *metrics.Recorder, opts Options) (provider.WeightsStore, error) {
	fetcher, err := weights.NewFetcher(cfg)
	if err != nil {
		return nil, err
	}
	store, err := weights.New(weights.Config{
		Dir:      cfg.Models.Dir,
		Fetcher:  fetcher,
		Logger:   logger.Named("weights"),
		Metrics:  recorder,
		Progress: opts.Progress,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func provideEngine(cfg *config.Config, logger *zap.Logger, store provider.WeightsStore) (provider.Engine, error) {
	return provider.NewEngine(cfg, provider.Deps{
		Logger:  logger.Named(cfg.Engine),
		Weights: store,
	})
}
