//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"whisper-stt/internal/app/stt"
	"whisper-stt/internal/config"
)

// InitializeRunner builds a Runner for the configured engine. Any error
// means the engine cannot be obtained.
func InitializeRunner(cfg *config.Config, logger *zap.Logger, opts Options) (*stt.Runner, error) {
	wire.Build(provideMetrics, provideWeightsStore, provideEngine, stt.NewRunner)
	return &stt.Runner{}, nil
}
