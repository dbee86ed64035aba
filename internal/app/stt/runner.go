// Package stt runs a single transcription and reports it as an Outcome.
package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"whisper-stt/internal/app/api/provider"
	"whisper-stt/internal/app/metrics"
	"whisper-stt/internal/app/weights"
)

// Outcome is the result of one transcription: the trimmed text on success,
// or the error that prevented it.
type Outcome struct {
	Text string
	Err  error
}

// OK reports whether the transcription succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Output is what gets printed: the text on success, "" on failure.
func (o Outcome) Output() string {
	if o.Err != nil {
		return ""
	}
	return o.Text
}

// Runner loads the model and transcribes files with one engine.
type Runner struct {
	engine  provider.Engine
	metrics *metrics.Recorder
	logger  *zap.Logger
	size    string
}

// NewRunner creates a Runner using the default model size.
func NewRunner(engine provider.Engine, recorder *metrics.Recorder, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		engine:  engine,
		metrics: recorder,
		logger:  logger,
		size:    weights.DefaultSize,
	}
}

// Metrics returns the recorder the runner reports to; it may be nil.
func (r *Runner) Metrics() *metrics.Recorder {
	return r.metrics
}

// Transcribe loads the model and transcribes path. Every failure, including a
// panic inside the engine, ends up in Outcome.Err.
func (r *Runner) Transcribe(ctx context.Context, path string) (outcome Outcome) {
	engineName := r.engine.GetProviderInfo().Name
	start := time.Now()
	logger := r.logger.With(zap.String("engine", engineName), zap.String("path", path))

	defer func() {
		if p := recover(); p != nil {
			outcome = r.fail(logger, engineName, "panic", start, fmt.Errorf("engine panicked: %v", p))
		}
	}()

	model, err := r.engine.LoadModel(ctx, r.size)
	if err != nil {
		return r.fail(logger, engineName, "model_load_failed", start, err)
	}
	defer func() {
		if err := model.Close(); err != nil {
			logger.Debug("failed to close model", zap.Error(err))
		}
	}()

	result, err := model.Transcribe(ctx, path)
	if err != nil {
		return r.fail(logger, engineName, errorCode(err), start, err)
	}

	text := strings.TrimSpace(result.Text())
	elapsed := time.Since(start)

	audioSec, _ := result["duration"].(float64)
	r.metrics.RecordSuccess(engineName, elapsed, audioSec)

	logger.Debug("transcription succeeded",
		zap.Int("chars", len(text)),
		zap.String("language", result.Language()),
		zap.Duration("elapsed", elapsed))
	return Outcome{Text: text}
}

func (r *Runner) fail(logger *zap.Logger, engineName, code string, start time.Time, err error) Outcome {
	r.metrics.RecordFailure(engineName, code, time.Since(start))
	logger.Debug("transcription failed", zap.String("code", code), zap.Error(err))
	return Outcome{Err: err}
}

func errorCode(err error) string {
	var terr *provider.TranscriptionError
	if errors.As(err, &terr) && terr.Code != "" {
		return terr.Code
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return "unknown_error"
}
