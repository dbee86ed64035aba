package whisper_cpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"whisper-stt/internal/app/api/provider"
	"whisper-stt/internal/app/audio"
	apperrors "whisper-stt/internal/app/errors"
)

const providerName = "whisper_cpp"

// LocalProviderConfig represents configuration specific to the local whisper.cpp engine
type LocalProviderConfig struct {
	BinaryPath string
	FFmpegPath string
	TempDir    string
	Prompt     string
	Threads    int // 0 keeps the whisper.cpp default
}

// LocalEngine runs transcriptions through the whisper.cpp command line tool.
type LocalEngine struct {
	config  LocalProviderConfig
	weights provider.WeightsStore
	logger  *zap.Logger
	binary  string
}

// NewLocalEngine creates a new LocalEngine.
func NewLocalEngine(config LocalProviderConfig, weights provider.WeightsStore, logger *zap.Logger) *LocalEngine {
	if config.TempDir == "" {
		config.TempDir = filepath.Join(os.TempDir(), "stt")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LocalEngine{
		config:  config,
		weights: weights,
		logger:  logger,
	}
}

// GetProviderInfo returns metadata about the whisper.cpp engine
func (e *LocalEngine) GetProviderInfo() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:           providerName,
		DisplayName:    "Whisper.cpp (Local)",
		Type:           provider.ProviderTypeLocal,
		RequiresBinary: true,
		DefaultModel:   "ggml-small.bin",
	}
}

// Available resolves the whisper.cpp binary on PATH.
func (e *LocalEngine) Available() error {
	path, err := exec.LookPath(e.config.BinaryPath)
	if err != nil {
		return fmt.Errorf("whisper.cpp binary %q not found: %w (install whisper.cpp or set STT_WHISPER_BINARY)", e.config.BinaryPath, err)
	}
	e.binary = path
	return nil
}

// LoadModel resolves the ggml weights for size, downloading them on first use.
func (e *LocalEngine) LoadModel(ctx context.Context, size string) (provider.Model, error) {
	if e.binary == "" {
		if err := e.Available(); err != nil {
			return nil, err
		}
	}

	modelPath, err := e.weights.Resolve(ctx, size)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("model loaded", zap.String("size", size), zap.String("path", modelPath))
	return &LocalModel{
		engine:    e,
		modelPath: modelPath,
	}, nil
}

// LocalModel is a whisper.cpp model file bound to its engine.
type LocalModel struct {
	engine    *LocalEngine
	modelPath string
}

// Close is a no-op: whisper.cpp loads the weights per invocation.
func (m *LocalModel) Close() error {
	return nil
}

// Transcribe converts the input to 16 kHz WAV when needed, runs whisper.cpp
// with JSON output and maps the document to a Result.
func (m *LocalModel) Transcribe(ctx context.Context, inputFilePath string) (provider.Result, error) {
	e := m.engine
	startTime := time.Now()

	if inputFilePath == "" {
		return nil, &provider.TranscriptionError{
			Code:     "invalid_input",
			Message:  "input file path is required",
			Provider: providerName,
		}
	}

	prepared, err := audio.Prepare(ctx, e.config.FFmpegPath, inputFilePath, e.config.TempDir)
	if err != nil {
		code := "audio_conversion_error"
		if apperrors.Is(err, apperrors.ErrFileNotFound) {
			code = "file_not_found"
		}
		return nil, &provider.TranscriptionError{
			Code:     code,
			Message:  fmt.Sprintf("cannot prepare %s: %v", inputFilePath, err),
			Provider: providerName,
			Cause:    err,
		}
	}
	defer prepared.Cleanup()

	if prepared.Converted {
		e.logger.Debug("converted input to 16kHz wav", zap.String("path", prepared.Path))
	}

	if err := os.MkdirAll(e.config.TempDir, 0755); err != nil {
		return nil, &provider.TranscriptionError{
			Code:      "temp_dir_error",
			Message:   fmt.Sprintf("failed to create temp directory: %v", err),
			Provider:  providerName,
			Retryable: true,
			Cause:     err,
		}
	}

	outputBase := filepath.Join(e.config.TempDir, "stt-"+uuid.NewString())
	outputFile := outputBase + ".json"
	defer os.Remove(outputFile)

	args := m.buildArgs(prepared.Path, outputBase)

	command := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	command.Stderr = &stderr

	e.logger.Debug("running whisper.cpp", zap.String("binary", e.binary), zap.Strings("args", args))

	if err := command.Run(); err != nil {
		retryable := ctx.Err() == nil
		return nil, &provider.TranscriptionError{
			Code:      "transcription_failed",
			Message:   fmt.Sprintf("command execution error: %v, stderr: %s", err, strings.TrimSpace(stderr.String())),
			Provider:  providerName,
			Retryable: retryable,
			Cause:     apperrors.Mark(apperrors.ErrTranscriptionFailed, err),
		}
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		return nil, &provider.TranscriptionError{
			Code:     "output_missing",
			Message:  fmt.Sprintf("failed to read output file: %v", err),
			Provider: providerName,
			Cause:    apperrors.Mark(apperrors.ErrTranscriptionFailed, err),
		}
	}

	result, err := parseOutput(data)
	if err != nil {
		return nil, &provider.TranscriptionError{
			Code:     "output_invalid",
			Message:  fmt.Sprintf("failed to parse whisper.cpp output: %v", err),
			Provider: providerName,
			Cause:    apperrors.Mark(apperrors.ErrTranscriptionFailed, err),
		}
	}

	if prepared.Info != nil && prepared.Info.Duration > 0 {
		result["duration"] = prepared.Info.Duration.Seconds()
	}
	result["model"] = filepath.Base(m.modelPath)
	result["processing_time"] = time.Since(startTime).Seconds()

	e.logger.Debug("transcription finished", zap.Duration("elapsed", time.Since(startTime)))
	return result, nil
}

func (m *LocalModel) buildArgs(wavPath, outputBase string) []string {
	cfg := m.engine.config

	// The language is always detected from the audio.
	args := []string{
		"-m", m.modelPath,
		"-f", wavPath,
		"-l", "auto",
		"-oj",
		"-of", outputBase,
		"-np",
	}
	if cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(cfg.Threads))
	}
	if cfg.Prompt != "" {
		args = append(args, "--prompt", cfg.Prompt)
	}
	return args
}

// cppOutput is the subset of whisper.cpp's -oj document we read.
type cppOutput struct {
	Result *struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription *[]struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseOutput maps the document to a Result. A document without a
// transcription array yields a Result without "text".
func parseOutput(data []byte) (provider.Result, error) {
	var doc cppOutput
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	result := provider.Result{}
	if doc.Result != nil && doc.Result.Language != "" {
		result["language"] = doc.Result.Language
	}

	if doc.Transcription == nil {
		return result, nil
	}

	segments := make([]provider.TranscriptionSegment, 0, len(*doc.Transcription))
	for i, s := range *doc.Transcription {
		segments = append(segments, provider.TranscriptionSegment{
			ID:    i,
			Text:  s.Text,
			Start: float64(s.Offsets.From) / 1000,
			End:   float64(s.Offsets.To) / 1000,
		})
	}

	result["text"] = provider.JoinSegments(segments)
	result["segments"] = segments
	return result, nil
}
