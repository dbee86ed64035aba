package whisper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	openaiclient "whisper-stt/internal/app/api/openai"
	"whisper-stt/internal/app/api/provider"
	apperrors "whisper-stt/internal/app/errors"
	"whisper-stt/internal/app/weights"
	"whisper-stt/internal/config"
)

const providerName = "openai"

// OpenAIProviderConfig represents configuration specific to the OpenAI Whisper API
type OpenAIProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Prompt  string

	// HTTPClient overrides the client used for API calls
	HTTPClient *http.Client
}

// RemoteEngine implements remote transcription using the OpenAI API.
type RemoteEngine struct {
	config OpenAIProviderConfig
	client *openai.Client
	logger *zap.Logger
}

// NewRemoteEngine creates a new RemoteEngine.
func NewRemoteEngine(cfg OpenAIProviderConfig, logger *zap.Logger) *RemoteEngine {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openaiclient.NewClient(config.OpenAIConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
	}, cfg.HTTPClient)

	return &RemoteEngine{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// GetProviderInfo returns metadata about the OpenAI provider
func (e *RemoteEngine) GetProviderInfo() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:           providerName,
		DisplayName:    "OpenAI Whisper API",
		Type:           provider.ProviderTypeRemote,
		RequiresAPIKey: true,
		DefaultModel:   openai.Whisper1,
	}
}

// Available requires an API key; the API itself is not contacted.
func (e *RemoteEngine) Available() error {
	if e.config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
	}
	return nil
}

// LoadModel maps size to the hosted model. The API serves a single model,
// so every known size resolves to the configured one.
func (e *RemoteEngine) LoadModel(ctx context.Context, size string) (provider.Model, error) {
	if _, err := weights.FileName(size); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.Debug("using hosted model", zap.String("size", size), zap.String("model", e.config.Model))
	return &RemoteModel{engine: e, size: size}, nil
}

// RemoteModel is the hosted model selected for a size.
type RemoteModel struct {
	engine *RemoteEngine
	size   string
}

// Close is a no-op.
func (m *RemoteModel) Close() error {
	return nil
}

// Transcribe uploads the file and maps the verbose JSON response to a Result.
func (m *RemoteModel) Transcribe(ctx context.Context, inputFilePath string) (provider.Result, error) {
	e := m.engine
	startTime := time.Now()

	if inputFilePath == "" {
		return nil, &provider.TranscriptionError{
			Code:     "invalid_input",
			Message:  "input file path is required",
			Provider: providerName,
		}
	}

	if _, err := os.Stat(inputFilePath); err != nil {
		code := "file_unreadable"
		if os.IsNotExist(err) {
			code = "file_not_found"
			err = apperrors.Mark(apperrors.ErrFileNotFound, err)
		}
		return nil, &provider.TranscriptionError{
			Code:     code,
			Message:  fmt.Sprintf("input file not found: %s", inputFilePath),
			Provider: providerName,
			Cause:    err,
		}
	}

	req := openai.AudioRequest{
		Model:    e.config.Model,
		FilePath: inputFilePath,
		Prompt:   e.config.Prompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	resp, err := e.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, handleAPIError(err)
	}

	segments := make([]provider.TranscriptionSegment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, provider.TranscriptionSegment{
			ID:    s.ID,
			Text:  s.Text,
			Start: s.Start,
			End:   s.End,
		})
	}

	result := provider.Result{
		"text":            resp.Text,
		"segments":        segments,
		"model":           e.config.Model,
		"processing_time": time.Since(startTime).Seconds(),
	}
	if resp.Language != "" {
		result["language"] = resp.Language
	}
	if resp.Duration > 0 {
		result["duration"] = resp.Duration
	}

	e.logger.Debug("transcription finished",
		zap.String("model", e.config.Model),
		zap.Duration("elapsed", time.Since(startTime)))
	return result, nil
}

// handleAPIError converts OpenAI API errors to TranscriptionError
func handleAPIError(err error) error {
	cause := apperrors.Mark(apperrors.ErrTranscriptionFailed, err)

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return &provider.TranscriptionError{
				Code:        "authentication_failed",
				Message:     "OpenAI API key is invalid or missing",
				Provider:    providerName,
				Suggestions: []string{"Check your OPENAI_API_KEY environment variable"},
				Cause:       cause,
			}
		case http.StatusTooManyRequests:
			return &provider.TranscriptionError{
				Code:        "rate_limit_exceeded",
				Message:     "OpenAI API rate limit exceeded",
				Provider:    providerName,
				Retryable:   true,
				Suggestions: []string{"Wait a moment and try again"},
				Cause:       cause,
			}
		case http.StatusRequestEntityTooLarge:
			return &provider.TranscriptionError{
				Code:        "file_too_large",
				Message:     "Audio file is too large for OpenAI API",
				Provider:    providerName,
				Suggestions: []string{"Reduce file size"},
				Cause:       cause,
			}
		case http.StatusBadRequest:
			return &provider.TranscriptionError{
				Code:        "invalid_file",
				Message:     "Invalid audio file format or corrupted file",
				Provider:    providerName,
				Suggestions: []string{"Check file format", "Try converting to a supported format"},
				Cause:       cause,
			}
		default:
			return &provider.TranscriptionError{
				Code:      "api_error",
				Message:   fmt.Sprintf("OpenAI API error (%d): %v", apiErr.HTTPStatusCode, apiErr.Message),
				Provider:  providerName,
				Retryable: true,
				Cause:     cause,
			}
		}
	}

	return &provider.TranscriptionError{
		Code:      "unknown_error",
		Message:   fmt.Sprintf("Transcription failed: %v", err),
		Provider:  providerName,
		Retryable: true,
		Cause:     cause,
	}
}
