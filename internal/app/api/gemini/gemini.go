// Package gemini transcribes audio with Gemini's multimodal models by
// sending the file inline together with a transcription instruction.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"whisper-stt/internal/app/api/provider"
	apperrors "whisper-stt/internal/app/errors"
	"whisper-stt/internal/app/weights"
)

const (
	providerName = "gemini"

	// maxInlineBytes is the request size limit for inline audio data.
	maxInlineBytes = 20 << 20
)

var audioMIMETypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mp3",
	".aiff": "audio/aiff",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
}

// ProviderConfig configures the Gemini engine.
type ProviderConfig struct {
	APIKey string
	Model  string
	Prompt string

	// BaseURL overrides the API endpoint
	BaseURL    string
	HTTPClient *http.Client
}

// Engine transcribes through the Gemini API.
type Engine struct {
	config ProviderConfig
	logger *zap.Logger
}

func NewEngine(cfg ProviderConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{config: cfg, logger: logger}
}

func (e *Engine) GetProviderInfo() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:           providerName,
		DisplayName:    "Google Gemini",
		Type:           provider.ProviderTypeRemote,
		RequiresAPIKey: true,
		DefaultModel:   e.config.Model,
	}
}

func (e *Engine) Available() error {
	if e.config.APIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY)")
	}
	if e.config.Model == "" {
		return fmt.Errorf("Gemini model is not configured")
	}
	return nil
}

// LoadModel creates the API client. Gemini has no notion of whisper sizes;
// a known size selects the configured model.
func (e *Engine) LoadModel(ctx context.Context, size string) (provider.Model, error) {
	if _, err := weights.FileName(size); err != nil {
		return nil, err
	}

	cc := &genai.ClientConfig{
		APIKey:     e.config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: e.config.HTTPClient,
	}
	if e.config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: e.config.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, apperrors.Mark(apperrors.ErrModelUnavailable, err)
	}

	e.logger.Debug("gemini client ready", zap.String("model", e.config.Model))
	return &Model{engine: e, client: client}, nil
}

// Model is a Gemini client bound to a model name.
type Model struct {
	engine *Engine
	client *genai.Client
}

func (m *Model) Close() error {
	return nil
}

// Transcribe sends the audio inline. A response without candidates yields
// a Result without "text".
func (m *Model) Transcribe(ctx context.Context, inputFilePath string) (provider.Result, error) {
	e := m.engine
	startTime := time.Now()

	data, err := os.ReadFile(inputFilePath)
	if err != nil {
		code := "file_unreadable"
		if os.IsNotExist(err) {
			code = "file_not_found"
			err = apperrors.Mark(apperrors.ErrFileNotFound, err)
		}
		return nil, &provider.TranscriptionError{
			Code:     code,
			Message:  fmt.Sprintf("cannot read %s: %v", inputFilePath, err),
			Provider: providerName,
			Cause:    err,
		}
	}
	if len(data) > maxInlineBytes {
		return nil, &provider.TranscriptionError{
			Code:        "file_too_large",
			Message:     fmt.Sprintf("%s is %d bytes, inline audio is limited to %d", inputFilePath, len(data), maxInlineBytes),
			Provider:    providerName,
			Suggestions: []string{"Use the whisper_cpp engine for long recordings"},
			Cause:       apperrors.ErrUnsupportedAudio,
		}
	}

	parts := []*genai.Part{
		genai.NewPartFromText(e.instruction()),
		genai.NewPartFromBytes(data, mimeType(inputFilePath, data)),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := m.client.Models.GenerateContent(ctx, e.config.Model, contents, nil)
	if err != nil {
		return nil, handleAPIError(err)
	}

	result := provider.Result{
		"model":           e.config.Model,
		"processing_time": time.Since(startTime).Seconds(),
	}
	if len(resp.Candidates) > 0 {
		result["text"] = resp.Text()
	}

	e.logger.Debug("transcription finished",
		zap.Int("candidates", len(resp.Candidates)),
		zap.Duration("elapsed", time.Since(startTime)))
	return result, nil
}

func (e *Engine) instruction() string {
	var b strings.Builder
	b.WriteString("Transcribe the speech in this audio verbatim. Reply with the transcript only, without timestamps, speaker labels or commentary.")
	if e.config.Prompt != "" {
		fmt.Fprintf(&b, " Context: %s", e.config.Prompt)
	}
	return b.String()
}

func mimeType(path string, data []byte) string {
	if t, ok := audioMIMETypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return http.DetectContentType(data)
}

func handleAPIError(err error) error {
	cause := apperrors.Mark(apperrors.ErrTranscriptionFailed, err)

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		te := &provider.TranscriptionError{
			Code:      "api_error",
			Message:   fmt.Sprintf("Gemini API error (%d): %s", apiErr.Code, apiErr.Message),
			Provider:  providerName,
			Retryable: apiErr.Code >= 500,
			Cause:     cause,
		}
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			te.Code = "authentication_failed"
			te.Suggestions = []string{"Check your GEMINI_API_KEY environment variable"}
		case http.StatusTooManyRequests:
			te.Code = "rate_limit_exceeded"
			te.Retryable = true
		case http.StatusBadRequest:
			te.Code = "invalid_request"
		}
		return te
	}

	return &provider.TranscriptionError{
		Code:      "unknown_error",
		Message:   fmt.Sprintf("Transcription failed: %v", err),
		Provider:  providerName,
		Retryable: true,
		Cause:     cause,
	}
}
