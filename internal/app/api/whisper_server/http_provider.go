package whisper_server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"whisper-stt/internal/app/api/provider"
	apperrors "whisper-stt/internal/app/errors"
	"whisper-stt/internal/app/weights"
)

const providerName = "whisper_server"

// ServerConfig represents configuration for a whisper.cpp server
type ServerConfig struct {
	BaseURL       string        // e.g. "http://192.168.1.100:8080"
	InferencePath string        // default "/inference"
	LoadPath      string        // default "/load"
	ModelDir      string        // weights directory on the server host; "" keeps the loaded model
	Timeout       time.Duration // per request
	Prompt        string
}

// ServerEngine transcribes by uploading files to a whisper.cpp server.
type ServerEngine struct {
	config ServerConfig
	client *http.Client
	logger *zap.Logger
}

// NewServerEngine creates a new ServerEngine.
func NewServerEngine(config ServerConfig, logger *zap.Logger) *ServerEngine {
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if config.InferencePath == "" {
		config.InferencePath = "/inference"
	}
	if config.LoadPath == "" {
		config.LoadPath = "/load"
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ServerEngine{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// GetProviderInfo returns metadata about the whisper.cpp server engine
func (e *ServerEngine) GetProviderInfo() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:         providerName,
		DisplayName:  "Whisper Server (HTTP API)",
		Type:         provider.ProviderTypeRemote,
		DefaultModel: "ggml-small.bin",
	}
}

// Available checks the configuration only. An unreachable server is an
// operational failure reported by Transcribe.
func (e *ServerEngine) Available() error {
	if e.config.BaseURL == "" {
		return fmt.Errorf("whisper server URL is required (set STT_WHISPER_SERVER_URL)")
	}
	if !strings.HasPrefix(e.config.BaseURL, "http://") && !strings.HasPrefix(e.config.BaseURL, "https://") {
		return fmt.Errorf("whisper server URL must start with http:// or https://")
	}
	return nil
}

// LoadModel asks the server to switch to ggml-<size>.bin when ModelDir is
// configured, otherwise it uses whatever model the server has loaded.
func (e *ServerEngine) LoadModel(ctx context.Context, size string) (provider.Model, error) {
	fileName, err := weights.FileName(size)
	if err != nil {
		return nil, err
	}

	if e.config.ModelDir != "" {
		modelPath := path.Join(e.config.ModelDir, fileName)
		if err := e.load(ctx, modelPath); err != nil {
			return nil, apperrors.Mark(apperrors.ErrModelUnavailable, err)
		}
		e.logger.Debug("server model loaded", zap.String("model", modelPath))
	}

	return &ServerModel{engine: e, name: fileName}, nil
}

func (e *ServerEngine) load(ctx context.Context, modelPath string) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("model", modelPath); err != nil {
		return fmt.Errorf("failed to write model field: %v", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %v", err)
	}

	resp, err := e.post(ctx, e.config.LoadPath, body, writer.FormDataContentType())
	if err != nil {
		return fmt.Errorf("load model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("load model failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

func (e *ServerEngine) post(ctx context.Context, endpoint string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.BaseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return e.client.Do(req)
}

// ServerModel is the model the server will use for inference.
type ServerModel struct {
	engine *ServerEngine
	name   string
}

// Close is a no-op; the server owns the model.
func (m *ServerModel) Close() error {
	return nil
}

// Transcribe uploads the file and returns the server's JSON document as the
// Result.
func (m *ServerModel) Transcribe(ctx context.Context, inputFilePath string) (provider.Result, error) {
	e := m.engine
	startTime := time.Now()

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

	body, contentType, err := m.createMultipartForm(inputFilePath)
	if err != nil {
		return nil, &provider.TranscriptionError{
			Code:     "form_creation_failed",
			Message:  fmt.Sprintf("failed to create multipart form: %v", err),
			Provider: providerName,
			Cause:    apperrors.Mark(apperrors.ErrTranscriptionFailed, err),
		}
	}

	resp, err := e.post(ctx, e.config.InferencePath, body, contentType)
	if err != nil {
		return nil, &provider.TranscriptionError{
			Code:      "request_failed",
			Message:   fmt.Sprintf("HTTP request failed: %v", err),
			Provider:  providerName,
			Retryable: true,
			Cause:     apperrors.Mark(apperrors.ErrTranscriptionFailed, err),
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.TranscriptionError{
			Code:      "response_read_failed",
			Message:   fmt.Sprintf("failed to read response: %v", err),
			Provider:  providerName,
			Retryable: true,
			Cause:     apperrors.Mark(apperrors.ErrTranscriptionFailed, err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		return nil, &provider.TranscriptionError{
			Code:      "api_error",
			Message:   err.Error(),
			Provider:  providerName,
			Retryable: resp.StatusCode >= 500,
			Cause:     apperrors.Mark(apperrors.ErrTranscriptionFailed, err),
		}
	}

	result := provider.Result{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &provider.TranscriptionError{
			Code:     "response_parse_failed",
			Message:  fmt.Sprintf("failed to parse response: %v", err),
			Provider: providerName,
			Cause:    apperrors.Mark(apperrors.ErrTranscriptionFailed, err),
		}
	}

	// The server reports some failures as {"error": "..."} with status 200
	if msg, ok := result["error"].(string); ok && msg != "" {
		return nil, &provider.TranscriptionError{
			Code:     "server_error",
			Message:  msg,
			Provider: providerName,
			Cause:    apperrors.Mark(apperrors.ErrTranscriptionFailed, fmt.Errorf("%s", msg)),
		}
	}

	result["model"] = m.name
	result["processing_time"] = time.Since(startTime).Seconds()

	e.logger.Debug("transcription finished",
		zap.Int("status", resp.StatusCode),
		zap.Int("response_size", len(data)),
		zap.Duration("elapsed", time.Since(startTime)))
	return result, nil
}

// createMultipartForm creates the multipart form for the inference request
func (m *ServerModel) createMultipartForm(inputFilePath string) (*bytes.Buffer, string, error) {
	cfg := m.engine.config
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	file, err := os.Open(inputFilePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %v", err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(inputFilePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %v", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to copy file content: %v", err)
	}

	// whisper-server falls back to English unless asked to detect.
	params := map[string]string{
		"response_format": "verbose_json",
		"temperature":     "0.0",
		"language":        "auto",
	}
	if cfg.Prompt != "" {
		params["prompt"] = cfg.Prompt
	}

	for key, value := range params {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %v", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType(), nil
}
