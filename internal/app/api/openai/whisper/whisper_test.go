package whisper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisper-stt/internal/app/api/provider"
	apperrors "whisper-stt/internal/app/errors"
	"whisper-stt/internal/config"
)

const verboseResponse = `{
  "task": "transcribe",
  "language": "english",
  "duration": 1.5,
  "text": "  hi there  ",
  "segments": [
    {"id": 0, "seek": 0, "start": 0.0, "end": 0.8, "text": "  hi"},
    {"id": 1, "seek": 0, "start": 0.8, "end": 1.5, "text": " there  "}
  ]
}`

func newTestEngine(t *testing.T, handler http.HandlerFunc, cfg OpenAIProviderConfig) *RemoteEngine {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	if cfg.APIKey == "" {
		cfg.APIKey = "test-api-key"
	}
	cfg.BaseURL = server.URL + "/v1"
	return NewRemoteEngine(cfg, nil)
}

func createTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake audio content"), 0644))
	return path
}

func transcribe(t *testing.T, engine *RemoteEngine, path string) (provider.Result, error) {
	t.Helper()
	model, err := engine.LoadModel(context.Background(), "small")
	require.NoError(t, err)
	defer model.Close()
	return model.Transcribe(context.Background(), path)
}

func TestRemoteModel_Transcribe(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Empty(t, r.FormValue("language"))
		assert.Equal(t, "names", r.FormValue("prompt"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.mp3", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(verboseResponse))
	}, OpenAIProviderConfig{Prompt: "names"})

	result, err := transcribe(t, engine, createTempAudio(t))
	require.NoError(t, err)

	assert.Equal(t, "  hi there  ", result.Text())
	assert.Equal(t, "english", result.Language())
	assert.Equal(t, 1.5, result["duration"])
	assert.Equal(t, "whisper-1", result["model"])

	segments, ok := result["segments"].([]provider.TranscriptionSegment)
	require.True(t, ok)
	require.Len(t, segments, 2)
	assert.Equal(t, 0.8, segments[1].Start)
}

func TestRemoteModel_APIErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      string
		retryable bool
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error": {"message": "Invalid API key", "type": "invalid_request_error"}}`,
			code:   "authentication_failed",
		},
		{
			name:      "rate limit",
			status:    http.StatusTooManyRequests,
			body:      `{"error": {"message": "Rate limit exceeded", "type": "rate_limit_error"}}`,
			code:      "rate_limit_exceeded",
			retryable: true,
		},
		{
			name:   "too large",
			status: http.StatusRequestEntityTooLarge,
			body:   `{"error": {"message": "Maximum content size limit exceeded", "type": "invalid_request_error"}}`,
			code:   "file_too_large",
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{"error": {"message": "Invalid file format", "type": "invalid_request_error"}}`,
			code:   "invalid_file",
		},
		{
			name:      "server error",
			status:    http.StatusInternalServerError,
			body:      `{"error": {"message": "Internal server error", "type": "server_error"}}`,
			code:      "api_error",
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, OpenAIProviderConfig{})

			_, err := transcribe(t, engine, createTempAudio(t))
			require.Error(t, err)

			var terr *provider.TranscriptionError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, tt.code, terr.Code)
			assert.Equal(t, tt.retryable, terr.Retryable)
			assert.True(t, apperrors.Is(err, apperrors.ErrTranscriptionFailed))
		})
	}
}

func TestRemoteModel_FileNotFound(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a missing file")
	}, OpenAIProviderConfig{})

	_, err := transcribe(t, engine, filepath.Join(t.TempDir(), "missing.mp3"))
	require.Error(t, err)

	var terr *provider.TranscriptionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "file_not_found", terr.Code)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileNotFound))
}

func TestRemoteModel_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(verboseResponse))
	}))
	defer server.Close()

	engine := NewRemoteEngine(OpenAIProviderConfig{
		APIKey:     "test-api-key",
		BaseURL:    server.URL + "/v1",
		HTTPClient: &http.Client{Timeout: 50 * time.Millisecond},
	}, nil)

	_, err := transcribe(t, engine, createTempAudio(t))
	require.Error(t, err)

	var terr *provider.TranscriptionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "unknown_error", terr.Code)
}

func TestRemoteEngine_Available(t *testing.T) {
	assert.Error(t, NewRemoteEngine(OpenAIProviderConfig{}, nil).Available())
	assert.NoError(t, NewRemoteEngine(OpenAIProviderConfig{APIKey: "sk-test"}, nil).Available())
}

func TestRemoteEngine_LoadModel(t *testing.T) {
	engine := NewRemoteEngine(OpenAIProviderConfig{APIKey: "sk-test"}, nil)

	_, err := engine.LoadModel(context.Background(), "gigantic")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnsupportedModelSize))

	model, err := engine.LoadModel(context.Background(), "small")
	require.NoError(t, err)
	assert.NoError(t, model.Close())
}

func TestCreateOpenAIProvider(t *testing.T) {
	cfg := config.Defaults()
	cfg.Engine = config.EngineOpenAI
	cfg.OpenAI.APIKey = "sk-test"
	cfg.Prompt = "glossary"

	engine, err := createOpenAIProvider(cfg, provider.Deps{})
	require.NoError(t, err)

	remote, ok := engine.(*RemoteEngine)
	require.True(t, ok)
	assert.Equal(t, "glossary", remote.config.Prompt)
	assert.Equal(t, config.DefaultOpenAIModel, remote.config.Model)
	assert.Equal(t, providerName, engine.GetProviderInfo().Name)
}
