package whisper_server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisper-stt/internal/app/api/provider"
	apperrors "whisper-stt/internal/app/errors"
	"whisper-stt/internal/config"
)

type mockServer struct {
	inference http.HandlerFunc
	loaded    []string
}

// createMockWhisperServer mimics the whisper.cpp server's /inference and
// /load endpoints.
func createMockWhisperServer(t *testing.T, m *mockServer) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/inference":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.NoError(t, r.ParseMultipartForm(10<<20))
			file, _, err := r.FormFile("file")
			if !assert.NoError(t, err) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			file.Close()
			m.inference(w, r)
		case "/load":
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			model := r.FormValue("model")
			if filepath.Base(model) != "ggml-small.bin" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("model not found"))
				return
			}
			m.loaded = append(m.loaded, model)
			w.Write([]byte("Load was successful!"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func writeAudio(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "audio.wav")
	require.NoError(t, os.WriteFile(p, []byte("RIFF fake"), 0644))
	return p
}

func jsonResponse(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestServerModel_Transcribe(t *testing.T) {
	var gotFormat, gotLanguage string
	m := &mockServer{inference: func(w http.ResponseWriter, r *http.Request) {
		gotFormat = r.FormValue("response_format")
		gotLanguage = r.FormValue("language")
		jsonResponse(`{"task":"transcribe","language":"english","duration":1.2,"text":" hi there\n","segments":[]}`)(w, r)
	}}
	server := createMockWhisperServer(t, m)

	engine := NewServerEngine(ServerConfig{BaseURL: server.URL + "/"}, nil)
	require.NoError(t, engine.Available())

	model, err := engine.LoadModel(context.Background(), "small")
	require.NoError(t, err)
	result, err := model.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)

	assert.Equal(t, " hi there\n", result.Text())
	assert.Equal(t, "english", result.Language())
	assert.Equal(t, 1.2, result["duration"])
	assert.Equal(t, "ggml-small.bin", result["model"])
	assert.Equal(t, "verbose_json", gotFormat)
	assert.Equal(t, "auto", gotLanguage)
	assert.Empty(t, m.loaded)
}

func TestServerModel_TranscribeWithoutText(t *testing.T) {
	server := createMockWhisperServer(t, &mockServer{inference: jsonResponse(`{"language":"en"}`)})

	model, err := NewServerEngine(ServerConfig{BaseURL: server.URL}, nil).LoadModel(context.Background(), "small")
	require.NoError(t, err)

	result, err := model.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)
	_, hasText := result["text"]
	assert.False(t, hasText)
	assert.Equal(t, "", result.Text())
}

func TestServerEngine_LoadModel(t *testing.T) {
	m := &mockServer{inference: jsonResponse(`{"text":"ok"}`)}
	server := createMockWhisperServer(t, m)

	engine := NewServerEngine(ServerConfig{BaseURL: server.URL, ModelDir: "/srv/models"}, nil)
	_, err := engine.LoadModel(context.Background(), "small")
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/models/ggml-small.bin"}, m.loaded)

	_, err = engine.LoadModel(context.Background(), "medium")
	assert.True(t, apperrors.Is(err, apperrors.ErrModelUnavailable))

	_, err = engine.LoadModel(context.Background(), "enormous")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnsupportedModelSize))
}

func TestServerModel_TranscribeErrors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		code      string
		retryable bool
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("crashed"))
			},
			code:      "api_error",
			retryable: true,
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			code: "api_error",
		},
		{
			name:    "error document",
			handler: jsonResponse(`{"error":"failed to read audio data"}`),
			code:    "server_error",
		},
		{
			name:    "not json",
			handler: jsonResponse(`<html>`),
			code:    "response_parse_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := createMockWhisperServer(t, &mockServer{inference: tt.handler})
			model, err := NewServerEngine(ServerConfig{BaseURL: server.URL}, nil).LoadModel(context.Background(), "small")
			require.NoError(t, err)

			_, err = model.Transcribe(context.Background(), writeAudio(t))
			require.Error(t, err)

			var terr *provider.TranscriptionError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, tt.code, terr.Code)
			assert.Equal(t, tt.retryable, terr.Retryable)
			assert.True(t, apperrors.Is(err, apperrors.ErrTranscriptionFailed))
		})
	}
}

func TestServerModel_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	model, err := NewServerEngine(ServerConfig{BaseURL: url}, nil).LoadModel(context.Background(), "small")
	require.NoError(t, err)

	_, err = model.Transcribe(context.Background(), writeAudio(t))
	var terr *provider.TranscriptionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "request_failed", terr.Code)

	_, err = model.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.True(t, apperrors.Is(err, apperrors.ErrFileNotFound))
}

func TestServerEngine_Available(t *testing.T) {
	assert.Error(t, NewServerEngine(ServerConfig{}, nil).Available())
	assert.Error(t, NewServerEngine(ServerConfig{BaseURL: "localhost:8080"}, nil).Available())
	assert.NoError(t, NewServerEngine(ServerConfig{BaseURL: "http://localhost:8080"}, nil).Available())
}

func TestCreateWhisperServerProvider(t *testing.T) {
	cfg := config.Defaults()
	cfg.Engine = config.EngineWhisperServer
	cfg.WhisperServer.URL = "http://gpu-box:8080"

	engine, err := createWhisperServerProvider(cfg, provider.Deps{})
	require.NoError(t, err)
	require.NoError(t, engine.Available())

	server, ok := engine.(*ServerEngine)
	require.True(t, ok)
	assert.Equal(t, "/inference", server.config.InferencePath)
	assert.Equal(t, float64(config.DefaultWhisperServerTimeout), server.client.Timeout.Seconds())
}
