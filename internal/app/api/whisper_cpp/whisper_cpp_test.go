package whisper_cpp

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisper-stt/internal/app/api/provider"
	apperrors "whisper-stt/internal/app/errors"
	"whisper-stt/internal/app/testutil"
)

type stubWeights struct {
	path string
	err  error
	got  []string
}

func (s *stubWeights) Resolve(_ context.Context, size string) (string, error) {
	s.got = append(s.got, size)
	return s.path, s.err
}

type fixture struct {
	dir      string
	model    string
	argsFile string
	engine   *LocalEngine
	weights  *stubWeights
}

func newFixture(t *testing.T, opts testutil.FakeWhisperOptions, cfg LocalProviderConfig) *fixture {
	t.Helper()
	dir := t.TempDir()
	opts.ArgsFile = filepath.Join(dir, "args.txt")

	cfg.BinaryPath = testutil.WriteFakeWhisperCLI(t, dir, opts)
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = filepath.Join(dir, "no-ffmpeg")
	}
	cfg.TempDir = filepath.Join(dir, "tmp")

	weights := &stubWeights{path: testutil.WriteModel(t, filepath.Join(dir, "models"), "ggml-small.bin")}
	engine := NewLocalEngine(cfg, weights, nil)
	require.NoError(t, engine.Available())

	return &fixture{
		dir:      dir,
		model:    weights.path,
		argsFile: opts.ArgsFile,
		engine:   engine,
		weights:  weights,
	}
}

func (f *fixture) transcribe(t *testing.T, input string) (provider.Result, error) {
	t.Helper()
	model, err := f.engine.LoadModel(context.Background(), "small")
	require.NoError(t, err)
	defer model.Close()
	return model.Transcribe(context.Background(), input)
}

func TestLocalEngine_Available(t *testing.T) {
	engine := NewLocalEngine(LocalProviderConfig{BinaryPath: filepath.Join(t.TempDir(), "whisper-cli")}, &stubWeights{}, nil)

	err := engine.Available()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STT_WHISPER_BINARY")

	_, err = engine.LoadModel(context.Background(), "small")
	assert.Error(t, err)
}

func TestLocalModel_Transcribe(t *testing.T) {
	f := newFixture(t, testutil.FakeWhisperOptions{
		JSON: testutil.WhisperJSON("en", " Hello", " world."),
	}, LocalProviderConfig{})
	input := testutil.WriteWav(t, f.dir, "hello.wav", 16000, 1, 1)

	result, err := f.transcribe(t, input)
	require.NoError(t, err)

	assert.Equal(t, " Hello world.", result.Text())
	assert.Equal(t, "en", result.Language())
	assert.Equal(t, "ggml-small.bin", result["model"])
	assert.InDelta(t, 1.0, result["duration"], 0.01)

	segments, ok := result["segments"].([]provider.TranscriptionSegment)
	require.True(t, ok)
	require.Len(t, segments, 2)
	assert.Equal(t, 2.0, segments[1].Start)
	assert.Equal(t, []string{"small"}, f.weights.got)

	args, err := os.ReadFile(f.argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "-m "+f.model)
	assert.Contains(t, string(args), "-f "+input)
	assert.Contains(t, string(args), "-l auto")
	assert.Contains(t, string(args), "-oj")
	assert.Contains(t, string(args), "-np")
	assert.NotContains(t, string(args), "--prompt")

	leftovers, _ := filepath.Glob(filepath.Join(f.dir, "tmp", "*.json"))
	assert.Empty(t, leftovers)
}

func TestLocalModel_TranscribeOptions(t *testing.T) {
	f := newFixture(t, testutil.FakeWhisperOptions{
		JSON: testutil.WhisperJSON("es", " hola"),
	}, LocalProviderConfig{Threads: 3, Prompt: "glossary"})
	input := testutil.WriteWav(t, f.dir, "hola.wav", 16000, 2, 0.5)

	result, err := f.transcribe(t, input)
	require.NoError(t, err)
	assert.Equal(t, " hola", result.Text())

	args, err := os.ReadFile(f.argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "-l auto")
	assert.Contains(t, string(args), "-t 3")
	assert.Contains(t, string(args), "--prompt glossary")
}

func TestLocalModel_TranscribeWithoutTranscription(t *testing.T) {
	f := newFixture(t, testutil.FakeWhisperOptions{
		JSON: `{"result":{"language":"en"}}`,
	}, LocalProviderConfig{})
	input := testutil.WriteWav(t, f.dir, "silence.wav", 16000, 1, 0.5)

	result, err := f.transcribe(t, input)
	require.NoError(t, err)

	_, hasText := result["text"]
	assert.False(t, hasText)
	assert.Equal(t, "", result.Text())
}

func TestLocalModel_TranscribeErrors(t *testing.T) {
	tests := []struct {
		name     string
		opts     testutil.FakeWhisperOptions
		input    func(t *testing.T, dir string) string
		code     string
		sentinel error
	}{
		{
			name:     "missing input",
			opts:     testutil.FakeWhisperOptions{JSON: testutil.WhisperJSON("en", "x")},
			input:    func(t *testing.T, dir string) string { return filepath.Join(dir, "missing.wav") },
			code:     "file_not_found",
			sentinel: apperrors.ErrFileNotFound,
		},
		{
			name: "empty path",
			opts: testutil.FakeWhisperOptions{JSON: testutil.WhisperJSON("en", "x")},
			input: func(t *testing.T, dir string) string {
				return ""
			},
			code: "invalid_input",
		},
		{
			name: "not audio and no ffmpeg",
			opts: testutil.FakeWhisperOptions{JSON: testutil.WhisperJSON("en", "x")},
			input: func(t *testing.T, dir string) string {
				return testutil.WriteFile(t, dir, "notes.txt", []byte("hello"))
			},
			code:     "audio_conversion_error",
			sentinel: apperrors.ErrUnsupportedAudio,
		},
		{
			name: "whisper exits non-zero",
			opts: testutil.FakeWhisperOptions{ExitCode: 1},
			input: func(t *testing.T, dir string) string {
				return testutil.WriteWav(t, dir, "a.wav", 16000, 1, 0.2)
			},
			code:     "transcription_failed",
			sentinel: apperrors.ErrTranscriptionFailed,
		},
		{
			name: "no output written",
			opts: testutil.FakeWhisperOptions{},
			input: func(t *testing.T, dir string) string {
				return testutil.WriteWav(t, dir, "a.wav", 16000, 1, 0.2)
			},
			code:     "output_missing",
			sentinel: apperrors.ErrTranscriptionFailed,
		},
		{
			name: "garbage output",
			opts: testutil.FakeWhisperOptions{JSON: "{not json"},
			input: func(t *testing.T, dir string) string {
				return testutil.WriteWav(t, dir, "a.wav", 16000, 1, 0.2)
			},
			code:     "output_invalid",
			sentinel: apperrors.ErrTranscriptionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.opts, LocalProviderConfig{})

			_, err := f.transcribe(t, tt.input(t, f.dir))
			require.Error(t, err)

			var terr *provider.TranscriptionError
			require.True(t, errors.As(err, &terr), "got %T", err)
			assert.Equal(t, tt.code, terr.Code)
			assert.Equal(t, providerName, terr.Provider)
			if tt.sentinel != nil {
				assert.True(t, apperrors.Is(err, tt.sentinel), "got %v", err)
			}
		})
	}
}

func TestLocalEngine_LoadModelWeightsError(t *testing.T) {
	dir := t.TempDir()
	binary := testutil.WriteFakeWhisperCLI(t, dir, testutil.FakeWhisperOptions{})
	weights := &stubWeights{err: apperrors.ErrModelUnavailable}

	engine := NewLocalEngine(LocalProviderConfig{BinaryPath: binary}, weights, nil)
	require.NoError(t, engine.Available())

	_, err := engine.LoadModel(context.Background(), "small")
	assert.True(t, apperrors.Is(err, apperrors.ErrModelUnavailable))
}

func TestParseOutput(t *testing.T) {
	result, err := parseOutput([]byte(testutil.WhisperJSON("de", " Guten", " Tag")))
	require.NoError(t, err)
	assert.Equal(t, " Guten Tag", result.Text())
	assert.Equal(t, "de", result.Language())

	result, err = parseOutput([]byte(`{"transcription":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "", result.Text())
	_, hasText := result["text"]
	assert.True(t, hasText)

	_, err = parseOutput([]byte(`[]`))
	assert.Error(t, err)
}

// TestLocalEngine_RealWhisper runs the real whisper.cpp binary against a
// recording of someone saying "hello world".
func TestLocalEngine_RealWhisper(t *testing.T) {
	input := os.Getenv("STT_TEST_AUDIO")
	if input == "" {
		t.Skip("STT_TEST_AUDIO not set")
	}
	binary, err := exec.LookPath("whisper-cli")
	if err != nil {
		t.Skip("whisper-cli not installed")
	}
	modelPath := os.Getenv("STT_TEST_MODEL")
	if modelPath == "" {
		t.Skip("STT_TEST_MODEL not set")
	}

	engine := NewLocalEngine(LocalProviderConfig{BinaryPath: binary, FFmpegPath: "ffmpeg"},
		&stubWeights{path: modelPath}, nil)
	require.NoError(t, engine.Available())

	model, err := engine.LoadModel(context.Background(), "small")
	require.NoError(t, err)

	result, err := model.Transcribe(context.Background(), input)
	require.NoError(t, err)

	normalized := strings.ToLower(regexp.MustCompile(`[^a-zA-Z]+`).ReplaceAllString(result.Text(), " "))
	assert.Contains(t, strings.Join(strings.Fields(normalized), " "), "hello world")
}
