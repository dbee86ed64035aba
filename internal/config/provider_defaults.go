package config

// Engine names
const (
	EngineWhisperCpp    = "whisper_cpp"
	EngineOpenAI        = "openai"
	EngineGemini        = "gemini"
	EngineWhisperServer = "whisper_server"
)

// Default configuration constants
const (
	DefaultEngine = EngineWhisperCpp

	DefaultWhisperBinary = "whisper-cli"
	DefaultFFmpegBinary  = "ffmpeg"

	// whisper.cpp publishes ggml weights under this repository
	DefaultModelSource = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

	DefaultOpenAIModel = "whisper-1"
	DefaultGeminiModel = "gemini-2.0-flash"

	DefaultMinIOEndpoint = "localhost:9000"

	// Matches the timeout callers of the CLI apply to the whole run
	DefaultWhisperServerTimeout = 120
)

// Defaults returns a Config populated with default values only.
func Defaults() *Config {
	return &Config{
		Engine: DefaultEngine,
		WhisperCpp: WhisperCppConfig{
			Binary: DefaultWhisperBinary,
			FFmpeg: DefaultFFmpegBinary,
		},
		Models: ModelsConfig{
			Dir:    defaultModelDir(),
			Source: DefaultModelSource,
		},
		MinIO: MinIOConfig{
			Endpoint: DefaultMinIOEndpoint,
		},
		OpenAI: OpenAIConfig{
			Model: DefaultOpenAIModel,
		},
		Gemini: GeminiConfig{
			Model: DefaultGeminiModel,
		},
		WhisperServer: WhisperServerConfig{
			TimeoutSeconds: DefaultWhisperServerTimeout,
		},
	}
}
