package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from the first .env file found.
// Variables already present in the environment win. It returns the path it
// loaded, or "" when there was none.
func LoadEnv(envPaths ...string) (string, error) {
	if len(envPaths) == 0 {
		envPaths = []string{".env", ".env.local"}
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return "", fmt.Errorf("error loading %s file: %w", envPath, err)
			}
			return envPath, nil
		}
	}

	return "", nil
}

type envBinding struct {
	key string
	set func(c *Config, v string) error
}

func stringVar(dst func(c *Config) *string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		*dst(c) = strings.TrimSpace(v)
		return nil
	}
}

var envBindings = []envBinding{
	{"STT_ENGINE", stringVar(func(c *Config) *string { return &c.Engine })},
	{"STT_PROMPT", stringVar(func(c *Config) *string { return &c.Prompt })},
	{"STT_METRICS_TEXTFILE", stringVar(func(c *Config) *string { return &c.MetricsTextfile })},
	{"STT_WHISPER_BINARY", stringVar(func(c *Config) *string { return &c.WhisperCpp.Binary })},
	{"STT_FFMPEG_BINARY", stringVar(func(c *Config) *string { return &c.WhisperCpp.FFmpeg })},
	{"STT_TEMP_DIR", stringVar(func(c *Config) *string { return &c.WhisperCpp.TempDir })},
	{"STT_MODEL_DIR", stringVar(func(c *Config) *string { return &c.Models.Dir })},
	{"STT_MODEL_SOURCE", stringVar(func(c *Config) *string { return &c.Models.Source })},
	{"MINIO_ENDPOINT", stringVar(func(c *Config) *string { return &c.MinIO.Endpoint })},
	{"MINIO_ACCESS_KEY", stringVar(func(c *Config) *string { return &c.MinIO.AccessKey })},
	{"MINIO_SECRET_KEY", stringVar(func(c *Config) *string { return &c.MinIO.SecretKey })},
	{"OPENAI_API_KEY", stringVar(func(c *Config) *string { return &c.OpenAI.APIKey })},
	{"OPENAI_BASE_URL", stringVar(func(c *Config) *string { return &c.OpenAI.BaseURL })},
	{"OPENAI_MODEL", stringVar(func(c *Config) *string { return &c.OpenAI.Model })},
	{"GEMINI_API_KEY", stringVar(func(c *Config) *string { return &c.Gemini.APIKey })},
	{"GEMINI_MODEL", stringVar(func(c *Config) *string { return &c.Gemini.Model })},
	{"STT_WHISPER_SERVER_URL", stringVar(func(c *Config) *string { return &c.WhisperServer.URL })},
	{"STT_WHISPER_SERVER_MODEL_DIR", stringVar(func(c *Config) *string { return &c.WhisperServer.ModelDir })},
	{"STT_THREADS", func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("STT_THREADS must be an integer: %w", err)
		}
		c.Threads = n
		return nil
	}},
	{"MINIO_USE_SSL", func(c *Config, v string) error {
		c.MinIO.UseSSL = strings.EqualFold(strings.TrimSpace(v), "true")
		return nil
	}},
}

// applyEnv overrides fields with non-empty environment variables.
func (c *Config) applyEnv(lookup Lookup) error {
	for _, b := range envBindings {
		v, ok := lookup(b.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := b.set(c, v); err != nil {
			return err
		}
	}
	return nil
}
