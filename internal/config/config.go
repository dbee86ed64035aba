package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "whisper-stt/internal/app/errors"
)

// Config holds all application configuration.
type Config struct {
	Engine          string `yaml:"engine" validate:"required,oneof=whisper_cpp openai gemini whisper_server"`
	Prompt          string `yaml:"prompt"`
	Threads         int    `yaml:"threads" validate:"gte=0,lte=256"`
	MetricsTextfile string `yaml:"metrics_textfile"`

	WhisperCpp    WhisperCppConfig    `yaml:"whisper_cpp"`
	Models        ModelsConfig        `yaml:"models"`
	MinIO         MinIOConfig         `yaml:"minio"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Gemini        GeminiConfig        `yaml:"gemini"`
	WhisperServer WhisperServerConfig `yaml:"whisper_server"`
}

// WhisperCppConfig locates the native whisper.cpp tooling.
type WhisperCppConfig struct {
	Binary  string `yaml:"binary" validate:"required"`
	FFmpeg  string `yaml:"ffmpeg" validate:"required"`
	TempDir string `yaml:"temp_dir"`
}

// ModelsConfig controls where ggml weights are cached and fetched from.
type ModelsConfig struct {
	Dir    string `yaml:"dir" validate:"required"`
	Source string `yaml:"source" validate:"required,url"`
}

// MinIOConfig is used when Models.Source is an s3:// URL.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// OpenAIConfig contains settings for the hosted Whisper API.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	Model   string `yaml:"model" validate:"required"`
}

// GeminiConfig contains settings for Gemini audio transcription.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model" validate:"required"`
}

// WhisperServerConfig points at a running whisper.cpp server.
type WhisperServerConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`
	// ModelDir is the weights directory on the server host. When set, the
	// server is asked to load ggml-<size>.bin from it before transcribing.
	ModelDir       string `yaml:"model_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=0"`
}

// Lookup mirrors os.LookupEnv.
type Lookup func(key string) (string, bool)

// Load builds the configuration from defaults, the optional YAML file,
// .env files and the process environment, in that order. Every error it
// returns matches ErrInvalidConfig.
func Load() (*Config, error) {
	if _, err := LoadEnv(); err != nil {
		return nil, apperrors.Mark(apperrors.ErrInvalidConfig, err)
	}
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load without touching .env files.
func LoadFrom(lookup Lookup) (*Config, error) {
	cfg := Defaults()

	path, explicit := configFilePath(lookup)
	if path != "" {
		if err := cfg.mergeFile(path, explicit); err != nil {
			return nil, apperrors.Mark(apperrors.ErrInvalidConfig, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, apperrors.Mark(apperrors.ErrInvalidConfig, err)
	}

	cfg.ExpandPaths(homeDir(lookup))

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFilePath(lookup Lookup) (string, bool) {
	if p, ok := lookup("STT_CONFIG"); ok && p != "" {
		return p, true
	}
	home := homeDir(lookup)
	if home == "" {
		return "", false
	}
	return filepath.Join(home, ".config", "stt", "config.yaml"), false
}

func (c *Config) mergeFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML %s: %w", path, err)
	}
	return nil
}

// ExpandPaths replaces a leading ~ with home in all path fields.
func (c *Config) ExpandPaths(home string) {
	c.Models.Dir = expandPath(c.Models.Dir, home)
	c.WhisperCpp.Binary = expandPath(c.WhisperCpp.Binary, home)
	c.WhisperCpp.FFmpeg = expandPath(c.WhisperCpp.FFmpeg, home)
	c.WhisperCpp.TempDir = expandPath(c.WhisperCpp.TempDir, home)
	c.MetricsTextfile = expandPath(c.MetricsTextfile, home)
}

func expandPath(path, home string) string {
	if path == "" || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func homeDir(lookup Lookup) string {
	if home, ok := lookup("HOME"); ok {
		return home
	}
	return ""
}

func defaultModelDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "whisper")
	}
	return filepath.Join(os.TempDir(), "whisper")
}
