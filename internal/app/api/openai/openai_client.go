package openai

import (
	"net/http"

	"github.com/sashabaranov/go-openai"

	"whisper-stt/internal/config"
)

// NewClient builds a go-openai client for cfg. A nil httpClient keeps the
// library default.
func NewClient(cfg config.OpenAIConfig, httpClient *http.Client) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	return openai.NewClientWithConfig(clientConfig)
}
