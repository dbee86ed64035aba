package provider

import (
	"fmt"
	"strings"
)

// ProviderType defines the type of transcription provider
type ProviderType string

const (
	ProviderTypeLocal  ProviderType = "local"
	ProviderTypeRemote ProviderType = "remote"
)

// Result is the untyped result of a transcription, keyed like the
// dictionaries speech libraries return ("text", "language", "segments").
type Result map[string]interface{}

// Text returns the "text" field, or "" when it is absent or not a string.
func (r Result) Text() string {
	if r == nil {
		return ""
	}
	text, ok := r["text"].(string)
	if !ok {
		return ""
	}
	return text
}

// Language returns the detected language if the engine reported one.
func (r Result) Language() string {
	if r == nil {
		return ""
	}
	lang, _ := r["language"].(string)
	return lang
}

// TranscriptionSegment represents a time-segmented piece of transcription
type TranscriptionSegment struct {
	ID    int     `json:"id"`
	Text  string  `json:"text"`
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
}

// JoinSegments concatenates segment texts the way whisper does for the
// top-level "text" field.
func JoinSegments(segments []TranscriptionSegment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// ProviderInfo contains metadata about a transcription provider
type ProviderInfo struct {
	Name           string       `json:"name"`
	DisplayName    string       `json:"display_name"`
	Type           ProviderType `json:"type"`
	RequiresAPIKey bool         `json:"requires_api_key"`
	RequiresBinary bool         `json:"requires_binary"`
	DefaultModel   string       `json:"default_model,omitempty"`
}

// TranscriptionError represents provider-specific errors
type TranscriptionError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Provider    string   `json:"provider"`
	Retryable   bool     `json:"retryable"`
	Suggestions []string `json:"suggestions,omitempty"`

	Cause error `json:"-"`
}

func (e *TranscriptionError) Error() string {
	if e.Cause != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
	return e.Message
}

func (e *TranscriptionError) Unwrap() error {
	return e.Cause
}
