package provider

import (
	"context"
)

// Engine is a speech-recognition capability. Obtaining one may fail when
// the backing library, binary or credentials are absent; that failure is
// reported by Available and is fatal for the process.
type Engine interface {
	// Provider metadata
	GetProviderInfo() ProviderInfo

	// Available probes the capability without loading a model
	Available() error

	// LoadModel loads the model variant named by size ("tiny", "small", ...)
	LoadModel(ctx context.Context, size string) (Model, error)
}

// Model is a loaded speech-recognition model.
type Model interface {
	// Transcribe runs inference on the audio file at inputFilePath
	Transcribe(ctx context.Context, inputFilePath string) (Result, error)

	Close() error
}

// WeightsStore resolves a model size to a local weights file, fetching it
// on first use.
type WeightsStore interface {
	Resolve(ctx context.Context, size string) (string, error)
}
