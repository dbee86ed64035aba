package weights

import (
	"sort"

	"github.com/samber/lo"

	apperrors "whisper-stt/internal/app/errors"
)

// DefaultSize is the model variant the CLI always loads.
const DefaultSize = "small"

// ggml weight files published for whisper.cpp, by size identifier
var modelFiles = map[string]string{
	"tiny":           "ggml-tiny.bin",
	"tiny.en":        "ggml-tiny.en.bin",
	"base":           "ggml-base.bin",
	"base.en":        "ggml-base.en.bin",
	"small":          "ggml-small.bin",
	"small.en":       "ggml-small.en.bin",
	"medium":         "ggml-medium.bin",
	"medium.en":      "ggml-medium.en.bin",
	"large-v1":       "ggml-large-v1.bin",
	"large-v2":       "ggml-large-v2.bin",
	"large-v3":       "ggml-large-v3.bin",
	"large-v3-turbo": "ggml-large-v3-turbo.bin",
}

// FileName maps a size identifier to its ggml weights file name.
func FileName(size string) (string, error) {
	name, ok := modelFiles[size]
	if !ok {
		return "", apperrors.Wrapf(apperrors.ErrUnsupportedModelSize, "%q (known: %v)", size, Sizes())
	}
	return name, nil
}

// Sizes lists the known size identifiers.
func Sizes() []string {
	sizes := lo.Keys(modelFiles)
	sort.Strings(sizes)
	return sizes
}
