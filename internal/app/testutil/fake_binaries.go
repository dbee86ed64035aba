package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// FakeWhisperOptions controls the behaviour of the fake whisper-cli.
type FakeWhisperOptions struct {
	// JSON written to "<-of>.json"; empty writes nothing
	JSON string
	// ExitCode the script exits with after writing JSON
	ExitCode int
	// ArgsFile receives the full argument list when set
	ArgsFile string
}

// WriteFakeWhisperCLI writes a shell script mimicking whisper-cli's -oj
// output and returns its path. Tests needing it are skipped on Windows.
func WriteFakeWhisperCLI(t testing.TB, dir string, opts FakeWhisperOptions) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake whisper-cli needs a POSIX shell")
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	if opts.ArgsFile != "" {
		fmt.Fprintf(&b, "echo \"$*\" > %s\n", shellQuote(opts.ArgsFile))
	}
	b.WriteString(`of=""; model=""; input=""
while [ $# -gt 0 ]; do
  case "$1" in
    -of) of="$2"; shift 2 ;;
    -m) model="$2"; shift 2 ;;
    -f) input="$2"; shift 2 ;;
    *) shift ;;
  esac
done
[ -f "$model" ] || { echo "failed to load model $model" >&2; exit 3; }
[ -f "$input" ] || { echo "failed to read $input" >&2; exit 4; }
`)
	if opts.JSON != "" {
		fmt.Fprintf(&b, "printf '%%s' %s > \"$of.json\"\n", shellQuote(opts.JSON))
	}
	fmt.Fprintf(&b, "exit %d\n", opts.ExitCode)

	path := filepath.Join(dir, "whisper-cli")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0755))
	return path
}

// WhisperJSON renders whisper.cpp's -oj document for the given segments.
func WhisperJSON(language string, segments ...string) string {
	type segment struct {
		Timestamps map[string]string `json:"timestamps"`
		Offsets    map[string]int    `json:"offsets"`
		Text       string            `json:"text"`
	}
	doc := map[string]interface{}{
		"systeminfo": "AVX = 1 | NEON = 0",
		"model":      map[string]interface{}{"type": "small"},
		"result":     map[string]string{"language": language},
	}
	out := make([]segment, 0, len(segments))
	for i, s := range segments {
		out = append(out, segment{
			Timestamps: map[string]string{"from": "00:00:00,000", "to": "00:00:02,000"},
			Offsets:    map[string]int{"from": i * 2000, "to": (i + 1) * 2000},
			Text:       s,
		})
	}
	doc["transcription"] = out

	data, _ := json.Marshal(doc)
	return string(data)
}

// WriteModel places a non-empty weights file where the store expects it.
func WriteModel(t testing.TB, modelDir, fileName string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(modelDir, 0755))
	return WriteFile(t, modelDir, fileName, []byte("ggml"))
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
