package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/go-audio/wav"
	"github.com/google/uuid"

	apperrors "whisper-stt/internal/app/errors"
)

const (
	whisperSampleRate = 16000
	whisperBitDepth   = 16
	wavFormatPCM      = 1
)

// WavInfo describes the header of a RIFF/WAVE file.
type WavInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Format     int
	Duration   time.Duration
}

// WhisperReady reports whether whisper.cpp can read the file as is:
// 16 kHz, 16-bit PCM, mono or stereo.
func (i *WavInfo) WhisperReady() bool {
	return i != nil &&
		i.SampleRate == whisperSampleRate &&
		i.BitDepth == whisperBitDepth &&
		i.Format == wavFormatPCM &&
		(i.Channels == 1 || i.Channels == 2)
}

// ProbeWav reads the WAV header of path. Files that are not WAV return
// ErrUnsupportedAudio.
func ProbeWav(path string) (*WavInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Mark(apperrors.ErrFileNotFound, err)
		}
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, apperrors.Wrapf(apperrors.ErrUnsupportedAudio, "%s is not a WAV file", path)
	}

	info := &WavInfo{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Format:     int(d.WavAudioFormat),
	}
	if dur, err := d.Duration(); err == nil {
		info.Duration = dur
	}
	return info, nil
}

// ConvertTo16kHzWav converts any ffmpeg-readable input to 16 kHz mono PCM
// WAV inside dir and returns the new file's path.
func ConvertTo16kHzWav(ctx context.Context, ffmpeg, inputFilePath, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create temp directory %s: %w", dir, err)
	}

	outputWavPath := filepath.Join(dir, "stt-"+uuid.NewString()+".wav")

	cmd := exec.CommandContext(ctx, ffmpeg,
		"-nostdin", "-y",
		"-i", inputFilePath,
		"-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1",
		outputWavPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outputWavPath)
		return "", apperrors.Mark(apperrors.ErrUnsupportedAudio,
			fmt.Errorf("FFmpeg error: %v, stderr: %s", err, lastLines(stderr.String(), 5)))
	}

	return outputWavPath, nil
}

// Prepared is an input ready for whisper.cpp.
type Prepared struct {
	Path      string
	Info      *WavInfo
	Converted bool
}

// Cleanup removes the converted file, if any.
func (p *Prepared) Cleanup() {
	if p != nil && p.Converted {
		os.Remove(p.Path)
	}
}

// Prepare returns inputFilePath untouched when it is already whisper-ready
// WAV, otherwise a converted copy in tempDir.
func Prepare(ctx context.Context, ffmpeg, inputFilePath, tempDir string) (*Prepared, error) {
	if _, err := os.Stat(inputFilePath); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Mark(apperrors.ErrFileNotFound, err)
		}
		return nil, err
	}

	info, err := ProbeWav(inputFilePath)
	if err == nil && info.WhisperReady() {
		return &Prepared{Path: inputFilePath, Info: info}, nil
	}
	if err != nil && !apperrors.Is(err, apperrors.ErrUnsupportedAudio) {
		return nil, err
	}

	converted, err := ConvertTo16kHzWav(ctx, ffmpeg, inputFilePath, tempDir)
	if err != nil {
		return nil, err
	}

	p := &Prepared{Path: converted, Converted: true}
	if info, err := ProbeWav(converted); err == nil {
		p.Info = info
	}
	return p, nil
}

func lastLines(s string, n int) string {
	lines := bytes.Split(bytes.TrimSpace([]byte(s)), []byte("\n"))
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return string(bytes.Join(lines, []byte("\n")))
}
