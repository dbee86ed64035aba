package weights

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	apperrors "whisper-stt/internal/app/errors"
	"whisper-stt/internal/app/metrics"
)

// Store caches ggml weights in Dir, fetching missing files on first use.
type Store struct {
	fs       afero.Fs
	dir      string
	fetcher  Fetcher
	logger   *zap.Logger
	metrics  *metrics.Recorder
	progress io.Writer
}

// Config is the set of collaborators a Store needs. Fs defaults to the OS
// filesystem and Logger to a no-op logger. Progress, when non-nil,
// receives a download progress bar.
type Config struct {
	Fs       afero.Fs
	Dir      string
	Fetcher  Fetcher
	Logger   *zap.Logger
	Metrics  *metrics.Recorder
	Progress io.Writer
}

// New creates a Store.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, apperrors.RequiredField("model directory")
	}
	if cfg.Fetcher == nil {
		return nil, apperrors.RequiredField("model fetcher")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Store{
		fs:       cfg.Fs,
		dir:      cfg.Dir,
		fetcher:  cfg.Fetcher,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		progress: cfg.Progress,
	}, nil
}

// Path returns where the weights for size live in the cache.
func (s *Store) Path(size string) (string, error) {
	name, err := FileName(size)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Resolve returns the cached weights path for size, downloading it first
// when the cache has no non-empty copy.
func (s *Store) Resolve(ctx context.Context, size string) (string, error) {
	target, err := s.Path(size)
	if err != nil {
		return "", err
	}

	if fi, err := s.fs.Stat(target); err == nil && fi.Size() > 0 {
		s.logger.Debug("model cached", zap.String("path", target))
		return target, nil
	}

	if err := s.download(ctx, target); err != nil {
		return "", apperrors.Mark(apperrors.ErrModelUnavailable, err)
	}
	return target, nil
}

func (s *Store) download(ctx context.Context, target string) error {
	name := filepath.Base(target)
	start := time.Now()

	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("cannot create model directory %s: %w", s.dir, err)
	}

	body, size, err := s.fetcher.Fetch(ctx, name)
	if err != nil {
		return err
	}
	defer body.Close()

	s.logger.Info("downloading model",
		zap.String("file", name),
		zap.Int64("bytes", size))

	partial := target + ".part-" + uuid.NewString()
	f, err := s.fs.Create(partial)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", partial, err)
	}

	bar := newDownloadProgress(s.progress, name, size)
	written, copyErr := io.Copy(f, bar.wrap(body))
	closeErr := f.Close()
	bar.finish(copyErr == nil && closeErr == nil)

	if copyErr == nil && closeErr == nil && size > 0 && written != size {
		copyErr = fmt.Errorf("short download: got %d of %d bytes", written, size)
	}
	if copyErr != nil || closeErr != nil {
		_ = s.fs.Remove(partial)
		if copyErr != nil {
			return fmt.Errorf("failed to write %s: %w", name, copyErr)
		}
		return fmt.Errorf("failed to close %s: %w", partial, closeErr)
	}
	if written == 0 {
		_ = s.fs.Remove(partial)
		return fmt.Errorf("download %s is empty", name)
	}

	if err := s.fs.Rename(partial, target); err != nil {
		_ = s.fs.Remove(partial)
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	s.metrics.RecordDownload(written)
	s.logger.Info("model downloaded",
		zap.String("path", target),
		zap.Int64("bytes", written),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
