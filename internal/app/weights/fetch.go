package weights

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"whisper-stt/internal/config"
)

// Fetcher opens a remote weights file by name. size is -1 when unknown.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (body io.ReadCloser, size int64, err error)
}

// NewFetcher picks a fetcher from the model source URL scheme.
func NewFetcher(cfg *config.Config) (Fetcher, error) {
	u, err := url.Parse(cfg.Models.Source)
	if err != nil {
		return nil, fmt.Errorf("invalid model source %q: %w", cfg.Models.Source, err)
	}

	switch u.Scheme {
	case "http", "https":
		return &HTTPFetcher{
			BaseURL: strings.TrimSuffix(cfg.Models.Source, "/"),
			Client:  http.DefaultClient,
		}, nil
	case "s3":
		client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create MinIO client: %w", err)
		}
		return &MinIOFetcher{
			Client: client,
			Bucket: u.Host,
			Prefix: strings.Trim(u.Path, "/"),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported model source scheme %q", u.Scheme)
	}
}

// HTTPFetcher downloads weights from BaseURL/<name>.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/"+name, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to download %s: %w", name, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("download %s returned status %d", name, resp.StatusCode)
	}

	return resp.Body, resp.ContentLength, nil
}

// MinIOFetcher reads weights from an S3-compatible bucket.
type MinIOFetcher struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

// Key returns the object key for a weights file.
func (f *MinIOFetcher) Key(name string) string {
	if f.Prefix == "" {
		return name
	}
	return path.Join(f.Prefix, name)
}

func (f *MinIOFetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	key := f.Key(name)

	obj, err := f.Client.GetObject(ctx, f.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get s3://%s/%s: %w", f.Bucket, key, err)
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, fmt.Errorf("failed to stat s3://%s/%s: %w", f.Bucket, key, err)
	}

	return obj, info.Size, nil
}
