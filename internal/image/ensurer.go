package image

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"

	"github.com/imamik/dpuprov/internal/config"
	"github.com/imamik/dpuprov/internal/platform/s3"
)

// BuildError reports that no recovery image could be produced.
type BuildError struct {
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("recovery image %s unavailable: %v", e.Path, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Downloader fetches an object into a local file.
type Downloader interface {
	Download(ctx context.Context, bucket, key, dest string) (int64, error)
}

// DownloaderFactory creates a Downloader for an S3 source.
type DownloaderFactory func(ctx context.Context, src *config.S3Source) (Downloader, error)

// Ensurer resolves the recovery image path.
type Ensurer struct {
	cfg           config.RecoveryImageConfig
	newDownloader DownloaderFactory
	log           logr.Logger
}

// Option configures an Ensurer.
type Option func(*Ensurer)

// WithDownloaderFactory overrides how S3 downloaders are created.
func WithDownloaderFactory(f DownloaderFactory) Option {
	return func(e *Ensurer) {
		e.newDownloader = f
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(e *Ensurer) {
		e.log = log
	}
}

// NewEnsurer creates an Ensurer for cfg.
func NewEnsurer(cfg config.RecoveryImageConfig, opts ...Option) *Ensurer {
	e := &Ensurer{
		cfg:           cfg,
		newDownloader: NewS3Downloader,
		log:           logr.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnsureRecoveryImage returns the path of the recovery image, downloading
// it first when it is missing and an S3 source is configured.
func (e *Ensurer) EnsureRecoveryImage(ctx context.Context) (string, error) {
	path := e.cfg.Path
	info, err := os.Stat(path)
	switch {
	case err == nil && info.Mode().IsRegular():
		e.log.V(1).Info("using local recovery image", "path", path)
		return path, nil
	case err == nil:
		return "", &BuildError{Path: path, Err: errors.New("not a regular file")}
	case !errors.Is(err, os.ErrNotExist):
		return "", &BuildError{Path: path, Err: err}
	}

	src := e.cfg.S3
	if src == nil {
		return "", &BuildError{Path: path, Err: errors.New("file does not exist and no download source is configured")}
	}

	e.log.Info("downloading recovery image", "bucket", src.Bucket, "key", src.Key, "path", path)
	dl, err := e.newDownloader(ctx, src)
	if err != nil {
		return "", &BuildError{Path: path, Err: err}
	}
	n, err := dl.Download(ctx, src.Bucket, src.Key, path)
	if err != nil {
		return "", &BuildError{Path: path, Err: err}
	}
	e.log.Info("recovery image downloaded", "path", path, "bytes", n)
	return path, nil
}

// NewS3Downloader creates an S3 client using the credentials named by src.
func NewS3Downloader(ctx context.Context, src *config.S3Source) (Downloader, error) {
	client, err := s3.NewClient(ctx, src.Endpoint, src.Region,
		os.Getenv(src.AccessKeyEnv), os.Getenv(src.SecretKeyEnv))
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return client, nil
}
