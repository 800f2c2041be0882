package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// FileStore writes reports into a local directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, which must be absolute.
func NewFileStore(dir string) (*FileStore, error) {
	if !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("report: output directory must be absolute: %q", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Put writes data to dir/name and returns the file path.
func (s *FileStore) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ObjectClient is the subset of *minio.Client used by MinIOStore.
type ObjectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinIOConfig holds configuration for an S3 compatible report store.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string

	// Prefix is prepended to every object name, e.g. "reports/".
	Prefix string

	Logger zerolog.Logger
}

// MinIOStore writes reports to an S3 compatible bucket, creating it on
// first use.
type MinIOStore struct {
	client ObjectClient
	bucket string
	region string
	prefix string
	logger zerolog.Logger

	mu    sync.Mutex
	ready bool
}

// NewMinIOStore connects a MinIOStore. No request is made until Put.
func NewMinIOStore(cfg MinIOConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("report: minio endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("report: minio client: %w", err)
	}
	return NewMinIOStoreWithClient(client, cfg)
}

// NewMinIOStoreWithClient creates a MinIOStore around an existing client.
func NewMinIOStoreWithClient(client ObjectClient, cfg MinIOConfig) (*MinIOStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("report: minio bucket is required")
	}
	return &MinIOStore{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: cfg.Prefix,
		logger: cfg.Logger,
	}, nil
}

// Put uploads data and returns its s3:// location.
func (s *MinIOStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}

	object := s.prefix + name
	info, err := s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", object, err)
	}

	s.logger.Debug().
		Str("bucket", s.bucket).
		Str("object", object).
		Str("etag", info.ETag).
		Msg("report uploaded")
	return fmt.Sprintf("s3://%s/%s", s.bucket, object), nil
}

func (s *MinIOStore) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
		s.logger.Info().Str("bucket", s.bucket).Msg("created report bucket")
	}
	s.ready = true
	return nil
}
