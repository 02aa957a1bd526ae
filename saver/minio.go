package saver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig describes an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

// PartSize bounds the buffer minio-go allocates per part for streams of unknown length.
const PartSize = 16 << 20

// MinioSaver uploads exported files to a bucket under Prefix.
type MinioSaver struct {
	cl     *minio.Client
	bucket string
	prefix string
}

// NewMinioSaver wraps an existing client.
func NewMinioSaver(client *minio.Client, bucket, prefix string) (*MinioSaver, error) {
	if client == nil {
		return nil, errors.New("saver: nil minio client")
	}
	if bucket == "" {
		return nil, errors.New("saver: empty bucket")
	}
	return &MinioSaver{cl: client, bucket: bucket, prefix: prefix}, nil
}

// NewMinioSaverFromConfig builds a client from cfg with static credentials.
func NewMinioSaverFromConfig(cfg MinioConfig) (*MinioSaver, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}
	return NewMinioSaver(cl, cfg.Bucket, cfg.Prefix)
}

// Key returns the object key used for name.
func (s *MinioSaver) Key(name string) string {
	base := BaseName(name)
	if s.prefix == "" {
		return base
	}
	return path.Join(s.prefix, base)
}

// Save streams r to the bucket. The object size is unknown, so parts are buffered at
// PartSize.
func (s *MinioSaver) Save(ctx context.Context, name string, r io.Reader) error {
	if BaseName(name) == "" {
		return ErrEmptyName
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := s.Key(name)
	if _, err := s.cl.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{
		ContentType: contentType,
		PartSize:    PartSize,
	}); err != nil {
		return fmt.Errorf("saver: put %s/%s: %w", s.bucket, key, err)
	}
	return nil
}
