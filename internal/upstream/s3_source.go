package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"unchained/internal/transform"
)

// S3Config mirrors the environment surface of the object-store settings.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Source serves files from an S3-compatible bucket. StatObject doubles as
// the existence probe; the object ETag is the change token.
type S3Source struct {
	client   *minio.Client
	bucket   string
	initOnce sync.Once
	initErr  error
}

func NewS3Source(cfg S3Config) (*S3Source, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Source{client: client, bucket: bucket}, nil
}

func (s *S3Source) ensureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("source is nil")
	}
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if !exists {
			s.initErr = fmt.Errorf("bucket %q does not exist", s.bucket)
		}
	})
	return s.initErr
}

func (s *S3Source) Fetch(ctx context.Context, path string) (*transform.SourceFile, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	key := objectKey(path)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()
	content, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	ctype := stat.ContentType
	if ctype == "" || ctype == "application/octet-stream" {
		ctype = contentTypeFor(key)
	}
	etag := stat.ETag
	if etag != "" && !strings.HasPrefix(etag, `"`) {
		etag = `"` + etag + `"`
	}
	return &transform.SourceFile{
		URL:      path,
		MIMEType: ctype,
		Content:  content,
		Headers: map[string]string{
			"Content-Type": ctype,
			"Etag":         etag,
		},
	}, nil
}

func (s *S3Source) Probe(ctx context.Context, path string) (ProbeResult, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return ProbeResult{}, err
	}
	key := objectKey(path)
	stat, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return ProbeResult{}, nil
		}
		return ProbeResult{}, fmt.Errorf("stat %s: %w", key, err)
	}
	ctype := stat.ContentType
	if ctype == "" || ctype == "application/octet-stream" {
		ctype = contentTypeFor(key)
	}
	etag := stat.ETag
	if etag != "" && !strings.HasPrefix(etag, `"`) {
		etag = `"` + etag + `"`
	}
	return ProbeResult{OK: true, ContentType: ctype, ETag: etag}, nil
}

func objectKey(path string) string {
	return strings.TrimLeft(strings.TrimSpace(path), "/")
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.StatusCode == 404
	}
	return false
}
