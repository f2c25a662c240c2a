package storage

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/samber/oops"

	"natours/api/internal/config"
)

// ObjectStore archives rendered outbound mail in an S3 compatible bucket.
type ObjectStore struct {
	client *minio.Client
	bucket string
	region string
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint, useSSL, err := resolveEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, oops.Code("STORAGE_INIT_FAILED").With("endpoint", endpoint).Wrap(err)
	}

	return &ObjectStore{
		client: client,
		bucket: cfg.BucketMaildrop,
		region: cfg.Region,
	}, nil
}

// resolveEndpoint accepts either host:port or a full URL, in which case the
// scheme decides TLS.
func resolveEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	if !strings.HasPrefix(endpoint, "http") {
		return endpoint, useSSL, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, oops.Code("STORAGE_ENDPOINT_INVALID").With("endpoint", endpoint).Wrap(err)
	}
	return u.Host, u.Scheme == "https", nil
}

func (s *ObjectStore) Bucket() string {
	return s.bucket
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return oops.Code("STORAGE_BUCKET_CHECK_FAILED").With("bucket", s.bucket).Wrap(err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return oops.Code("STORAGE_BUCKET_CREATE_FAILED").With("bucket", s.bucket).Wrap(err)
	}
	return nil
}

func (s *ObjectStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return oops.Code("STORAGE_PUT_FAILED").With("bucket", s.bucket).With("key", key).Wrap(err)
	}
	return nil
}
