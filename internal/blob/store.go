// Package blob stores raw uploaded bytes in an S3-compatible bucket.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/file"
	"github.com/kailas-cloud/docsearch/internal/retry"
)

// Credential modes.
const (
	CredentialsStatic = "static"
	CredentialsEnv    = "env"
	CredentialsIAM    = "iam"
)

// Config holds connection settings for the bucket.
type Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	UseSSL          bool
	Credentials     string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Retry           retry.Policy
}

// objectAPI is the subset of *minio.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
}

// Store is a bucket-scoped blob store. Every call runs under the retry policy
// and failures wrap domain.ErrBlobUnavailable.
type Store struct {
	client objectAPI
	bucket string
	region string
	policy retry.Policy
}

// New connects to the endpoint with an explicit credentials provider.
// The provider owns credential acquisition and refresh.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("blob endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("blob bucket is required")
	}
	creds, err := Credentials(cfg)
	if err != nil {
		return nil, err
	}

	endpoint, secure := cfg.Endpoint, cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		secure = secure || u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return newStore(client, cfg), nil
}

func newStore(client objectAPI, cfg Config) *Store {
	return &Store{client: client, bucket: cfg.Bucket, region: cfg.Region, policy: cfg.Retry}
}

// Credentials builds the provider for the configured mode.
func Credentials(cfg Config) (*credentials.Credentials, error) {
	switch cfg.Credentials {
	case CredentialsStatic, "":
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, fmt.Errorf("static blob credentials require access key and secret")
		}
		return credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken), nil
	case CredentialsEnv:
		return credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
		}), nil
	case CredentialsIAM:
		return credentials.NewIAM(""), nil
	default:
		return nil, fmt.Errorf("unknown blob credentials mode %q", cfg.Credentials)
	}
}

// EnsureBucket creates the bucket if it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			return classify(err)
		}
		if exists {
			return nil
		}
		return classify(s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}))
	})
	if err != nil {
		return fmt.Errorf("%w: ensure bucket %s: %w", domain.ErrBlobUnavailable, s.bucket, err)
	}
	return nil
}

// Put writes data at path, replacing any existing object.
func (s *Store) Put(ctx context.Context, path string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: contentType})
		return classify(err)
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", domain.ErrBlobUnavailable, path, err)
	}
	return nil
}

// Delete removes the object at path. Deleting a missing object succeeds.
func (s *Store) Delete(ctx context.Context, path string) error {
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
		if isNoSuchKey(err) {
			return nil
		}
		return classify(err)
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrBlobUnavailable, path, err)
	}
	return nil
}

// List returns objects under prefix, recursively.
func (s *Store) List(ctx context.Context, prefix string, limit int) ([]file.Object, error) {
	objs, err := retry.DoValue(ctx, s.policy, func(ctx context.Context) ([]file.Object, error) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var out []file.Object
		for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if info.Err != nil {
				return nil, classify(info.Err)
			}
			out = append(out, file.Object{Path: info.Key, Size: info.Size, Modified: info.LastModified})
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", domain.ErrBlobUnavailable, prefix, err)
	}
	return objs, nil
}

// Ping checks that the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: ping: %w", domain.ErrBlobUnavailable, err)
	}
	if !exists {
		return fmt.Errorf("%w: bucket %s does not exist", domain.ErrBlobUnavailable, s.bucket)
	}
	return nil
}

// classify marks errors that a retry cannot fix as permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch",
			"NoSuchBucket", "InvalidBucketName", "EntityTooLarge":
			return retry.Permanent(err)
		}
	}
	return err
}

func isNoSuchKey(err error) bool {
	return err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey"
}
