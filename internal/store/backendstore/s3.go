// Package backendstore implements the per-region BackendStore connection
// adapter (§4.4) on top of aws-sdk-go-v2/service/s3, wrapped in the teacher's
// circuit breaker and retry machinery for resilience against transient
// regional outages.
package backendstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/agar-cache/agar/internal/circuit"
	"github.com/agar-cache/agar/pkg/errors"
	"github.com/agar-cache/agar/pkg/retry"
)

// Config configures a single region's S3-backed store.
type Config struct {
	Region   string
	Endpoint string
	Bucket   string
	PoolSize int
}

func (c Config) withDefaults() Config {
	if c.PoolSize <= 0 {
		c.PoolSize = 8
	}
	return c
}

// S3Store is the object-store backend for one region: any block stored under
// object key K∥i can be fetched with Get. It carries no write path, per the
// read-only scope of the cache.
type S3Store struct {
	region  string
	bucket  string
	pool    *ConnectionPool
	breaker *circuit.CircuitBreaker
	retryer *retry.Retryer
}

// NewS3Store builds a backend store for one region.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	cfg = cfg.withDefaults()
	if cfg.Bucket == "" {
		return nil, errors.NewError(errors.ErrCodeConfig, "bucket name cannot be empty").
			WithComponent("backendstore").WithContext("region", cfg.Region)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeConfig, "failed to load AWS config").
			WithComponent("backendstore").WithCause(err).WithContext("region", cfg.Region)
	}

	pool, err := NewConnectionPool(cfg.PoolSize, func() (*s3.Client, error) {
		return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		}), nil
	})
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeConfig, "failed to create connection pool").
			WithComponent("backendstore").WithCause(err)
	}

	breaker := circuit.NewCircuitBreaker(fmt.Sprintf("backend-%s", cfg.Region), circuit.Config{})

	return &S3Store{
		region:  cfg.Region,
		bucket:  cfg.Bucket,
		pool:    pool,
		breaker: breaker,
		retryer: retry.New(retry.DefaultConfig()),
	}, nil
}

// Get fetches the block object stored under key, circuit-breaker-protected and
// retried per pkg/retry.DefaultConfig. A missing object is reported as ok=false,
// not an error.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	var missing bool

	err := s.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		return s.retryer.DoWithContext(ctx, func(ctx context.Context) error {
			client := s.pool.Get()
			if client == nil {
				return errors.NewError(errors.ErrCodeTransientStore, "no backend connection available").
					WithComponent("backendstore").WithContext("region", s.region)
			}
			defer s.pool.Put(client)

			out, err := client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				if isNotFound(err) {
					missing = true
					return nil
				}
				return errors.NewError(errors.ErrCodeTransientStore, "backend GetObject failed").
					WithComponent("backendstore").WithCause(err).WithContext("region", s.region)
			}
			defer out.Body.Close()

			body, err := io.ReadAll(out.Body)
			if err != nil {
				return errors.NewError(errors.ErrCodeTransientStore, "failed to read backend object body").
					WithComponent("backendstore").WithCause(err)
			}
			data = body
			return nil
		})
	})

	if err != nil {
		return nil, false, err
	}
	if missing {
		return nil, false, nil
	}
	return data, true, nil
}

// HealthCheck verifies the region's bucket is reachable.
func (s *S3Store) HealthCheck(ctx context.Context) error {
	client := s.pool.Get()
	if client == nil {
		return errors.NewError(errors.ErrCodeProxyUnreachable, "no backend connection available").
			WithComponent("backendstore").WithContext("region", s.region)
	}
	defer s.pool.Put(client)

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := client.HeadBucket(hctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return errors.NewError(errors.ErrCodeTransientStore, "backend health check failed").
			WithComponent("backendstore").WithCause(err).WithContext("region", s.region)
	}
	return nil
}

// Close shuts down the region's connection pool.
func (s *S3Store) Close() error {
	return s.pool.Close()
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if ok := asAPIError(err, &apiErr); ok {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func asAPIError(err error, target *smithy.APIError) bool {
	for err != nil {
		if apiErr, ok := err.(smithy.APIError); ok {
			*target = apiErr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
