package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"findex/internal/config"
	"findex/internal/findex"
)

// mirrorTimeout bounds one mirror upload; a slow or unreachable bucket
// must not stall the import pipeline.
const mirrorTimeout = 5 * time.Minute

// s3API is the subset of the S3 client the mirror needs directly.
// Narrow so tests can fake it.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// uploader abstracts the multipart upload manager.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Mirror replicates newly stored content to an S3 bucket. Objects are
// keyed <prefix>/<hash>; uploads of already-present objects are skipped.
type S3Mirror struct {
	bucket   string
	prefix   string
	client   s3API
	uploader uploader
}

// NewS3Mirror creates a mirror from config. Static credentials are used
// when configured, otherwise the default AWS credential chain applies.
func NewS3Mirror(ctx context.Context, cfg config.MirrorConfig) (*S3Mirror, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 mirror requires s3_bucket to be set")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Mirror{
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// newS3MirrorWithClients wires explicit clients; used by tests.
func newS3MirrorWithClients(bucket, prefix string, client s3API, up uploader) *S3Mirror {
	return &S3Mirror{bucket: bucket, prefix: prefix, client: client, uploader: up}
}

// key returns the object key for a hash.
func (m *S3Mirror) key(hash string) string {
	return path.Join(m.prefix, hash)
}

// Mirror uploads the content at sourcePath under its hash key.
// Idempotent: an object that already exists is left untouched.
func (m *S3Mirror) Mirror(hash, sourcePath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()

	key := m.key(hash)
	_, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil // already mirrored
	}
	if !isNotFound(err) {
		return fmt.Errorf("checking mirror object %s: %w", key, err)
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("opening source for mirror: %w", err)
	}
	defer f.Close()

	_, err = m.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("uploading mirror object %s: %w", key, err)
	}
	return nil
}

// isNotFound reports whether err is an S3 404 (missing object).
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}

// Compile-time check that S3Mirror implements findex.Mirror
var _ findex.Mirror = (*S3Mirror)(nil)
