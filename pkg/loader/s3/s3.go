package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/loader"
)

// ObjectGetter is the part of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3SourceLoader is a SourceLoader implementation that loads file contents
// from an Amazon S3 bucket. It uses the AWS SDK v2 for Go.
//
// This loader is used by the import worker, whose input files are uploaded
// to S3 by the HTTP API.
type S3SourceLoader struct {
	bucket string
	client ObjectGetter
	cache  *loader.Cache
}

// NewS3SourceLoaderWithClient creates a new S3SourceLoader using an existing
// client.
func NewS3SourceLoaderWithClient(bucket string, client ObjectGetter) *S3SourceLoader {
	return &S3SourceLoader{
		bucket: bucket,
		client: client,
		cache:  loader.NewCache(),
	}
}

// NewS3SourceLoaderParams defines the configuration parameters for creating
// a new S3SourceLoader.
//
// Endpoint allows overriding the S3 endpoint (useful for S3-compatible
// storage like MinIO).
type NewS3SourceLoaderParams struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3SourceLoader creates a new S3SourceLoader with static credentials and
// the given endpoint/region.
//
// Example:
//
//	l, err := s3.NewS3SourceLoader(ctx, s3.NewS3SourceLoaderParams{
//		Bucket:    "imports",
//		Endpoint:  "http://localhost:9000",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
//		SecretKey: os.Getenv("AWS_SECRET_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	file := loader.NewSourceFile(loader.NewSourceFileParams{ID: "1", Path: "uploads/people.csv", Loader: l})
//	data, err := file.GetBytes(ctx)
func NewS3SourceLoader(ctx context.Context, params NewS3SourceLoaderParams) (*S3SourceLoader, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(params.Region),
		config.WithBaseEndpoint(params.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return NewS3SourceLoaderWithClient(params.Bucket, client), nil
}

// GetFileBytes retrieves the object at file.Path from the configured bucket.
func (l *S3SourceLoader) GetFileBytes(ctx context.Context, file loader.SourceFile) ([]byte, error) {
	return l.cache.Get(loader.CacheKey(file), func() ([]byte, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(file.Path),
		})
		if err != nil {
			return nil, fmt.Errorf("get s3://%s/%s: %w", l.bucket, file.Path, err)
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, fmt.Errorf("read s3://%s/%s: %w", l.bucket, file.Path, err)
		}
		return buf.Bytes(), nil
	})
}

func (l *S3SourceLoader) Kind() common.SourceKind {
	return common.SourceKindStorage
}
