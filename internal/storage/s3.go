package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/wsmontes/linkchart/internal/util"
	"github.com/wsmontes/linkchart/pkg/logger"
)

const uploadsPrefix = "uploads"

// Settings holds the S3 connection settings.
type Settings struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// SettingsFromEnv reads AWS_BUCKET, AWS_ENDPOINT, AWS_REGION,
// AWS_ACCESS_KEY and AWS_SECRET_KEY.
func SettingsFromEnv() Settings {
	return Settings{
		Bucket:    util.GetEnvString("AWS_BUCKET", "linkchart"),
		Endpoint:  util.GetEnv("AWS_ENDPOINT"),
		Region:    util.GetEnvString("AWS_REGION", "us-east-1"),
		AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
		SecretKey: util.GetEnv("AWS_SECRET_KEY"),
	}
}

func NewS3Client(ctx context.Context, s Settings) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.AccessKey,
			s.SecretKey,
			"",
		)),
	}
	if s.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(s.Endpoint))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// Client is the part of the S3 API used for uploads.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Uploads stores files queued for import under uploads/<graph id>/.
type Uploads struct {
	client Client
	bucket string
}

func NewUploads(client Client, bucket string) *Uploads {
	return &Uploads{client: client, bucket: bucket}
}

func (u *Uploads) Bucket() string {
	return u.bucket
}

// GraphPrefix is the key prefix of every upload for graphID.
func GraphPrefix(graphID string) string {
	return uploadsPrefix + "/" + graphID + "/"
}

// Put uploads file under a generated key that keeps the original extension,
// so that format detection by name still works in the worker.
func (u *Uploads) Put(ctx context.Context, graphID, name string, file io.ReadSeeker) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(name))
	key := GraphPrefix(graphID) + id + ext

	in := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		in.ContentType = aws.String(mimeType)
	}
	if _, err := u.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	logger.Debug("[Queue] Uploaded import file", "key", key, "name", name)
	return key, nil
}

func (u *Uploads) Delete(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// DeleteGraph removes every upload of graphID, following list pagination.
func (u *Uploads) DeleteGraph(ctx context.Context, graphID string) error {
	prefix := GraphPrefix(graphID)
	listInput := &s3.ListObjectsV2Input{
		Bucket: aws.String(u.bucket),
		Prefix: aws.String(prefix),
	}

	for {
		listOutput, err := u.client.ListObjectsV2(ctx, listInput)
		if err != nil {
			return fmt.Errorf("list objects in %s: %w", prefix, err)
		}

		if len(listOutput.Contents) > 0 {
			objects := make([]types.ObjectIdentifier, 0, len(listOutput.Contents))
			for _, obj := range listOutput.Contents {
				objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
			}
			_, err = u.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(u.bucket),
				Delete: &types.Delete{
					Objects: objects,
					Quiet:   aws.Bool(true),
				},
			})
			if err != nil {
				return fmt.Errorf("delete objects in %s: %w", prefix, err)
			}
		}

		if !aws.ToBool(listOutput.IsTruncated) {
			return nil
		}
		listInput.ContinuationToken = listOutput.NextContinuationToken
	}
}
