package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Dan9191/adboard/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// ObjectAPI is the subset of *s3.Client the store needs
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store uploads files to an S3 compatible bucket such as MinIO
type S3Store struct {
	client    ObjectAPI
	bucket    string
	publicURL string
	logger    *logrus.Logger
}

// NewS3Store builds an S3 client from cfg
func NewS3Store(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	publicURL := cfg.S3PublicURL
	if publicURL == "" {
		publicURL = defaultPublicURL(cfg)
	}
	return NewS3StoreWithClient(client, cfg.S3Bucket, publicURL, logger), nil
}

// NewS3StoreWithClient wraps an existing client
func NewS3StoreWithClient(client ObjectAPI, bucket, publicURL string, logger *logrus.Logger) *S3Store {
	return &S3Store{client: client, bucket: bucket, publicURL: publicURL, logger: logger}
}

func defaultPublicURL(cfg *config.Config) string {
	if cfg.S3Endpoint != "" {
		return cfg.S3Endpoint + "/" + cfg.S3Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
}

func (s *S3Store) Save(ctx context.Context, field, filename string, r io.Reader) (string, error) {
	key, contentType, err := objectName(field, filename)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Error("Failed to upload object")
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

func (s *S3Store) Delete(ctx context.Context, path string) error {
	key, err := storedName(s.publicURL, path)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
