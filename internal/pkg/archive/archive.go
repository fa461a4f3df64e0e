package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// Archiver stores raw webhook payloads in an S3-compatible bucket so
// disputed or misclassified payments can be replayed later.
type Archiver struct {
	s3Client *s3.Client
	config   *Config
}

// NewArchiver creates an archiver for the given configuration.
func NewArchiver(cfg *Config) (*Archiver, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("webhook archiving is disabled")
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible services like Backblaze B2 need path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	archiver := &Archiver{
		s3Client: s3Client,
		config:   cfg,
	}

	if err := archiver.testConnection(); err != nil {
		return nil, fmt.Errorf("failed to connect to S3: %w", err)
	}

	logrus.Infof("[Archive] Successfully initialized S3 client for bucket: %s", cfg.BucketName)
	return archiver, nil
}

// NewArchiverFromEnv builds an archiver from environment variables. It
// returns (nil, nil) when archiving is disabled; callers treat a nil
// archiver as "archiving off".
func NewArchiverFromEnv() (*Archiver, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.IsEnabled() {
		return nil, nil
	}
	return NewArchiver(cfg)
}

// testConnection checks that the configured bucket is reachable.
func (a *Archiver) testConnection() error {
	ctx := context.Background()
	bucketName := a.config.BucketName

	_, err := a.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucketName),
	})

	if err != nil {
		// If the bucket doesn't exist, try to create it (for development)
		if GetAppEnv() != "prod" {
			logrus.Warnf("[Archive] Bucket %s not found, attempting to create it", bucketName)
			return a.createBucket(bucketName)
		}
		return fmt.Errorf("bucket %s not accessible: %w", bucketName, err)
	}

	return nil
}

// createBucket creates a new S3 bucket (dev/staging only)
func (a *Archiver) createBucket(bucketName string) error {
	ctx := context.Background()

	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	}

	// AWS regions other than us-east-1 need an explicit location constraint.
	// S3-compatible services with a custom endpoint must not set one.
	if a.config.EndpointURL == "" && a.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(a.config.Region),
		}
	}

	_, err := a.s3Client.CreateBucket(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}

	logrus.Infof("[Archive] Successfully created bucket: %s", bucketName)
	return nil
}

// ArchiveWebhookPayload uploads the raw webhook body under a dated key.
func (a *Archiver) ArchiveWebhookPayload(ctx context.Context, provider, providerEventID string, payload []byte) error {
	bucketName := a.config.BucketName
	objectKey := a.config.ObjectKey(provider, providerEventID, time.Now().UTC())

	_, err := a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucketName),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(payload))),
		Metadata: map[string]string{
			"provider":      provider,
			"upload-source": "focusgate-webhook",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload payload to S3: %w", err)
	}

	logrus.Debugf("[Archive] Stored webhook payload: s3://%s/%s", bucketName, objectKey)
	return nil
}
