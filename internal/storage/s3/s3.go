// Package s3 implements storage.ObjectStore on Amazon S3 or any
// S3-compatible server such as MinIO.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/livme/livme/internal/storage"
)

var _ storage.ObjectStore = (*Client)(nil)

// Config selects the bucket and, for MinIO, the endpoint.
type Config struct {
	Region          string
	Endpoint        string // empty for AWS
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

type Client struct {
	api    s3iface.S3API
	bucket string
	// baseURL is the prefix objects are served from, without trailing slash.
	baseURL string
	logger  *slog.Logger
}

// New creates a client and makes sure the bucket exists.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
		awsConfig.DisableSSL = aws.Bool(!cfg.UseSSL)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("s3: creating session: %w", err)
	}

	c := NewWithAPI(s3.New(sess), cfg, logger)
	if err := c.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewWithAPI wraps an existing S3 API implementation.
func NewWithAPI(api s3iface.S3API, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		api:     api,
		bucket:  cfg.Bucket,
		baseURL: objectBaseURL(cfg),
		logger:  logger,
	}
}

func objectBaseURL(cfg Config) string {
	if cfg.Endpoint == "" {
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}
	host := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, strings.TrimSuffix(host, "/"), cfg.Bucket)
}

func (c *Client) ensureBucket(ctx context.Context) error {
	_, err := c.api.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}

	c.logger.Info("creating bucket", slog.String("bucket", c.bucket))
	_, err = c.api.CreateBucketWithContext(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeBucketAlreadyOwnedByYou || aerr.Code() == s3.ErrCodeBucketAlreadyExists) {
			return nil
		}
		return fmt.Errorf("s3: creating bucket %s: %w", c.bucket, err)
	}
	return nil
}

// Put uploads data under key and returns the object URL.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	_, err := c.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3: uploading %s: %w", key, err)
	}
	return c.baseURL + "/" + key, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	key = strings.TrimPrefix(key, "/")
	_, err := c.api.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3: deleting %s: %w", key, err)
	}
	return nil
}
