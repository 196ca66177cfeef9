// Package s3 handles optional offsite copies of dump artifacts. Uploads are
// best-effort: a failed copy never fails the dump that produced the artifact.
package s3

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/supporttools/GoPGVault/pkg/config"
)

// Client represents an S3 client
type Client struct {
	s3Client *s3.Client
	cfg      *config.AppConfig
}

// NewClient creates a new S3 client from the application configuration.
func NewClient() (*Client, error) {
	if !config.CFG.S3.Enabled {
		return nil, fmt.Errorf("S3 offsite copies are not enabled in configuration")
	}

	s3Client, err := getS3Client()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	return &Client{
		s3Client: s3Client,
		cfg:      &config.CFG,
	}, nil
}

// getS3Client initializes and returns an S3 client based on configuration
func getS3Client() (*s3.Client, error) {
	ctx := context.Background()

	sdkOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.CFG.S3.AccessKey, config.CFG.S3.SecretKey, "",
		)),
		awsconfig.WithRegion(config.CFG.S3.Region),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, sdkOptions...)
	if err != nil {
		return nil, fmt.Errorf("AWS SDK config initialization error: %w", err)
	}

	s3Options := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = config.CFG.S3.UsePathStyle
		},
	}

	// Custom S3-compatible endpoints (MinIO and friends).
	if config.CFG.S3.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.CFG.S3.Endpoint)
		})
	}

	return s3.NewFromConfig(awsCfg, s3Options...), nil
}

// UploadDump copies a dump artifact to the configured bucket and returns the
// object key.
func (c *Client) UploadDump(ctx context.Context, dumpPath string) (string, error) {
	file, err := os.Open(dumpPath)
	if err != nil {
		return "", fmt.Errorf("failed to open dump file for S3 upload: %w", err)
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil {
		logrus.Debugf("Uploading %s (%s) to s3://%s", dumpPath, humanize.Bytes(uint64(info.Size())), c.cfg.S3.Bucket)
	}

	objectKey := buildObjectKey(c.cfg.S3.Prefix, filepath.Base(dumpPath))

	uploadCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	_, err = c.s3Client.PutObject(uploadCtx, &s3.PutObjectInput{
		Bucket: aws.String(c.cfg.S3.Bucket),
		Key:    aws.String(objectKey),
		Body:   file,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload dump to S3: %w", err)
	}

	logrus.Infof("Uploaded offsite copy to s3://%s/%s", c.cfg.S3.Bucket, objectKey)
	return objectKey, nil
}

// ListDumps returns the object keys of offsite copies under the configured
// prefix, for operators auditing what has been shipped.
func (c *Client) ListDumps(ctx context.Context) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(c.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.cfg.S3.Bucket),
		Prefix: aws.String(c.cfg.S3.Prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, *obj.Key)
		}
	}

	return keys, nil
}

// buildObjectKey builds a consistent S3 object key
func buildObjectKey(prefix, fileName string) string {
	if prefix != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(prefix, "/"), fileName)
	}
	return fileName
}
