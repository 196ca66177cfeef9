package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// PresignDump creates a time-limited download URL for an offsite dump copy,
// so an artifact can be handed to another operator without sharing bucket
// credentials.
func (c *Client) PresignDump(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(c.s3Client)

	result, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.S3.Bucket),
		Key:    aws.String(objectKey),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	logrus.Debugf("Generated presigned URL for %s (expires in %s)", objectKey, expiry)
	return result.URL, nil
}
