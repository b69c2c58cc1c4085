// Package aws defines functions used to interact with S3-compatible
// object storage
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type S3Client struct {
	C       *s3.Client
	Presign *s3.PresignClient
	Bucket  *string
}

// NewS3 builds the single long-lived client used for the whole process
// lifetime and makes sure the bucket exists before first use.
func NewS3(ctx context.Context) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("s3.access_key_id"),
			viper.GetString("s3.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(viper.GetString("s3.bucket"))

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.Region = viper.GetString("s3.region")

		if endpoint := viper.GetString("s3.endpoint"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	c := &S3Client{
		C:       client,
		Presign: s3.NewPresignClient(client),
		Bucket:  bucket,
	}

	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// EnsureBucket checks that the configured bucket exists and creates it
// when it doesn't. Safe to call more than once.
func (c *S3Client) EnsureBucket(ctx context.Context) error {
	_, err := c.C.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: c.Bucket,
	})
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError

	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchBucket") {
		_, err = c.C.CreateBucket(ctx, &s3.CreateBucketInput{
			Bucket: c.Bucket,
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket '%s', %w", *c.Bucket, err)
		}

		zap.L().Info("Created bucket", zap.String("bucket", *c.Bucket))
		return nil
	}

	return fmt.Errorf("failed to check if bucket exists, %w", err)
}
