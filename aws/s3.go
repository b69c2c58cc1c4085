// Package aws defines functions used to interact with S3-compatible
// object storage
package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Objects above this go through the multipart uploader
const multipartLimit = 100 << 20

// PresignPut issues a time-boxed write capability scoped to exactly one
// object key. The expiry is embedded in the URL and enforced by the
// storage layer.
func (c *S3Client) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := c.Presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      c.Bucket,
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload URL, %w", err)
	}

	return req.URL, nil
}

// PresignGet issues a time-boxed read capability for one object key.
func (c *S3Client) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := c.Presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: c.Bucket,
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign download URL, %w", err)
	}

	return req.URL, nil
}

// PutObject writes bytes directly on the trusted path, used when the
// server relays the upload itself.
func (c *S3Client) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        c.Bucket,
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}

	var err error

	if size > multipartLimit {
		u := manager.NewUploader(c.C, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 5 << 20
		})

		_, err = u.Upload(ctx, input)
	} else {
		_, err = c.C.PutObject(ctx, input)
	}

	if err != nil {
		return fmt.Errorf("failed to upload object to S3, %w", err)
	}

	return nil
}

// DeleteObjectIfExists removes an object and succeeds when it was
// already absent.
func (c *S3Client) DeleteObjectIfExists(ctx context.Context, key string) error {
	_, err := c.C.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: c.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
			return nil
		}

		return fmt.Errorf("failed to delete object from S3, %w", err)
	}

	return nil
}

// HeadObject returns the stored byte length of an object. Used by the
// complete step when the client doesn't report a size.
func (c *S3Client) HeadObject(ctx context.Context, key string) (int64, error) {
	resp, err := c.C.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: c.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to stat object in S3, %w", err)
	}

	return aws.ToInt64(resp.ContentLength), nil
}
