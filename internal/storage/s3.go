// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object storage client for
// poster assets. It wraps the AWS SDK v2 and is configured for path-style
// access (required by CEPH/Hetzner/MinIO). PSD originals are stored under
// the psd/ prefix, rendered posters and thumbnails under thumbnails/.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"posterpress/internal/models"
)

// Key prefixes separating layered originals from displayable images.
const (
	PSDPrefix       = "psd/"
	ThumbnailPrefix = "thumbnails/"
)

// Client wraps an S3 client for poster asset operations on one public bucket.
type Client struct {
	s3        *s3.Client
	bucket    string
	endpoint  string
	publicURL string // optional CDN/direct URL for stored files
	timeout   time.Duration
}

// New creates an S3 storage client with path-style addressing. Every
// object operation runs under a per-call deadline of timeout, the same
// bound the database store applies. Returns (nil, nil) if endpoint or
// credentials are empty, allowing the app to start without storage
// (uploads disabled).
func New(endpoint, region, accessKey, secretKey, bucket, publicURL string, timeout time.Duration) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}

	// Strip trailing slash from endpoint for consistent URL building.
	endpoint = strings.TrimRight(endpoint, "/")

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:        s3Client,
		bucket:    bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(publicURL, "/"),
		timeout:   timeout,
	}, nil
}

// callCtx derives a per-call context honoring the configured timeout. A
// zero timeout leaves the caller's context untouched.
func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// wrapTimeout surfaces a deadline hit as the shared timeout kind so
// handlers answer it the same way as a slow database call.
func wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrTimeout
	}
	return err
}

// Upload stores an object under the given key with public-read ACL so the
// gallery can serve it directly. Existing objects under the same key are
// overwritten.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, wrapTimeout(err))
	}
	return nil
}

// Download retrieves an object and returns its contents. Used by the
// customization engine to load the base poster image for rasterization.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	output, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 download %s/%s: %w", c.bucket, key, wrapTimeout(err))
	}
	defer output.Body.Close()
	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read body %s/%s: %w", c.bucket, key, wrapTimeout(err))
	}
	return data, nil
}

// Delete removes the given objects. Errors are collected per key so a
// single failure doesn't abandon the remaining deletions.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	var firstErr error
	for _, key := range keys {
		if key == "" {
			continue
		}
		err := c.deleteOne(ctx, key)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("s3 delete %s/%s: %w", c.bucket, key, wrapTimeout(err))
		}
	}
	return firstErr
}

// deleteOne removes a single object under its own deadline, so one slow
// delete does not eat the budget of the keys after it.
func (c *Client) deleteOne(ctx context.Context, key string) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	return err
}

// FileURL returns the public URL for a stored object. Uses the configured
// public URL if set, otherwise builds a path-style URL.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.bucket + "/" + key
}

// ExtractKey extracts the object key from a public file URL. Returns the
// key and true if the URL matches this storage, or ("", false) otherwise.
func (c *Client) ExtractKey(rawURL string) (string, bool) {
	// Try publicURL prefix first (CDN or custom domain).
	if c.publicURL != "" {
		prefix := c.publicURL + "/"
		if strings.HasPrefix(rawURL, prefix) {
			return rawURL[len(prefix):], true
		}
	}

	// Try endpoint/bucket prefix (path-style S3).
	prefix := c.endpoint + "/" + c.bucket + "/"
	if strings.HasPrefix(rawURL, prefix) {
		return rawURL[len(prefix):], true
	}

	return "", false
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
