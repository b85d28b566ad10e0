package minio

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/opsdesk/filetrack/pkg/errors"
)

// Put stores document bytes under key.  Implements the intake service's
// document store port.
func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := c.mc.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "storing document object")
	}
	return nil
}

// Get streams a stored document.  The caller must close the reader.
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "fetching document object")
	}
	// GetObject defers errors to the first read; surface missing keys now.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.Newf(errors.ErrCodeNotFound, "document %s not found", key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "checking document object")
	}
	return obj, nil
}

// Remove deletes a stored document.
func (c *Client) Remove(ctx context.Context, key string) error {
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "removing document object")
	}
	return nil
}
