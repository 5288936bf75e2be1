package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// Client uploads chat attachments to a bucket and returns their durable URL.
type Client struct {
	storageClient *storage.Client
	bucket        string
	baseURL       string
	prefix        string
}

func NewClient(ctx context.Context, bucket, baseURL, prefix, keyPath string) (*Client, error) {
	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("storage: service account key not found at %s", keyPath)
	}
	storageClient, err := storage.NewClient(ctx, option.WithCredentialsFile(keyPath))
	if err != nil {
		return nil, fmt.Errorf("storage: create client: %w", err)
	}
	return &Client{
		storageClient: storageClient,
		bucket:        bucket,
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		prefix:        strings.Trim(prefix, "/"),
	}, nil
}

// Upload stores one attachment and returns its public URL. The object name is
// uuid-prefixed so concurrent uploads of identically named files never clash.
func (c *Client) Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	key := c.prefix + "/" + objectName(filename)

	w := c.storageClient.Bucket(c.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: close object %s: %w", key, err)
	}
	return c.baseURL + "/" + key, nil
}

func (c *Client) Close() error {
	return c.storageClient.Close()
}

// objectName builds "<uuid>-<original name>" with whitespace and commas
// replaced, matching the naming the mobile clients already expect.
func objectName(filename string) string {
	name := uuid.NewString() + "-" + filename
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', ',':
			return '_'
		}
		return r
	}, name)
}
