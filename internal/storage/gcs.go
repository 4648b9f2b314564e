// Package storage is the remote object-storage collaborator of the
// pipeline: fetch a named object into a local path, store a local path
// as a named object. Both operations are blocking and all-or-nothing
// from the pipeline's perspective.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"seqforge/internal/config"
	apperrors "seqforge/internal/errors"
)

// ObjectStore is the interface the pipeline depends on.
type ObjectStore interface {
	// FetchObject downloads an object into localPath, overwriting any
	// existing file.
	FetchObject(ctx context.Context, object, localPath string) error
	// StoreObject uploads the file at localPath under the object key.
	StoreObject(ctx context.Context, localPath, object string) error
	// Enabled reports whether the store actually mirrors remotely.
	Enabled() bool
	Close() error
}

// Client is a GCS-backed ObjectStore.
type Client struct {
	client *storage.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewClient builds an ObjectStore from configuration. When no bucket
// is configured a no-op store is returned and the pipeline runs
// against local files only.
func NewClient(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (ObjectStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled() {
		logger.Info("remote storage disabled, running against local files only")
		return Disabled{}, nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrTypeConfig,
				fmt.Sprintf("service account key not found at %s", cfg.CredentialsFile), err)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTypeExternalIO, "create storage client", err)
	}

	return &Client{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.RemotePrefix,
		logger: logger,
	}, nil
}

// Enabled implements ObjectStore.
func (c *Client) Enabled() bool { return true }

// Close releases the underlying client.
func (c *Client) Close() error { return c.client.Close() }

// FetchObject implements ObjectStore. The local file is removed first
// so a stale copy never survives a failed download.
func (c *Client) FetchObject(ctx context.Context, object, localPath string) error {
	key := c.key(object)
	c.logger.Info("fetching object",
		slog.String("object", fmt.Sprintf("gs://%s/%s", c.bucket, key)),
		slog.String("local_path", localPath))

	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.ErrTypeExternalIO, "remove existing local file", err)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return apperrors.Wrap(apperrors.ErrTypeExternalIO, "create local directory", err)
	}

	reader, err := c.client.Bucket(c.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrTypeExternalIO,
			fmt.Sprintf("open object %s", key), err)
	}
	defer reader.Close()

	file, err := os.Create(localPath)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrTypeExternalIO, "create local file", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return apperrors.Wrap(apperrors.ErrTypeExternalIO,
			fmt.Sprintf("download object %s", key), err)
	}
	return nil
}

// StoreObject implements ObjectStore.
func (c *Client) StoreObject(ctx context.Context, localPath, object string) error {
	key := c.key(object)
	c.logger.Info("storing object",
		slog.String("local_path", localPath),
		slog.String("object", fmt.Sprintf("gs://%s/%s", c.bucket, key)))

	file, err := os.Open(localPath)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrTypeExternalIO, "open local file", err)
	}
	defer file.Close()

	writer := c.client.Bucket(c.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = "application/octet-stream"

	if _, err := io.Copy(writer, file); err != nil {
		writer.Close()
		return apperrors.Wrap(apperrors.ErrTypeExternalIO,
			fmt.Sprintf("upload object %s", key), err)
	}
	if err := writer.Close(); err != nil {
		return apperrors.Wrap(apperrors.ErrTypeExternalIO,
			fmt.Sprintf("finalize object %s", key), err)
	}
	return nil
}

func (c *Client) key(object string) string {
	if c.prefix == "" {
		return object
	}
	return path.Join(c.prefix, object)
}

// Disabled is the no-op ObjectStore used for local-only runs. Fetches
// succeed when the local file already exists so a pre-populated data
// directory keeps working without a bucket.
type Disabled struct{}

// Enabled implements ObjectStore.
func (Disabled) Enabled() bool { return false }

// Close implements ObjectStore.
func (Disabled) Close() error { return nil }

// FetchObject implements ObjectStore.
func (Disabled) FetchObject(_ context.Context, object, localPath string) error {
	if _, err := os.Stat(localPath); err != nil {
		return apperrors.Wrap(apperrors.ErrTypeExternalIO,
			fmt.Sprintf("remote storage disabled and local file missing for %s", object), err)
	}
	return nil
}

// StoreObject implements ObjectStore.
func (Disabled) StoreObject(context.Context, string, string) error { return nil }
