package objectstore

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"cloud.google.com/go/storage"

	"clipscribe/internal/config"
)

// GCS implements Store over a Google Cloud Storage bucket.
type GCS struct {
	bucket  *storage.BucketHandle
	name    string
	domain  string
	timeout time.Duration
}

// NewGCS connects the storage client and binds it to the configured bucket.
func NewGCS(ctx context.Context, cfg config.ObjectStoreConfig) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GCS{
		bucket:  client.Bucket(cfg.Bucket),
		name:    cfg.Bucket,
		domain:  cfg.PublicDomain,
		timeout: timeout,
	}, nil
}

// Put uploads the staged file under key. A failed transfer is retried once
// before the error is surfaced.
func (g *GCS) Put(ctx context.Context, localPath, key string) error {
	err := g.putOnce(ctx, localPath, key)
	if err == nil || ctx.Err() != nil {
		return err
	}
	log.Printf("object store put %s failed, retrying once: %v", key, err)
	return g.putOnce(ctx, localPath, key)
}

func (g *GCS) putOnce(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	w := g.bucket.Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s: %w", key, err)
	}
	return nil
}

// Fetch downloads the object at key to localPath.
func (g *GCS) Fetch(ctx context.Context, key, localPath string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("open object %s: %w", key, err)
	}
	defer r.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("download object %s: %w", key, err)
	}
	return nil
}

func (g *GCS) PublicURL(key string) string {
	return PublicURL(g.name, g.domain, key)
}
