// Package objectstore abstracts the durable bucket uploaded assets land in.
package objectstore

import (
	"context"
	"fmt"
	"strings"
)

// Store is the narrow contract the upload pipeline needs from object storage.
type Store interface {
	// Put copies the staged local file into the bucket under key. A failed
	// Put means the request must fail; no public URL is valid for the key.
	Put(ctx context.Context, localPath, key string) error
	// Fetch copies the object at key back to a local path.
	Fetch(ctx context.Context, key, localPath string) error
	// PublicURL derives the object's retrieval URL from bucket and key.
	// It is computed, never queried from the store.
	PublicURL(key string) string
}

// PublicURL builds the virtual-hosted style URL https://{bucket}.{domain}/{key}.
func PublicURL(bucket, domain, key string) string {
	return fmt.Sprintf("https://%s.%s/%s", bucket, domain, key)
}

// KeyFromURL recovers the object key from a URL produced by PublicURL.
// It returns "" when the URL does not belong to the bucket/domain pair.
func KeyFromURL(bucket, domain, url string) string {
	prefix := fmt.Sprintf("https://%s.%s/", bucket, domain)
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}
