package uploads

import (
	"context"
	"io"
	"time"
)

// StorageDriver is the binary storage behind evidence attachments.
type StorageDriver interface {
	// Save writes the content under the given key.
	Save(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get streams the content back along with its content type.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes the content.
	Delete(ctx context.Context, key string) error

	// GenerateURL returns a URL the content can be fetched from.
	GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
