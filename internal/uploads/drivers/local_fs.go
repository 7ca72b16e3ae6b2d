package drivers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LocalFS stores attachment binaries on local disk, sharded two directory
// levels deep so large evidence stores do not end up in one flat directory.
// The content type is kept in a sidecar file next to the binary.
type LocalFS struct {
	baseDir   string
	publicURL string
}

// NewLocalFS creates the driver, ensuring the base directory exists.
func NewLocalFS(baseDir, publicURL string) (*LocalFS, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create attachment directory: %w", err)
	}
	return &LocalFS{baseDir: baseDir, publicURL: publicURL}, nil
}

func (d *LocalFS) shardedPath(key string) string {
	if len(key) < 4 {
		return filepath.Join(d.baseDir, key)
	}
	return filepath.Join(d.baseDir, key[:2], key[2:4], key)
}

func (d *LocalFS) Save(ctx context.Context, key string, body io.Reader, contentType string) error {
	path := d.shardedPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create shard directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create attachment file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write attachment: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close attachment file: %w", err)
	}

	if err := os.WriteFile(path+".ctype", []byte(contentType), 0o644); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write content type sidecar: %w", err)
	}
	return nil
}

func (d *LocalFS) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	path := d.shardedPath(key)
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}

	contentType := "application/octet-stream"
	if raw, err := os.ReadFile(path + ".ctype"); err == nil {
		contentType = string(raw)
	}
	return f, contentType, nil
}

func (d *LocalFS) Delete(ctx context.Context, key string) error {
	path := d.shardedPath(key)
	os.Remove(path + ".ctype")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *LocalFS) GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if d.publicURL == "" {
		return key, nil
	}
	return d.publicURL + "/" + key, nil
}
