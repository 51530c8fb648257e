package objectstore

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore lays buckets out as top-level directories under Root, keys as
// relative paths beneath that. Used for local development and tests; never
// the production path.
type LocalStore struct {
	Root string
}

// NewLocalStore creates a LocalStore rooted at root, creating it if absent.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: mkdir root %s: %w", root, err)
	}
	return &LocalStore{Root: root}, nil
}

func (l *LocalStore) path(bucket, key string) string {
	return filepath.Join(l.Root, bucket, filepath.FromSlash(key))
}

func (l *LocalStore) PutBytes(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	p := l.path(bucket, key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("objectstore: mkdir for %s/%s: %w", bucket, key, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("objectstore: write %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (l *LocalStore) GetBytes(ctx context.Context, bucket, key string) ([]byte, error) {
	data, err := os.ReadFile(l.path(bucket, key))
	if err != nil {
		return nil, fmt.Errorf("objectstore: read %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (l *LocalStore) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := os.Stat(l.path(bucket, key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (l *LocalStore) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectMeta, error) {
	base := filepath.Join(l.Root, bucket)
	var out []ObjectMeta
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, ObjectMeta{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: list %s/%s: %w", bucket, prefix, err)
	}
	return out, nil
}

func (l *LocalStore) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := os.Remove(l.path(bucket, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("objectstore: delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (l *LocalStore) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	src, err := os.Open(l.path(bucket, srcKey))
	if err != nil {
		return fmt.Errorf("objectstore: copy open %s/%s: %w", bucket, srcKey, err)
	}
	defer src.Close()

	dstPath := l.path(bucket, dstKey)
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("objectstore: copy mkdir for %s/%s: %w", bucket, dstKey, err)
	}
	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("objectstore: copy create %s/%s: %w", bucket, dstKey, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("objectstore: copy %s/%s -> %s: %w", bucket, srcKey, dstKey, err)
	}
	return nil
}

// PresignedURL returns a file:// URL; local development has no presigning.
func (l *LocalStore) PresignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	return "file://" + l.path(bucket, key), nil
}
