// Package objectstore is the sole I/O boundary every stage uses to read and
// write bytes, JSON, and presigned URLs. Two backends are
// provided: a local filesystem backend for development, and an S3 backend
// for production, matching the bucket/key addressing scheme the rest of the
// pipeline assumes.
package objectstore

import (
	"context"
	"encoding/json"
	"time"
)

// ObjectMeta describes one stored object without fetching its body.
type ObjectMeta struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// Store is the interface every stage depends on; never a concrete backend.
type Store interface {
	PutBytes(ctx context.Context, bucket, key string, data []byte, contentType string) error
	GetBytes(ctx context.Context, bucket, key string) ([]byte, error)
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectMeta, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error
	PresignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// PutJSON marshals v and stores it as an application/json object.
func PutJSON(ctx context.Context, s Store, bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.PutBytes(ctx, bucket, key, data, "application/json")
}

// GetJSON fetches key and unmarshals it into v.
func GetJSON(ctx context.Context, s Store, bucket, key string, v any) error {
	data, err := s.GetBytes(ctx, bucket, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
