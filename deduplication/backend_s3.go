package deduplication

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lgadye/warn-monitor/common"
)

// ObjectStore is the subset of common.S3 the S3 backend uses.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
}

// S3Backend stores the state JSON as a single S3 object. PutObject replaces
// the object in one step, which gives the same all-or-nothing guarantee as
// the local rename.
type S3Backend struct {
	store  ObjectStore
	bucket string
	key    string
}

// NewS3Backend returns a backend for s3://bucket/key.
func NewS3Backend(store ObjectStore, bucket, key string) *S3Backend {
	return &S3Backend{store: store, bucket: bucket, key: key}
}

func (b *S3Backend) Name() string { return fmt.Sprintf("s3://%s/%s", b.bucket, b.key) }

func (b *S3Backend) Read(ctx context.Context) (*StateRecord, error) {
	body, err := b.store.Get(ctx, b.bucket, b.key)
	if err != nil {
		if common.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get state object: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read state object: %w", err)
	}

	var rec StateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode state object: %w", err)
	}
	return &rec, nil
}

func (b *S3Backend) Write(ctx context.Context, rec *StateRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	if err := b.store.Put(ctx, b.bucket, b.key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("put state object: %w", err)
	}
	return nil
}
