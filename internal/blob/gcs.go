package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsTimeout = 50 * time.Second

type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS uses application default credentials unless
// GOOGLE_APPLICATION_CREDENTIALS points elsewhere.
func NewGCS(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCS, error) {
	const op = "blob.NewGCS"

	if bucket == "" {
		return nil, fmt.Errorf("%s: empty bucket", op)
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

func (g *GCS) object(key string) (*storage.ObjectHandle, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	return g.client.Bucket(g.bucket).Object(path.Join(g.prefix, key)), nil
}

func (g *GCS) Put(ctx context.Context, key string, data []byte) error {
	const op = "blob.GCS.Put"

	obj, err := g.object(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ctx, cancel := context.WithTimeout(ctx, gcsTimeout)
	defer cancel()

	wc := obj.NewWriter(ctx)
	wc.ContentType = "image/jpeg"
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "blob.GCS.Get"

	obj, err := g.object(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ctx, cancel := context.WithTimeout(ctx, gcsTimeout)
	defer cancel()

	rc, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	const op = "blob.GCS.Delete"

	obj, err := g.object(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err = obj.Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	obj, err := g.object(key)
	if err != nil {
		return false, err
	}
	_, err = obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (g *GCS) Close() error {
	return g.client.Close()
}
