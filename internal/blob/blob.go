// Package blob stores original and derived image bytes under opaque keys.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"photocurate/internal/models"
)

var ErrNotFound = errors.New("blob not found")

type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

func OriginalKey(photoID string) string {
	return path.Join("originals", photoID+".jpg")
}

func VariationKey(photoID, variationID string) string {
	return path.Join("variations", photoID, variationID+".jpg")
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	if key == "" || key == "." {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return key, nil
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg models.BlobConfig) (Store, error) {
	const op = "blob.Open"

	switch cfg.Driver {
	case "", "local":
		s, err := NewLocal(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, nil
	case "gcs":
		s, err := NewGCS(ctx, cfg.Bucket, cfg.Prefix)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%s: unknown driver %q", op, cfg.Driver)
	}
}
