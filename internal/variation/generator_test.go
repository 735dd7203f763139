package variation

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"photocurate/internal/blob"
	"photocurate/internal/models"
	"photocurate/internal/storage"
)

// flakyBlobs fails the nth variation Put.
type flakyBlobs struct {
	blob.Store
	failAt int32
	puts   atomic.Int32
}

func (f *flakyBlobs) Put(ctx context.Context, key string, data []byte) error {
	if f.puts.Add(1) == f.failAt {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, key, data)
}

func newTestGenerator(t *testing.T, wrap func(blob.Store) blob.Store, opts ...Option) (*Generator, *storage.Storage, string) {
	t.Helper()

	root := t.TempDir()
	local, err := blob.NewLocal(root)
	require.NoError(t, err)

	var blobs blob.Store = local
	if wrap != nil {
		blobs = wrap(local)
	}
	store := storage.New(storage.NewMemory())
	opts = append([]Option{WithWorkers(2)}, opts...)
	return NewGenerator(blobs, store.Variations, zap.NewNop(), opts...), store, root
}

func sourceImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 6), G: uint8(y * 8), B: 120, A: 255})
		}
	}
	return img
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".jpg") {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestGenerate_ProducesFiveLevels(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	g, store, root := newTestGenerator(t, nil, WithClock(func() time.Time { return stamp }))
	ctx := context.Background()

	vars, err := g.Generate(ctx, "photo-1", sourceImage())
	require.NoError(t, err)
	require.Len(t, vars, 5)

	ids := make(map[string]bool)
	for i, v := range vars {
		assert.Equal(t, i+1, v.Intensity)
		assert.Equal(t, Presets[i].Label, v.Label)
		assert.Equal(t, "photo-1", v.PhotoID)
		assert.Equal(t, AdjustmentFor(v.Intensity), v.Adjustment)
		assert.Equal(t, blob.VariationKey("photo-1", v.ID), v.ImageRef)
		assert.Equal(t, stamp.UTC(), v.CreatedAt)
		ids[v.ID] = true
	}
	assert.Len(t, ids, 5)

	stored, err := store.Variations.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, stored, 5)
	assert.Equal(t, 5, countFiles(t, filepath.Join(root, "variations")))
}

func TestGenerate_OutputIsJPEG(t *testing.T) {
	g, _, root := newTestGenerator(t, nil)

	vars, err := g.Generate(context.Background(), "photo-1", sourceImage())
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(root, filepath.FromSlash(vars[0].ImageRef)))
	require.NoError(t, err)
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestGenerate_FailureRemovesPartialSet(t *testing.T) {
	g, store, root := newTestGenerator(t, func(s blob.Store) blob.Store {
		return &flakyBlobs{Store: s, failAt: 3}
	})
	ctx := context.Background()

	vars, err := g.Generate(ctx, "photo-1", sourceImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Nil(t, vars)

	stored, err := store.Variations.List(ctx, func(v models.Variation) bool { return v.PhotoID == "photo-1" })
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Equal(t, 0, countFiles(t, filepath.Join(root, "variations")))
}

func TestGenerate_FreshIDsEachCall(t *testing.T) {
	g, _, _ := newTestGenerator(t, nil)
	ctx := context.Background()

	first, err := g.Generate(ctx, "photo-1", sourceImage())
	require.NoError(t, err)
	second, err := g.Generate(ctx, "photo-1", sourceImage())
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, v := range first {
		seen[v.ID] = true
	}
	for _, v := range second {
		assert.False(t, seen[v.ID], "id %s reused", v.ID)
	}
}
