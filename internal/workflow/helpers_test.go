package workflow

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"photocurate/internal/blob"
	"photocurate/internal/caption"
	"photocurate/internal/models"
	"photocurate/internal/publish"
	"photocurate/internal/storage"
	"photocurate/internal/variation"
)

// recordingQueue keeps jobs so tests decide when generation runs.
type recordingQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *recordingQueue) Enqueue(_ context.Context, photoID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, photoID)
	return nil
}

func (q *recordingQueue) jobs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

// recordingCaptions answers with a fixed caption and remembers what it saw.
type recordingCaptions struct {
	mu     sync.Mutex
	images [][]byte
}

func (c *recordingCaptions) Caption(_ context.Context, image []byte) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = append(c.images, image)
	return caption.Sanitize("Soft light over the old harbor #travel")
}

type testEnv struct {
	ctrl     *Controller
	store    *storage.Storage
	blobs    *blob.Local
	root     string
	queue    *recordingQueue
	captions *recordingCaptions
}

func newTestEnv(t *testing.T, cfg models.WorkflowConfig, opts ...func(*Deps)) *testEnv {
	t.Helper()

	root := t.TempDir()
	blobs, err := blob.NewLocal(root)
	require.NoError(t, err)

	store := storage.New(storage.NewMemory())
	logger := zap.NewNop()
	env := &testEnv{
		store:    store,
		blobs:    blobs,
		root:     root,
		queue:    &recordingQueue{},
		captions: &recordingCaptions{},
	}

	deps := Deps{
		Store:     store,
		Blobs:     blobs,
		Generator: variation.NewGenerator(blobs, store.Variations, logger),
		Queue:     env.queue,
		Captions:  env.captions,
		Publisher: publish.NewMock("mock", logger),
		Logger:    logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.ctrl = NewController(cfg, deps)
	return env
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 120, G: 140, B: 160, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

// readyPhoto uploads a JPEG and runs its generation job inline.
func (e *testEnv) readyPhoto(t *testing.T) models.Photo {
	t.Helper()
	ctx := context.Background()

	photo, err := e.ctrl.Upload(ctx, testJPEG(t, 100, 100))
	require.NoError(t, err)
	require.NoError(t, e.ctrl.HandleGeneration(ctx, photo.ID))

	photo, err = e.store.Photos.Get(ctx, photo.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusVariationsReady, photo.Status)
	return photo
}

func (e *testEnv) status(t *testing.T, photoID string) models.Status {
	t.Helper()
	photo, err := e.store.Photos.Get(context.Background(), photoID)
	require.NoError(t, err)
	return photo.Status
}

func (e *testEnv) variations(t *testing.T, photoID string) []models.Variation {
	t.Helper()
	vars, err := e.ctrl.variations(context.Background(), photoID)
	require.NoError(t, err)
	sortByIntensity(vars)
	return vars
}

func (e *testEnv) variationFiles(t *testing.T, photoID string) int {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(e.root, "variations", photoID))
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	n := 0
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".jpg") {
			n++
		}
	}
	return n
}

func intensities(vars []models.Variation) []int {
	out := make([]int, len(vars))
	for i, v := range vars {
		out[i] = v.Intensity
	}
	return out
}

func variationIDs(vars []models.Variation) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.ID
	}
	return out
}

func byIntensity(vars []models.Variation, level int) models.Variation {
	for _, v := range vars {
		if v.Intensity == level {
			return v
		}
	}
	return models.Variation{}
}
