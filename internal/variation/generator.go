package variation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"photocurate/internal/blob"
	"photocurate/internal/models"
	"photocurate/internal/tracing"
)

var ErrGenerationFailed = errors.New("variation generation failed")

const OutputQuality = 90

var tracer = otel.Tracer("photocurate/variation")

// Records is the slice of the record store the generator writes through.
type Records interface {
	Put(ctx context.Context, v models.Variation) error
	Delete(ctx context.Context, id string) error
}

type Generator struct {
	blobs   blob.Store
	records Records
	logger  *zap.Logger
	workers int
	now     func() time.Time
}

type Option func(*Generator)

// WithWorkers bounds how many levels are rendered at once.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func NewGenerator(blobs blob.Store, records Records, logger *zap.Logger, opts ...Option) *Generator {
	g := &Generator{
		blobs:   blobs,
		records: records,
		logger:  logger.Named("variation"),
		workers: len(Presets),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders every preset from src, stores each JPEG and persists
// one Variation per level. Levels run concurrently, so records land in the
// store in no particular order; the returned slice is sorted by intensity.
// If any level fails, whatever this call already wrote is removed and the
// error wraps ErrGenerationFailed.
func (g *Generator) Generate(ctx context.Context, photoID string, src image.Image) ([]models.Variation, error) {
	const op = "variation.Generate"

	ctx, span := tracer.Start(ctx, "variation.generate")
	span.SetAttributes(tracing.PhotoIDKey.String(photoID))
	defer span.End()

	results := make([]*models.Variation, len(Presets))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for i, preset := range Presets {
		eg.Go(func() error {
			v, err := g.render(egCtx, photoID, src, preset)
			if v != nil {
				results[i] = v
			}
			if err != nil {
				return fmt.Errorf("level %d: %w", preset.Level, err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		g.discard(context.WithoutCancel(ctx), results)
		tracing.SetError(span, err)
		g.logger.Error("generation failed", zap.String("photo_id", photoID), zap.Error(err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrGenerationFailed, err)
	}

	out := make([]models.Variation, 0, len(results))
	for _, v := range results {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Intensity < out[j].Intensity })

	g.logger.Info("variations generated", zap.String("photo_id", photoID), zap.Int("count", len(out)))
	return out, nil
}

// render returns the partially built variation alongside an error when its
// blob was stored but the record was not, so discard can clean up the blob.
func (g *Generator) render(ctx context.Context, photoID string, src image.Image, preset Preset) (*models.Variation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	adj := AdjustmentFor(preset.Level)
	img := Apply(src, adj)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(OutputQuality)); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	id := uuid.NewString()
	v := &models.Variation{
		ID:         id,
		PhotoID:    photoID,
		Intensity:  preset.Level,
		Label:      preset.Label,
		ImageRef:   blob.VariationKey(photoID, id),
		Adjustment: adj,
		CreatedAt:  g.now().UTC(),
	}
	if err := g.blobs.Put(ctx, v.ImageRef, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	if err := g.records.Put(ctx, *v); err != nil {
		v.ID = ""
		return v, fmt.Errorf("store record: %w", err)
	}
	return v, nil
}

func (g *Generator) discard(ctx context.Context, written []*models.Variation) {
	for _, v := range written {
		if v == nil {
			continue
		}
		if v.ID != "" {
			if err := g.records.Delete(ctx, v.ID); err != nil {
				g.logger.Warn("discard variation record", zap.String("variation_id", v.ID), zap.Error(err))
			}
		}
		if err := g.blobs.Delete(ctx, v.ImageRef); err != nil && !errors.Is(err, blob.ErrNotFound) {
			g.logger.Warn("discard variation image", zap.String("image_ref", v.ImageRef), zap.Error(err))
		}
	}
}
