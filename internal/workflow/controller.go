// Package workflow drives a photo through
// pending -> variations_ready -> approved -> published.
package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"photocurate/internal/blob"
	"photocurate/internal/caption"
	"photocurate/internal/card"
	"photocurate/internal/models"
	"photocurate/internal/publish"
	"photocurate/internal/storage"
	"photocurate/internal/tracing"
	"photocurate/internal/variation"
)

const (
	OriginalQuality = 95

	// DefaultCaption is published when the caller sends no caption.
	DefaultCaption = "Fresh from the edit desk."

	previewIntensity = variation.DefaultIntensity
)

var tracer = otel.Tracer("photocurate/workflow")

// Generator renders and persists the variation set of one photo.
type Generator interface {
	Generate(ctx context.Context, photoID string, src image.Image) ([]models.Variation, error)
}

// Enqueuer schedules background generation for a photo.
type Enqueuer interface {
	Enqueue(ctx context.Context, photoID string) error
}

type Deps struct {
	Store     *storage.Storage
	Blobs     blob.Store
	Generator Generator
	Queue     Enqueuer
	Captions  caption.Provider
	Publisher publish.Provider
	Logger    *zap.Logger
}

type Controller struct {
	store     *storage.Storage
	blobs     blob.Store
	generator Generator
	queue     Enqueuer
	captions  caption.Provider
	publisher publish.Provider
	logger    *zap.Logger
	validate  *validator.Validate
	locks     *keyedMutex
	now       func() time.Time

	requireApproval bool
	maxPixels       int64
}

func NewController(cfg models.WorkflowConfig, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxPixels := cfg.MaxUploadPixels
	if maxPixels <= 0 {
		maxPixels = models.DefaultMaxUploadPixels
	}
	return &Controller{
		store:           deps.Store,
		blobs:           deps.Blobs,
		generator:       deps.Generator,
		queue:           deps.Queue,
		captions:        deps.Captions,
		publisher:       deps.Publisher,
		logger:          logger.Named("workflow"),
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		locks:           newKeyedMutex(),
		now:             time.Now,
		requireApproval: cfg.RequireApproval,
		maxPixels:       maxPixels,
	}
}

// Upload stores a JPEG as a new pending photo and schedules its variations.
// Nothing is written for input that is not a decodable JPEG or whose pixel
// count exceeds the configured limit.
func (c *Controller) Upload(ctx context.Context, data []byte) (models.Photo, error) {
	const op = "workflow.Upload"

	ctx, span := tracer.Start(ctx, "workflow.upload")
	defer span.End()

	dims, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || format != "jpeg" {
		return models.Photo{}, fmt.Errorf("%s: %w", op, ErrInvalidImageFormat)
	}
	if pixels := int64(dims.Width) * int64(dims.Height); pixels > c.maxPixels {
		return models.Photo{}, fmt.Errorf("%s: %w: %dx%d exceeds %d pixels",
			op, ErrInvalidImageFormat, dims.Width, dims.Height, c.maxPixels)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return models.Photo{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidImageFormat, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(OriginalQuality)); err != nil {
		tracing.SetError(span, err)
		return models.Photo{}, fmt.Errorf("%s: encode original: %w", op, err)
	}

	photo := models.Photo{
		ID:        uuid.NewString(),
		Status:    models.StatusPending,
		CreatedAt: c.now().UTC(),
	}
	photo.SourceRef = blob.OriginalKey(photo.ID)
	span.SetAttributes(tracing.PhotoIDKey.String(photo.ID))

	if err := c.blobs.Put(ctx, photo.SourceRef, buf.Bytes()); err != nil {
		tracing.SetError(span, err)
		return models.Photo{}, fmt.Errorf("%s: store original: %w", op, err)
	}
	if err := c.store.Photos.Put(ctx, photo); err != nil {
		if derr := c.blobs.Delete(context.WithoutCancel(ctx), photo.SourceRef); derr != nil {
			c.logger.Warn("remove orphaned original", zap.String("photo_id", photo.ID), zap.Error(derr))
		}
		tracing.SetError(span, err)
		return models.Photo{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.queue.Enqueue(ctx, photo.ID); err != nil {
		c.logger.Error("enqueue generation, photo stays pending until regenerated",
			zap.String("photo_id", photo.ID), zap.Error(err))
	}

	c.logger.Info("photo uploaded", zap.String("photo_id", photo.ID), zap.Int("bytes", len(data)))
	return photo, nil
}

// HandleGeneration is the queue job for a freshly uploaded photo. Photos that
// already left pending (a regenerate got there first) are skipped.
func (c *Controller) HandleGeneration(ctx context.Context, photoID string) error {
	const op = "workflow.HandleGeneration"

	ctx, span := tracer.Start(ctx, "workflow.handle_generation")
	span.SetAttributes(tracing.PhotoIDKey.String(photoID))
	defer span.End()

	unlock := c.locks.Lock(photoID)
	defer unlock()

	photo, err := c.photo(ctx, op, photoID)
	if err != nil {
		tracing.SetError(span, err)
		return err
	}
	if photo.Status != models.StatusPending {
		c.logger.Debug("generation skipped", zap.String("photo_id", photoID), zap.String("status", string(photo.Status)))
		return nil
	}

	if _, err := c.generate(ctx, op, photo); err != nil {
		tracing.SetError(span, err)
		return err
	}

	photo.Status = photo.Status.Advance(models.StatusVariationsReady)
	if err := c.store.Photos.Put(ctx, photo); err != nil {
		tracing.SetError(span, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Regenerate replaces the variation set of a photo and waits for the new
// one. A pending photo moves to variations_ready; later statuses are kept.
func (c *Controller) Regenerate(ctx context.Context, photoID string) ([]models.Variation, error) {
	const op = "workflow.Regenerate"

	ctx, span := tracer.Start(ctx, "workflow.regenerate")
	span.SetAttributes(tracing.PhotoIDKey.String(photoID))
	defer span.End()

	unlock := c.locks.Lock(photoID)
	defer unlock()

	photo, err := c.photo(ctx, op, photoID)
	if err != nil {
		return nil, err
	}

	vars, err := c.generate(ctx, op, photo)
	if err != nil {
		tracing.SetError(span, err)
		return nil, err
	}

	if next := photo.Status.Advance(models.StatusVariationsReady); next != photo.Status {
		photo.Status = next
		if err := c.store.Photos.Put(ctx, photo); err != nil {
			tracing.SetError(span, err)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	c.logger.Info("variations regenerated", zap.String("photo_id", photoID))
	return vars, nil
}

// generate must run under the photo lock. It checks the original before
// touching the current variation set.
func (c *Controller) generate(ctx context.Context, op string, photo models.Photo) ([]models.Variation, error) {
	data, err := c.blobs.Get(ctx, photo.SourceRef)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("%s: original of photo %q: %w", op, photo.ID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: decode original: %w", op, ErrGenerationFailed, err)
	}

	if err := c.clearVariations(ctx, photo.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	vars, err := c.generator.Generate(ctx, photo.ID, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return vars, nil
}

// clearVariations removes every variation of a photo. Missing image files
// are ignored.
func (c *Controller) clearVariations(ctx context.Context, photoID string) error {
	existing, err := c.variations(ctx, photoID)
	if err != nil {
		return err
	}
	for _, v := range existing {
		if err := c.blobs.Delete(ctx, v.ImageRef); err != nil && !errors.Is(err, blob.ErrNotFound) {
			return err
		}
		if err := c.store.Variations.Delete(ctx, v.ID); err != nil {
			return err
		}
	}
	return nil
}

type ApproveInput struct {
	PhotoID     string `json:"photo_id" validate:"required"`
	VariationID string `json:"variation_id" validate:"required"`
	Feedback    string `json:"feedback"`
}

// Approve appends an approval for a variation of the photo. Approving again
// adds another record.
func (c *Controller) Approve(ctx context.Context, in ApproveInput) (models.Approval, models.Photo, error) {
	const op = "workflow.Approve"

	in.PhotoID = strings.TrimSpace(in.PhotoID)
	in.VariationID = strings.TrimSpace(in.VariationID)
	if err := c.validate.Struct(in); err != nil {
		return models.Approval{}, models.Photo{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidRequest, err)
	}

	unlock := c.locks.Lock(in.PhotoID)
	defer unlock()

	photo, err := c.photo(ctx, op, in.PhotoID)
	if err != nil {
		return models.Approval{}, models.Photo{}, err
	}
	v, err := c.store.Variations.Get(ctx, in.VariationID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && v.PhotoID != photo.ID) {
		return models.Approval{}, models.Photo{}, fmt.Errorf("%s: variation %q of photo %q: %w", op, in.VariationID, photo.ID, ErrNotFound)
	}
	if err != nil {
		return models.Approval{}, models.Photo{}, fmt.Errorf("%s: %w", op, err)
	}

	approval := models.Approval{
		ID:          uuid.NewString(),
		PhotoID:     photo.ID,
		VariationID: v.ID,
		Feedback:    strings.TrimSpace(in.Feedback),
		ApprovedAt:  c.now().UTC(),
	}
	if err := c.store.Approvals.Put(ctx, approval); err != nil {
		return models.Approval{}, models.Photo{}, fmt.Errorf("%s: %w", op, err)
	}

	photo.Status = photo.Status.Advance(models.StatusApproved)
	if err := c.store.Photos.Put(ctx, photo); err != nil {
		return models.Approval{}, models.Photo{}, fmt.Errorf("%s: %w", op, err)
	}

	c.logger.Info("variation approved",
		zap.String("photo_id", photo.ID),
		zap.String("variation_id", v.ID),
		zap.Int("intensity", v.Intensity))
	return approval, photo, nil
}

type PreviewResult struct {
	Photo     models.Photo     `json:"photo"`
	Variation models.Variation `json:"variation"`
	Caption   string           `json:"caption"`
}

// Preview captions one variation of the photo: the requested one when it
// belongs to the photo, otherwise the medium intensity, otherwise the first
// stored. It writes nothing.
func (c *Controller) Preview(ctx context.Context, photoID, variationID string) (PreviewResult, error) {
	const op = "workflow.Preview"

	ctx, span := tracer.Start(ctx, "workflow.preview")
	span.SetAttributes(tracing.PhotoIDKey.String(photoID))
	defer span.End()

	photo, v, data, err := c.selectVariation(ctx, op, photoID, variationID)
	if err != nil {
		return PreviewResult{}, err
	}
	span.SetAttributes(tracing.VariationIDKey.String(v.ID))

	text := caption.Fallback
	if data != nil {
		text = c.captions.Caption(ctx, data)
	}
	return PreviewResult{Photo: photo, Variation: v, Caption: text}, nil
}

// PreviewCard renders the preview as a JPEG post card.
func (c *Controller) PreviewCard(ctx context.Context, photoID, variationID string) ([]byte, error) {
	const op = "workflow.PreviewCard"

	photo, v, data, err := c.selectVariation(ctx, op, photoID, variationID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%s: image of variation %q: %w", op, v.ID, ErrNotFound)
	}
	text := c.captions.Caption(ctx, data)

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rendered, err := card.Render(img, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, rendered, imaging.JPEG, imaging.JPEGQuality(variation.OutputQuality)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.logger.Debug("preview card rendered", zap.String("photo_id", photo.ID), zap.String("variation_id", v.ID))
	return buf.Bytes(), nil
}

// selectVariation returns nil image bytes when the variation record exists
// but its file is gone.
func (c *Controller) selectVariation(ctx context.Context, op, photoID, variationID string) (models.Photo, models.Variation, []byte, error) {
	photo, err := c.photo(ctx, op, photoID)
	if err != nil {
		return models.Photo{}, models.Variation{}, nil, err
	}
	vars, err := c.variations(ctx, photo.ID)
	if err != nil {
		return models.Photo{}, models.Variation{}, nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(vars) == 0 {
		return models.Photo{}, models.Variation{}, nil, fmt.Errorf("%s: photo %q has no variations: %w", op, photo.ID, ErrNotFound)
	}

	v := pick(vars, variationID)
	data, err := c.blobs.Get(ctx, v.ImageRef)
	if err != nil {
		c.logger.Warn("variation image unavailable", zap.String("variation_id", v.ID), zap.Error(err))
		data = nil
	}
	return photo, v, data, nil
}

func pick(vars []models.Variation, variationID string) models.Variation {
	if variationID != "" {
		for _, v := range vars {
			if v.ID == variationID {
				return v
			}
		}
	}
	for _, v := range vars {
		if v.Intensity == previewIntensity {
			return v
		}
	}
	return vars[0]
}

type PublishInput struct {
	PhotoID string `json:"photo_id" validate:"required"`
	Caption string `json:"caption"`
}

// Publish posts the photo and records the publication.
func (c *Controller) Publish(ctx context.Context, in PublishInput) (models.Publication, error) {
	const op = "workflow.Publish"

	ctx, span := tracer.Start(ctx, "workflow.publish")
	defer span.End()

	in.PhotoID = strings.TrimSpace(in.PhotoID)
	if err := c.validate.Struct(in); err != nil {
		return models.Publication{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidRequest, err)
	}
	span.SetAttributes(tracing.PhotoIDKey.String(in.PhotoID))

	unlock := c.locks.Lock(in.PhotoID)
	defer unlock()

	photo, err := c.photo(ctx, op, in.PhotoID)
	if err != nil {
		return models.Publication{}, err
	}
	if c.requireApproval && !photo.Status.AtLeast(models.StatusApproved) {
		return models.Publication{}, fmt.Errorf("%s: photo %q is %s: %w", op, photo.ID, photo.Status, ErrNotApproved)
	}

	text := strings.TrimSpace(in.Caption)
	if text == "" {
		text = DefaultCaption
	}

	pub, err := c.publisher.Publish(ctx, photo.ID, text)
	if err != nil {
		tracing.SetError(span, err)
		return models.Publication{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := c.store.Publications.Put(ctx, pub); err != nil {
		return models.Publication{}, fmt.Errorf("%s: %w", op, err)
	}

	photo.Status = photo.Status.Advance(models.StatusPublished)
	if err := c.store.Photos.Put(ctx, photo); err != nil {
		return models.Publication{}, fmt.Errorf("%s: %w", op, err)
	}
	return pub, nil
}

func (c *Controller) photo(ctx context.Context, op, id string) (models.Photo, error) {
	photo, err := c.store.Photos.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Photo{}, fmt.Errorf("%s: photo %q: %w", op, id, ErrNotFound)
	}
	if err != nil {
		return models.Photo{}, fmt.Errorf("%s: %w", op, err)
	}
	return photo, nil
}

// variations returns the photo's variations in store order.
func (c *Controller) variations(ctx context.Context, photoID string) ([]models.Variation, error) {
	return c.store.Variations.List(ctx, func(v models.Variation) bool {
		return v.PhotoID == photoID
	})
}
