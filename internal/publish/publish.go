// Package publish hands an approved photo and its caption to a social network.
package publish

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"photocurate/internal/models"
)

const StatusPublished = "published"

type Provider interface {
	Publish(ctx context.Context, photoID, caption string) (models.Publication, error)
}

// Mock pretends to post and always succeeds.
type Mock struct {
	network string
	logger  *zap.Logger
	now     func() time.Time
}

func NewMock(network string, logger *zap.Logger) *Mock {
	if network == "" {
		network = "mock"
	}
	return &Mock{network: network, logger: logger.Named("publish"), now: time.Now}
}

func (m *Mock) Publish(_ context.Context, photoID, caption string) (models.Publication, error) {
	pub := models.Publication{
		ID:             uuid.NewString(),
		PhotoID:        photoID,
		Caption:        caption,
		ExternalPostID: m.network + "_" + uuid.NewString(),
		PublishedAt:    m.now().UTC(),
		Status:         StatusPublished,
	}
	m.logger.Info("post published",
		zap.String("photo_id", photoID),
		zap.String("network", m.network),
		zap.String("external_post_id", pub.ExternalPostID))
	return pub, nil
}
