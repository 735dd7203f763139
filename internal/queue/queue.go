// Package queue carries variation generation jobs from the upload path to
// background workers.
package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"photocurate/internal/models"
)

// Handler processes one job. Its error is logged; jobs are never redelivered.
type Handler func(ctx context.Context, photoID string) error

type Queue interface {
	Enqueue(ctx context.Context, photoID string) error
	// Run consumes jobs until ctx is cancelled.
	Run(ctx context.Context, handler Handler) error
	Close() error
}

func Open(cfg models.QueueConfig, logger *zap.Logger) (Queue, error) {
	const op = "queue.Open"

	switch cfg.Driver {
	case "", "memory":
		q, err := NewMemory(cfg.Workers, logger)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return q, nil
	case "kafka":
		return NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup, logger), nil
	default:
		return nil, fmt.Errorf("%s: unknown driver %q", op, cfg.Driver)
	}
}
