package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Kafka publishes one message per job keyed by photo id, so every job for
// a photo lands on the same partition and is consumed in order.
type Kafka struct {
	brokers []string
	topic   string
	group   string
	writer  *kafka.Writer
	logger  *zap.Logger
}

func NewKafka(brokers []string, topic, group string, logger *zap.Logger) *Kafka {
	return &Kafka{
		brokers: brokers,
		topic:   topic,
		group:   group,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger.Named("queue"),
	}
}

func (k *Kafka) Enqueue(ctx context.Context, photoID string) error {
	const op = "queue.Kafka.Enqueue"

	err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(photoID),
		Value: []byte(photoID),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (k *Kafka) Run(ctx context.Context, handler Handler) error {
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers: k.brokers,
		Topic:   k.topic,
		GroupID: k.group,
	})
	defer consumer.Close()

	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			k.logger.Error("error reading message", zap.Error(err))
			continue
		}
		photoID := string(msg.Value)
		if err := handler(context.WithoutCancel(ctx), photoID); err != nil {
			k.logger.Error("job failed", zap.String("photo_id", photoID), zap.Error(err))
		}
	}
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
