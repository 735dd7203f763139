package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

const memoryTopic = "photo.variations.generate"

// Memory is an in-process queue on a watermill GoChannel. It subscribes at
// construction, so jobs enqueued before Run starts are kept, not dropped.
type Memory struct {
	pubSub   *gochannel.GoChannel
	messages <-chan *message.Message
	cancel   context.CancelFunc
	workers  int
	logger   *zap.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewMemory(workers int, logger *zap.Logger) (*Memory, error) {
	const op = "queue.NewMemory"

	if workers <= 0 {
		workers = 2
	}
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, watermill.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := pubSub.Subscribe(ctx, memoryTopic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Memory{
		pubSub:   pubSub,
		messages: messages,
		cancel:   cancel,
		workers:  workers,
		logger:   logger.Named("queue"),
	}, nil
}

func (m *Memory) Enqueue(_ context.Context, photoID string) error {
	const op = "queue.Memory.Enqueue"

	msg := message.NewMessage(watermill.NewUUID(), []byte(photoID))
	if err := m.pubSub.Publish(memoryTopic, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Run waits for a free worker slot before taking the next message, so a
// cancelled Run leaves undelivered jobs on the channel for the next Run.
// Messages are acked on receipt (the GoChannel holds back the next delivery
// until then). Jobs already started are not cancelled with ctx; Run waits for
// them before returning.
func (m *Memory) Run(ctx context.Context, handler Handler) error {
	slots := make(chan struct{}, m.workers)
	jobCtx := context.WithoutCancel(ctx)
	defer m.wg.Wait()

	for {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			return nil
		}

		select {
		case <-ctx.Done():
			<-slots
			return nil
		case msg, ok := <-m.messages:
			if !ok {
				<-slots
				return nil
			}
			msg.Ack()
			photoID := string(msg.Payload)

			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				defer func() { <-slots }()
				if err := handler(jobCtx, photoID); err != nil {
					m.logger.Error("job failed", zap.String("photo_id", photoID), zap.Error(err))
				}
			}()
		}
	}
}

func (m *Memory) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.cancel()
		err = m.pubSub.Close()
	})
	return err
}
