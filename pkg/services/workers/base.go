package workers

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"stand-resolver/pkg/logger"
)

const (
	fetchBatch      = 10
	fetchMaxWait    = 2 * time.Second
	fetchRetryDelay = time.Second
)

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// MessageHandler processes one message. A returned error naks the message
// so it is redelivered, up to the consumer's MaxDeliver.
type MessageHandler func(ctx context.Context, msg *nats.Msg) error

type BaseWorker struct {
	name     string
	js       nats.JetStreamContext
	consumer string
	stream   string
	subject  string
	log      *zap.Logger

	// retryDelay is the pause after a failed fetch.
	retryDelay time.Duration

	mu  sync.Mutex
	sub *nats.Subscription
}

func NewBaseWorker(name string, js nats.JetStreamContext, stream, consumer, subject string, log *zap.Logger) *BaseWorker {
	return &BaseWorker{
		name:       name,
		js:         js,
		consumer:   consumer,
		stream:     stream,
		subject:    subject,
		log:        logger.OrNop(log).With(zap.String(logger.FieldWorker, name)),
		retryDelay: fetchRetryDelay,
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

func (w *BaseWorker) Stop() error {
	w.mu.Lock()
	sub := w.sub
	w.mu.Unlock()

	if sub != nil && sub.IsValid() {
		return sub.Drain()
	}
	return nil
}

func (w *BaseWorker) processMessages(ctx context.Context, handler MessageHandler) error {
	sub, err := w.js.PullSubscribe(w.subject, w.consumer,
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.DeliverAll(),
		nats.Bind(w.stream, w.consumer),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to bind consumer %s", w.consumer)
	}
	w.mu.Lock()
	w.sub = sub
	w.mu.Unlock()

	w.log.Info("worker started",
		zap.String("stream", w.stream),
		zap.String("consumer", w.consumer))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping")
			return ctx.Err()
		default:
		}

		msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(fetchMaxWait))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
				return err
			}
			w.log.Warn("error fetching messages", zap.Error(err), zap.Duration("retry_in", w.retryDelay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.retryDelay):
			}
			continue
		}

		for _, msg := range msgs {
			if err := handler(ctx, msg); err != nil {
				w.log.Warn("message handling failed, requesting redelivery",
					zap.String(logger.FieldSubject, msg.Subject), zap.Error(err))
				if nakErr := msg.Nak(); nakErr != nil {
					w.log.Error("error rejecting message", zap.Error(nakErr))
				}
				continue
			}
			if err := msg.Ack(); err != nil {
				w.log.Error("error acknowledging message", zap.Error(err))
			}
		}
	}
}
