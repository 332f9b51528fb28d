package workers

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stand-resolver/pkg/logger"
	embeddednats "stand-resolver/pkg/services/embedded-nats"
)

type Manager struct {
	workers []Worker
	log     *zap.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewManager builds the pattern learner and the report moderation worker on
// the embedded server's JetStream context.
func NewManager(natsClient *embeddednats.EmbeddedNATS, patterns PatternRecorder, log *zap.Logger) (*Manager, error) {
	if natsClient.Connection() == nil {
		return nil, errors.New("NATS connection not initialized")
	}

	js := natsClient.JetStream()
	if js == nil {
		return nil, errors.New("JetStream not initialized")
	}

	log = logger.OrNop(log).Named("workers")
	return NewManagerWith(log,
		NewPatternWorker(js, patterns, log),
		NewReportWorker(js, log),
	), nil
}

// NewManagerWith supervises an explicit set of workers.
func NewManagerWith(log *zap.Logger, workers ...Worker) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		workers: workers,
		log:     logger.OrNop(log),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (m *Manager) Start() error {
	for _, worker := range m.workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()

			if err := w.Start(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.log.Error("worker failed", zap.String(logger.FieldWorker, w.Name()), zap.Error(err))
			}
			m.log.Info("worker stopped", zap.String(logger.FieldWorker, w.Name()))
		}(worker)
	}

	m.log.Info("workers started", zap.Int("count", len(m.workers)))
	return nil
}

func (m *Manager) Stop() error {
	m.log.Info("stopping workers")

	m.cancel()

	for _, worker := range m.workers {
		if err := worker.Stop(); err != nil {
			m.log.Warn("error stopping worker", zap.String(logger.FieldWorker, worker.Name()), zap.Error(err))
		}
	}

	m.wg.Wait()

	m.log.Info("all workers stopped")
	return nil
}
