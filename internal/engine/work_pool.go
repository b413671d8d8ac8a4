package engine

import (
	"context"

	"paper-exchange/internal/model"

	"go.uber.org/zap"
)

// WorkerPool fans executed trades out to a sink (NATS publish, trade log)
// off the request path, so a slow broker never blocks an exchange response.
type WorkerPool struct {
	jobQueue    chan model.TradeEvent
	workerCount int
	sink        func(model.TradeEvent)
	logger      *zap.Logger
}

func NewWorkerPool(workerCount int, bufferSize int, sink func(model.TradeEvent), logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		jobQueue:    make(chan model.TradeEvent, bufferSize),
		workerCount: workerCount,
		sink:        sink,
		logger:      logger,
	}
}

func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(ctx, i)
	}
	p.logger.Info("started worker pool", zap.Int("workers", p.workerCount))
}

func (p *WorkerPool) Submit(event model.TradeEvent) {
	select {
	case p.jobQueue <- event:
	default:
		p.logger.Warn("worker pool job queue full, dropping trade event")
	}
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.logger.Debug("worker processing trade event",
				zap.Int("worker_id", id),
				zap.String("account", event.Account),
				zap.String("symbol", event.Symbol),
			)
			p.sink(event)
		}
	}
}
