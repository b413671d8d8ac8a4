package storage

import (
	"context"
	"sync"
	"time"

	"paper-exchange/internal/infrastructure"
	"paper-exchange/internal/model"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// TradeLog buffers executed trades and batch-inserts them into the trades
// audit table on a timer. Losing a log row on crash is acceptable; the
// accounts table is the system of record.
type TradeLog struct {
	db       *pgxpool.Pool
	logger   *zap.Logger
	interval time.Duration
	maxBatch int

	mu  sync.Mutex
	buf []model.TradeEvent
}

func NewTradeLog(db *pgxpool.Pool, logger *zap.Logger, interval time.Duration, maxBatch int) *TradeLog {
	return &TradeLog{
		db:       db,
		logger:   logger,
		interval: interval,
		maxBatch: maxBatch,
		buf:      make([]model.TradeEvent, 0, maxBatch),
	}
}

// Add appends one event to the buffer.
func (t *TradeLog) Add(event model.TradeEvent) {
	t.mu.Lock()
	t.buf = append(t.buf, event)
	t.mu.Unlock()
}

// Start runs the flush loop until ctx is cancelled, flushing once more on
// the way out.
func (t *TradeLog) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.flush(context.Background())
			return
		case <-ticker.C:
			t.flush(ctx)
		}
	}
}

// drain swaps the buffer out, capped at maxBatch per call.
func (t *TradeLog) drain() []model.TradeEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.buf) == 0 {
		return nil
	}
	n := len(t.buf)
	if n > t.maxBatch {
		n = t.maxBatch
	}
	out := make([]model.TradeEvent, n)
	copy(out, t.buf[:n])
	t.buf = append(t.buf[:0], t.buf[n:]...)
	return out
}

func (t *TradeLog) flush(ctx context.Context) {
	events := t.drain()
	if len(events) == 0 {
		return
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(
			"INSERT INTO trades (account, symbol, side, amount, price, cost, time) VALUES ($1, $2, $3, $4, $5, $6, $7)",
			e.Account, e.Symbol, string(e.Side), e.Amount, e.Price, e.Cost, e.Timestamp)
	}

	res := t.db.SendBatch(ctx, batch)
	if err := res.Close(); err != nil {
		t.logger.Error("failed to flush trade log", zap.Error(err), zap.Int("events", len(events)))
		return
	}

	infrastructure.DBInsertRate.WithLabelValues("trades").Add(float64(len(events)))
	t.logger.Debug("flushed trade log", zap.Int("events", len(events)))
}
