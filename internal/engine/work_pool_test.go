package engine

import (
	"context"
	"testing"
	"time"

	"paper-exchange/internal/model"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWorkerPoolDeliversToSink(t *testing.T) {
	got := make(chan model.TradeEvent, 4)
	pool := NewWorkerPool(2, 8, func(e model.TradeEvent) { got <- e }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	pool.Submit(model.TradeEvent{Account: "haeum", Symbol: "hyungi", Side: model.SideBuy, Amount: 1})
	pool.Submit(model.TradeEvent{Account: "haeum", Symbol: "kkong", Side: model.SideSell, Amount: 2})

	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		select {
		case e := <-got:
			seen[e.Symbol] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
	assert.True(t, seen["hyungi"])
	assert.True(t, seen["kkong"])
}

func TestWorkerPoolDropsWhenFull(t *testing.T) {
	// no workers started, so the queue can only drain by dropping
	pool := NewWorkerPool(1, 1, func(model.TradeEvent) {}, zap.NewNop())

	pool.Submit(model.TradeEvent{Account: "a"})
	pool.Submit(model.TradeEvent{Account: "b"}) // must not block

	assert.Equal(t, 1, len(pool.jobQueue))
}
