package quote

import (
	"context"
	"testing"
	"time"

	"paper-exchange/internal/model"

	"github.com/stretchr/testify/assert"
)

type stubSeries struct {
	points []model.PricePoint
	err    error
}

func (s stubSeries) Series(symbol string, days int) ([]model.PricePoint, error) {
	return s.points, s.err
}

type stubPop int64

func (p stubPop) Popularity(ctx context.Context, symbol string) (int64, error) {
	return int64(p), nil
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		last       int64
		popularity int64
		want       int64
	}{
		{"no score", 120, 0, 120},
		{"positive score", 120, 3, 135},
		{"negative score", 120, -10, 70},
		{"floored at zero", 20, -10, 0},
		{"zero price", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.last, tt.popularity))
		})
	}
}

func TestQuoteDelta(t *testing.T) {
	now := time.Now()
	src := stubSeries{points: []model.PricePoint{
		{Bucket: now.Add(-time.Hour), Price: 110},
		{Bucket: now, Price: 100},
	}}

	q, err := NewEvaluator(src, stubPop(4), 7).Quote(context.Background(), "hyungi")
	assert.NoError(t, err)

	assert.Equal(t, int64(100), q.LastPrice)
	assert.Equal(t, int64(120), q.Evaluated)
	// delta compares the evaluated price against the previous raw close
	assert.Equal(t, int64(10), q.Delta)
}

func TestQuoteSinglePoint(t *testing.T) {
	src := stubSeries{points: []model.PricePoint{{Bucket: time.Now(), Price: 100}}}

	q, err := NewEvaluator(src, stubPop(0), 7).Quote(context.Background(), "hyungi")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), q.Delta)
}
