package quote

import (
	"context"
	"time"

	"paper-exchange/internal/model"
)

// PopularityWeight converts an instrument's WON score into a price
// adjustment: evaluated = series close + score*5, never below zero.
const PopularityWeight = 5

// SeriesSource yields the generated hourly series for a symbol.
type SeriesSource interface {
	Series(symbol string, days int) ([]model.PricePoint, error)
}

// PopularitySource yields the instrument's current popularity score.
type PopularitySource interface {
	Popularity(ctx context.Context, symbol string) (int64, error)
}

// Evaluate applies the popularity adjustment to a raw series close.
func Evaluate(lastPrice, popularity int64) int64 {
	v := lastPrice + popularity*PopularityWeight
	if v < 0 {
		return 0
	}
	return v
}

// Evaluator produces the dashboard quote: the latest generated price plus
// the popularity adjustment. The evaluated value is what callers pass back
// as the reference price when they trade.
type Evaluator struct {
	series SeriesSource
	pop    PopularitySource
	days   int
}

func NewEvaluator(series SeriesSource, pop PopularitySource, days int) *Evaluator {
	if days <= 0 {
		days = 7
	}
	return &Evaluator{series: series, pop: pop, days: days}
}

func (e *Evaluator) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	series, err := e.series.Series(symbol, e.days)
	if err != nil {
		return model.Quote{}, err
	}

	popularity, err := e.pop.Popularity(ctx, symbol)
	if err != nil {
		return model.Quote{}, err
	}

	last := series[len(series)-1].Price
	prev := last
	if len(series) > 1 {
		prev = series[len(series)-2].Price
	}

	evaluated := Evaluate(last, popularity)
	return model.Quote{
		Symbol:     symbol,
		LastPrice:  last,
		Popularity: popularity,
		Evaluated:  evaluated,
		Delta:      evaluated - prev,
		Timestamp:  time.Now(),
	}, nil
}
