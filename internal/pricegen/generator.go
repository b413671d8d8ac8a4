package pricegen

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"paper-exchange/internal/model"
)

// ErrUnknownInstrument is returned when a symbol is not in the static set.
var ErrUnknownInstrument = errors.New("unknown instrument")

// Volatility is the per-hour bound of the uniform price move, ±10%.
const Volatility = 0.1

// MaxDays bounds the day window a caller may request. The loop below does
// work per hour bucket, so an unbounded window is an easy DoS.
const MaxDays = 365

// KST is the exchange clock. All hour buckets are computed in UTC+9.
var KST = time.FixedZone("KST", 9*60*60)

// Instruments 静态标的配置 (初始价格, 固定种子)
var Instruments = map[string]model.Instrument{
	"hyungi": {Symbol: "hyungi", Base: 100, Seed: 777},
	"kkong":  {Symbol: "kkong", Base: 100, Seed: 888},
}

// Lookup resolves a symbol against the static instrument set.
func Lookup(symbol string) (model.Instrument, error) {
	inst, ok := Instruments[symbol]
	if !ok {
		return model.Instrument{}, ErrUnknownInstrument
	}
	return inst, nil
}

// BucketSeed derives the deterministic PRNG seed for one hour bucket of one
// instrument: the bucket's YYYYMMDDHH digits in KST plus the instrument's
// fixed seed. The same bucket and instrument always yield the same seed.
func BucketSeed(bucket time.Time, inst model.Instrument) int64 {
	t := bucket.In(KST)
	digits := int64(t.Year())*1000000 +
		int64(t.Month())*10000 +
		int64(t.Day())*100 +
		int64(t.Hour())
	return digits + inst.Seed
}

// Generate produces the hourly series for one instrument: one point per
// hour from now−days (truncated to the top of the hour) through now
// inclusive, days*24+1 points in total. Each bucket gets a fresh PRNG
// seeded from BucketSeed, so repeated calls within the same wall-clock
// hour are bit-identical and safe to cache.
func Generate(inst model.Instrument, days int, now time.Time) []model.PricePoint {
	if days <= 0 {
		days = 7
	}
	if days > MaxDays {
		days = MaxDays
	}

	now = now.In(KST)
	start := now.Add(-time.Duration(days) * 24 * time.Hour).Truncate(time.Hour)

	series := make([]model.PricePoint, 0, days*24+1)
	price := float64(inst.Base)

	for step := start; !step.After(now); step = step.Add(time.Hour) {
		rng := rand.New(rand.NewSource(BucketSeed(step, inst)))
		draw := -Volatility + rng.Float64()*2*Volatility
		price = price * (1 + draw)

		rounded := int64(math.Round(price))
		if rounded < 0 {
			rounded = 0
		}
		series = append(series, model.PricePoint{Bucket: step, Price: rounded})
	}

	return series
}
