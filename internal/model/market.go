package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is one of the fixed tradeable symbols. The set is static;
// users cannot list new instruments.
type Instrument struct {
	Symbol string `json:"symbol"`
	Base   int64  `json:"base"` // starting price of the generated series
	Seed   int64  `json:"seed"` // mixed into every hour bucket's PRNG seed
}

// PricePoint is one hourly sample of a generated series.
type PricePoint struct {
	Bucket time.Time `json:"t"` // top of the hour, KST
	Price  int64     `json:"p"` // rounded display price
}

// Quote is the evaluated price shown on the dashboard and used to settle
// trades: series close plus the popularity adjustment, floored at zero.
type Quote struct {
	Symbol     string    `json:"symbol"`
	LastPrice  int64     `json:"last_price"`
	Popularity int64     `json:"popularity"`
	Evaluated  int64     `json:"evaluated"`
	Delta      int64     `json:"delta"` // vs previous hour's raw close
	Timestamp  time.Time `json:"ts"`
}

// Side of an exchange request.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is one of the two accepted sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TradeEvent is an executed trade, published to NATS and appended to the
// trade log.
type TradeEvent struct {
	Account   string          `json:"account" db:"account"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Side      Side            `json:"side" db:"side"`
	Amount    int64           `json:"amount" db:"amount"`
	Price     int64           `json:"price" db:"price"`
	Cost      decimal.Decimal `json:"cost" db:"cost"`
	Timestamp time.Time       `json:"ts" db:"time"`
}
