package model

import (
	"github.com/shopspring/decimal"
)

// Account is one row of the ledger. Cash lives in the WON column and may
// be fractional; holdings are whole shares per instrument. Version is the
// optimistic-concurrency counter bumped on every successful exchange.
type Account struct {
	Name     string           `json:"name" db:"name"`
	Password string           `json:"-" db:"pw"`
	Cash     decimal.Decimal  `json:"cash" db:"won"`
	Holdings map[string]int64 `json:"holdings"`
	Version  int64            `json:"-" db:"version"`
}

// Clone returns a deep copy so the exchange engine can mutate a snapshot
// without touching the caller's value.
func (a Account) Clone() Account {
	h := make(map[string]int64, len(a.Holdings))
	for k, v := range a.Holdings {
		h[k] = v
	}
	a.Holdings = h
	return a
}
