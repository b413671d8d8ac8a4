package engine

import (
	"errors"
	"fmt"
	"time"

	"paper-exchange/internal/model"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSide          = errors.New("side must be buy or sell")
	ErrInvalidAmount        = errors.New("amount must be a positive integer")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrInsufficientFunds    = errors.New("insufficient funds")
)

// Apply executes one exchange operation against an account snapshot and
// returns the mutated copy plus the trade record. The input account is
// never modified, so a validation failure leaves no partial state behind.
//
// Settlement uses refPrice, the evaluated price the caller last displayed,
// not a freshly generated one. Callers own that staleness window.
func Apply(acct model.Account, inst model.Instrument, amount int64, side model.Side, refPrice int64, now time.Time) (model.Account, model.TradeEvent, error) {
	if !side.Valid() {
		return acct, model.TradeEvent{}, ErrInvalidSide
	}
	if amount <= 0 {
		return acct, model.TradeEvent{}, ErrInvalidAmount
	}

	cost := decimal.NewFromInt(amount).Mul(decimal.NewFromInt(refPrice))

	if side == model.SideSell && acct.Holdings[inst.Symbol]-amount < 0 {
		return acct, model.TradeEvent{}, fmt.Errorf("%w: have %d %s, sell %d",
			ErrInsufficientHoldings, acct.Holdings[inst.Symbol], inst.Symbol, amount)
	}
	if side == model.SideBuy && acct.Cash.LessThan(cost) {
		return acct, model.TradeEvent{}, fmt.Errorf("%w: have %s, need %s",
			ErrInsufficientFunds, acct.Cash, cost)
	}

	next := acct.Clone()
	if side == model.SideBuy {
		next.Cash = next.Cash.Sub(cost)
		next.Holdings[inst.Symbol] += amount
	} else {
		next.Cash = next.Cash.Add(cost)
		next.Holdings[inst.Symbol] -= amount
	}
	next.Version++

	event := model.TradeEvent{
		Account:   acct.Name,
		Symbol:    inst.Symbol,
		Side:      side,
		Amount:    amount,
		Price:     refPrice,
		Cost:      cost,
		Timestamp: now,
	}
	return next, event, nil
}
