package app

import (
	"encoding/json"
	"fmt"

	"paper-exchange/internal/model"

	"go.uber.org/zap"
)

// tradeSink returns the worker-pool sink: every executed trade is
// published to NATS for the live feed and appended to the audit log.
func (a *App) tradeSink() func(model.TradeEvent) {
	return func(event model.TradeEvent) {
		a.TradeLog.Add(event)

		subject := fmt.Sprintf("exchange.trades.%s", event.Symbol)
		data, err := json.Marshal(event)
		if err != nil {
			a.Logger.Error("failed to marshal trade event", zap.Error(err))
			return
		}
		if _, err := a.JS.Publish(subject, data); err != nil {
			a.Logger.Error("failed to publish to NATS", zap.Error(err))
		}
	}
}
