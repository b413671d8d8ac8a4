package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"paper-exchange/internal/engine"
	"paper-exchange/internal/infrastructure"
	"paper-exchange/internal/ledger"
	"paper-exchange/internal/model"
	"paper-exchange/internal/pricegen"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Ledger is the slice of the account store the handlers need.
type Ledger interface {
	Authenticate(ctx context.Context, name, password string) (model.Account, error)
	Exchange(ctx context.Context, name, symbol string, amount int64, side model.Side, refPrice int64) (model.Account, model.TradeEvent, error)
	Snapshot(ctx context.Context) ([]model.Account, error)
}

// SeriesSource yields generated hourly price series.
type SeriesSource interface {
	Series(symbol string, days int) ([]model.PricePoint, error)
}

// Quoter yields the evaluated display price.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (model.Quote, error)
}

type Handler struct {
	ledger Ledger
	series SeriesSource
	quoter Quoter
	submit func(model.TradeEvent)
	logger *zap.Logger
}

func NewHandler(l Ledger, series SeriesSource, quoter Quoter, submit func(model.TradeEvent), logger *zap.Logger) *Handler {
	return &Handler{
		ledger: l,
		series: series,
		quoter: quoter,
		submit: submit,
		logger: logger,
	}
}

// NormalizeSymbol lowercases user-supplied symbols to match the static
// instrument identifiers (the ledger columns are lowercase).
func NormalizeSymbol(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Auth Handlers

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acct, err := h.ledger.Authenticate(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		h.authError(c, err)
		return
	}

	c.JSON(http.StatusOK, acct)
}

// Data Handlers

func (h *Handler) GetSeries(c *gin.Context) {
	symbol := NormalizeSymbol(c.Param("symbol"))

	days := 7
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > pricegen.MaxDays {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("days must be between 1 and %d", pricegen.MaxDays),
			})
			return
		}
		days = n
	}

	series, err := h.series.Series(symbol, days)
	if err != nil {
		if errors.Is(err, pricegen.ErrUnknownInstrument) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown instrument: " + symbol})
			return
		}
		h.logger.Error("failed to generate series", zap.String("symbol", symbol), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, series)
}

func (h *Handler) GetQuote(c *gin.Context) {
	symbol := NormalizeSymbol(c.Param("symbol"))

	q, err := h.quoter.Quote(c.Request.Context(), symbol)
	if err != nil {
		if errors.Is(err, pricegen.ErrUnknownInstrument) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown instrument: " + symbol})
			return
		}
		h.logger.Error("failed to build quote", zap.String("symbol", symbol), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, q)
}

func (h *Handler) GetAccounts(c *gin.Context) {
	accounts, err := h.ledger.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to read accounts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, accounts)
}

// Exchange Handler

func (h *Handler) Exchange(c *gin.Context) {
	var req struct {
		Name           string     `json:"name" binding:"required"`
		Password       string     `json:"password" binding:"required"`
		Symbol         string     `json:"symbol" binding:"required"`
		Amount         int64      `json:"amount" binding:"required,min=1"`
		Side           model.Side `json:"side" binding:"required"`
		ReferencePrice int64      `json:"reference_price" binding:"min=0"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.ledger.Authenticate(ctx, req.Name, req.Password); err != nil {
		h.authError(c, err)
		return
	}

	acct, event, err := h.ledger.Exchange(ctx, req.Name, NormalizeSymbol(req.Symbol), req.Amount, req.Side, req.ReferencePrice)
	if err != nil {
		h.exchangeError(c, err)
		return
	}

	if h.submit != nil {
		h.submit(event)
	}

	c.JSON(http.StatusOK, gin.H{"account": acct, "trade": event})
}

func (h *Handler) authError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		infrastructure.TradesRejected.WithLabelValues("not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	case errors.Is(err, ledger.ErrBadCredentials):
		infrastructure.TradesRejected.WithLabelValues("bad_credentials").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong name or password"})
	default:
		h.logger.Error("authentication failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) exchangeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pricegen.ErrUnknownInstrument):
		infrastructure.TradesRejected.WithLabelValues("unknown_instrument").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrInsufficientHoldings):
		infrastructure.TradesRejected.WithLabelValues("insufficient_holdings").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrInsufficientFunds):
		infrastructure.TradesRejected.WithLabelValues("insufficient_funds").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidSide), errors.Is(err, engine.ErrInvalidAmount):
		infrastructure.TradesRejected.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrVersionConflict):
		infrastructure.TradesRejected.WithLabelValues("conflict").Inc()
		c.JSON(http.StatusConflict, gin.H{"error": "account was modified concurrently, retry"})
	case errors.Is(err, ledger.ErrNotFound):
		infrastructure.TradesRejected.WithLabelValues("not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	default:
		h.logger.Error("exchange failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
