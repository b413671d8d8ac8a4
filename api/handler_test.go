package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paper-exchange/internal/engine"
	"paper-exchange/internal/ledger"
	"paper-exchange/internal/model"
	"paper-exchange/internal/pricegen"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// memLedger backs the handler tests with a single in-memory account,
// reusing the real exchange engine for mutation semantics.
type memLedger struct {
	acct model.Account
}

func (m *memLedger) Authenticate(ctx context.Context, name, password string) (model.Account, error) {
	if name != m.acct.Name {
		return model.Account{}, ledger.ErrNotFound
	}
	if password != m.acct.Password {
		return model.Account{}, ledger.ErrBadCredentials
	}
	return m.acct, nil
}

func (m *memLedger) Exchange(ctx context.Context, name, symbol string, amount int64, side model.Side, refPrice int64) (model.Account, model.TradeEvent, error) {
	if name != m.acct.Name {
		return model.Account{}, model.TradeEvent{}, ledger.ErrNotFound
	}
	inst, err := pricegen.Lookup(symbol)
	if err != nil {
		return model.Account{}, model.TradeEvent{}, err
	}
	next, event, err := engine.Apply(m.acct, inst, amount, side, refPrice, time.Now())
	if err != nil {
		return model.Account{}, model.TradeEvent{}, err
	}
	m.acct = next
	return next, event, nil
}

func (m *memLedger) Snapshot(ctx context.Context) ([]model.Account, error) {
	return []model.Account{m.acct}, nil
}

type fixedSeries struct{}

func (fixedSeries) Series(symbol string, days int) ([]model.PricePoint, error) {
	if _, err := pricegen.Lookup(symbol); err != nil {
		return nil, err
	}
	return []model.PricePoint{{Bucket: time.Now(), Price: 100}}, nil
}

type fixedQuoter struct{}

func (fixedQuoter) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	if _, err := pricegen.Lookup(symbol); err != nil {
		return model.Quote{}, err
	}
	return model.Quote{Symbol: symbol, LastPrice: 100, Evaluated: 100}, nil
}

func newTestRouter(l *memLedger, submitted *[]model.TradeEvent) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewHandler(l, fixedSeries{}, fixedQuoter{}, func(e model.TradeEvent) {
		if submitted != nil {
			*submitted = append(*submitted, e)
		}
	}, zap.NewNop())

	r := gin.New()
	v1 := r.Group("/api/v1")
	{
		v1.POST("/login", h.Login)
		v1.GET("/series/:symbol", h.GetSeries)
		v1.GET("/quote/:symbol", h.GetQuote)
		v1.GET("/accounts", h.GetAccounts)
		v1.POST("/exchange", h.Exchange)
	}
	return r
}

func testAccount() *memLedger {
	return &memLedger{acct: model.Account{
		Name:     "haeum",
		Password: "123456",
		Cash:     decimal.NewFromInt(100),
		Holdings: map[string]int64{"hyungi": 2, "kkong": 0},
	}}
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"HYUNGI", "hyungi"},
		{"hyungi", "hyungi"},
		{" kkong ", "kkong"},
		{"Kkong", "kkong"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeSymbol(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeSymbol(%q) = %q; want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	r := newTestRouter(testAccount(), nil)

	w := doJSON(r, http.MethodPost, "/api/v1/login", gin.H{"name": "haeum", "password": "123456"})
	assert.Equal(t, http.StatusOK, w.Code)

	// wrong password is a credentials failure, not a missing account
	w = doJSON(r, http.MethodPost, "/api/v1/login", gin.H{"name": "haeum", "password": "999999"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/login", gin.H{"name": "ghost", "password": "123456"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSeries(t *testing.T) {
	r := newTestRouter(testAccount(), nil)

	w := doJSON(r, http.MethodGet, "/api/v1/series/hyungi?days=7", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/series/doge", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/series/hyungi?days=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSeriesRejectsOversizedWindow(t *testing.T) {
	r := newTestRouter(testAccount(), nil)

	// an unauthenticated caller must not be able to buy an arbitrarily
	// long generation loop
	w := doJSON(r, http.MethodGet, "/api/v1/series/hyungi?days=2000000000", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/series/hyungi?days=366", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/series/hyungi?days=365", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExchangeBuyInsufficientFunds(t *testing.T) {
	r := newTestRouter(testAccount(), nil)

	// 3 * 50 = 150 > 100
	w := doJSON(r, http.MethodPost, "/api/v1/exchange", gin.H{
		"name": "haeum", "password": "123456",
		"symbol": "hyungi", "amount": 3, "side": "buy", "reference_price": 50,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestExchangeBuyThenSell(t *testing.T) {
	l := testAccount()
	var submitted []model.TradeEvent
	r := newTestRouter(l, &submitted)

	w := doJSON(r, http.MethodPost, "/api/v1/exchange", gin.H{
		"name": "haeum", "password": "123456",
		"symbol": "hyungi", "amount": 2, "side": "buy", "reference_price": 50,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, l.acct.Cash.IsZero())
	assert.Equal(t, int64(4), l.acct.Holdings["hyungi"])

	w = doJSON(r, http.MethodPost, "/api/v1/exchange", gin.H{
		"name": "haeum", "password": "123456",
		"symbol": "hyungi", "amount": 4, "side": "sell", "reference_price": 50,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, l.acct.Cash.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, int64(0), l.acct.Holdings["hyungi"])

	assert.Len(t, submitted, 2)
	assert.Equal(t, model.SideBuy, submitted[0].Side)
	assert.Equal(t, model.SideSell, submitted[1].Side)
}

func TestExchangeSellInsufficientHoldings(t *testing.T) {
	r := newTestRouter(testAccount(), nil)

	w := doJSON(r, http.MethodPost, "/api/v1/exchange", gin.H{
		"name": "haeum", "password": "123456",
		"symbol": "hyungi", "amount": 3, "side": "sell", "reference_price": 50,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestExchangeWrongPassword(t *testing.T) {
	l := testAccount()
	r := newTestRouter(l, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/exchange", gin.H{
		"name": "haeum", "password": "nope",
		"symbol": "hyungi", "amount": 1, "side": "buy", "reference_price": 1,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, int64(2), l.acct.Holdings["hyungi"], "no mutation on auth failure")
}

func TestExchangeUnknownInstrument(t *testing.T) {
	r := newTestRouter(testAccount(), nil)

	w := doJSON(r, http.MethodPost, "/api/v1/exchange", gin.H{
		"name": "haeum", "password": "123456",
		"symbol": "doge", "amount": 1, "side": "buy", "reference_price": 1,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExchangeBadSide(t *testing.T) {
	r := newTestRouter(testAccount(), nil)

	w := doJSON(r, http.MethodPost, "/api/v1/exchange", gin.H{
		"name": "haeum", "password": "123456",
		"symbol": "hyungi", "amount": 1, "side": "short", "reference_price": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
