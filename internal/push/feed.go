package push

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"paper-exchange/internal/infrastructure"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// TradeFeed pushes executed trades to dashboard websockets. Clients
// subscribe per symbol; each symbol holds one NATS subscription that is
// torn down when its last client leaves.
type TradeFeed struct {
	logger   *zap.Logger
	js       nats.JetStreamContext
	mu       sync.RWMutex
	bySymbol map[string]map[*client]bool
	natsSubs map[string]*nats.Subscription
}

func NewTradeFeed(js nats.JetStreamContext, logger *zap.Logger) *TradeFeed {
	return &TradeFeed{
		logger:   logger,
		js:       js,
		bySymbol: make(map[string]map[*client]bool),
		natsSubs: make(map[string]*nats.Subscription),
	}
}

func (f *TradeFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	infrastructure.WSConnections.Inc()

	go f.writePump(c)
	f.readPump(c)
}

func (f *TradeFeed) readPump(c *client) {
	defer func() {
		f.mu.Lock()
		for symbol, clients := range f.bySymbol {
			delete(clients, c)
			f.dropSymbolLocked(symbol)
		}
		f.mu.Unlock()
		infrastructure.WSConnections.Dec()
		close(c.send) // releases writePump
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var req struct {
			Action string `json:"action"` // "subscribe", "unsubscribe"
			Symbol string `json:"symbol"`
		}
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}

		f.mu.Lock()
		switch req.Action {
		case "subscribe":
			if f.bySymbol[req.Symbol] == nil {
				f.bySymbol[req.Symbol] = make(map[*client]bool)
				if err := f.subscribeSymbol(req.Symbol); err != nil {
					f.logger.Error("failed to subscribe to NATS", zap.String("symbol", req.Symbol), zap.Error(err))
				}
			}
			f.bySymbol[req.Symbol][c] = true
		case "unsubscribe":
			if clients, ok := f.bySymbol[req.Symbol]; ok {
				delete(clients, c)
				f.dropSymbolLocked(req.Symbol)
			}
		}
		f.mu.Unlock()
	}
}

// dropSymbolLocked removes the symbol's NATS subscription once no clients
// remain. Caller holds f.mu.
func (f *TradeFeed) dropSymbolLocked(symbol string) {
	clients, ok := f.bySymbol[symbol]
	if !ok || len(clients) > 0 {
		return
	}
	if sub, ok := f.natsSubs[symbol]; ok {
		sub.Unsubscribe()
		delete(f.natsSubs, symbol)
	}
	delete(f.bySymbol, symbol)
}

func (f *TradeFeed) writePump(c *client) {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

func (f *TradeFeed) subscribeSymbol(symbol string) error {
	subject := fmt.Sprintf("exchange.trades.%s", symbol)
	sub, err := f.js.Subscribe(subject, func(msg *nats.Msg) {
		f.mu.RLock()
		for c := range f.bySymbol[symbol] {
			select {
			case c.send <- msg.Data:
			default:
				// drop instead of blocking a slow client
			}
		}
		f.mu.RUnlock()
		msg.Ack()
	}, nats.ManualAck())
	if err != nil {
		return err
	}

	f.natsSubs[symbol] = sub
	f.logger.Info("subscribed to trade subject", zap.String("subject", subject))
	return nil
}
