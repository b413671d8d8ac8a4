package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TradesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trades_executed_total",
		Help: "Total number of executed exchange operations",
	}, []string{"symbol", "side"})

	TradesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trades_rejected_total",
		Help: "Total number of rejected exchange operations",
	}, []string{"reason"})

	SeriesGenerateLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "series_generate_seconds",
		Help: "Latency of price series generation",
	}, []string{"symbol"})

	SeriesCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "series_cache_hits_total",
		Help: "Price series served from the TTL cache",
	})

	SeriesCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "series_cache_misses_total",
		Help: "Price series regenerated on cache miss",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	DBInsertRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "db_insert_total",
		Help: "Total number of records inserted into DB",
	}, []string{"table"})
)
