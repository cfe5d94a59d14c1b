package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	EntriesAppended     *prometheus.CounterVec
	EntriesDeleted      prometheus.Counter
	EntriesShifted      prometheus.Counter
	Reconciliations     prometheus.Counter
	ConsistencyFailures prometheus.Counter
	CashBalance         prometheus.Gauge
	CardBalance         prometheus.Gauge

	// Reconciler metrics
	Transitions       *prometheus.CounterVec
	Refunds           *prometheus.CounterVec
	SkippedOperations *prometheus.CounterVec

	// Write path metrics
	WriteDuration *prometheus.HistogramVec
	WriteRetries  prometheus.Counter
	WriteErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Redis metrics
	RedisErrors *prometheus.CounterVec

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registerer
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics on the given registerer
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		EntriesAppended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashledger_entries_appended_total",
				Help: "Total ledger entries appended by category",
			},
			[]string{"category"},
		),
		EntriesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashledger_entries_deleted_total",
			Help: "Total ledger entries deleted",
		}),
		EntriesShifted: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashledger_entries_shifted_total",
			Help: "Total ledger entries whose snapshot was shifted by a delete",
		}),
		Reconciliations: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashledger_reconciliations_total",
			Help: "Total reconciliations that produced a correction entry",
		}),
		ConsistencyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashledger_consistency_failures_total",
			Help: "Total snapshot consistency check failures",
		}),
		CashBalance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cashledger_cash_balance",
			Help: "Current cash balance",
		}),
		CardBalance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cashledger_card_balance",
			Help: "Current card balance",
		}),

		// Reconciler metrics
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashledger_receipt_transitions_total",
				Help: "Total receipt payment state transitions by from/to state",
			},
			[]string{"from", "to"},
		),
		Refunds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashledger_refunds_total",
				Help: "Total refunds by kind",
			},
			[]string{"kind"},
		),
		SkippedOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashledger_skipped_operations_total",
				Help: "Operations skipped because the cash register is disabled",
			},
			[]string{"operation"},
		),

		// Write path metrics
		WriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cashledger_write_duration_seconds",
				Help:    "Duration of ledger write transactions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		WriteRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "cashledger_write_retries_total",
			Help: "Total write transactions retried after a conflict",
		}),
		WriteErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashledger_write_errors_total",
				Help: "Total failed ledger writes by operation",
			},
			[]string{"operation"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cashledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Redis metrics
		RedisErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashledger_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Authentication metrics
		AuthAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashledger_auth_attempts_total",
				Help: "Total authentication attempts",
			},
			[]string{"status"},
		),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),

		// Outbox metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashledger_events_published_total",
				Help: "Total outbox events published by type",
			},
			[]string{"event_type"},
		),
	}
}

// SetBalances updates the balance gauges.
func (m *Metrics) SetBalances(cash, card decimal.Decimal) {
	if m == nil {
		return
	}
	m.CashBalance.Set(cash.InexactFloat64())
	m.CardBalance.Set(card.InexactFloat64())
}
