// Package manager owns the set of live connections: tick-driven idle and
// keep-alive expiry, and a concurrent stop-all for shutdown.
package manager

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Conn is the capability a tracked connection exposes to the manager —
// deliberately narrow so manager never reaches back into conn's internals.
type Conn interface {
	IdleFor() time.Duration
	RequestsServed() int
	Close()
}

// Persistence is the keep-alive policy: a connection is expired once it
// has been idle longer than IdleTimeout, or once it has served
// MaxKeepAliveRequests exchanges.
type Persistence struct {
	MaxKeepAliveRequests int
	IdleTimeout          time.Duration
}

// Manager tracks every live connection by id. Registry may be nil, in
// which case metrics registration is skipped.
type Manager struct {
	Persistence Persistence
	Logger      *zap.Logger

	mu    sync.Mutex
	conns map[uint64]tracked

	active         prometheus.Gauge
	closedTotal    *prometheus.CounterVec
	requestsServed prometheus.Counter
}

// New returns a Manager ready to track connections. If registry is
// non-nil, its three collectors are registered against it; a nil
// registry (the default in tests) means metrics are simply not
// collected.
func New(persistence Persistence, registry *prometheus.Registry, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		Persistence: persistence,
		Logger:      logger,
		conns:       make(map[uint64]tracked),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "emberd",
			Name:      "connections_active",
			Help:      "Currently open connections.",
		}),
		closedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emberd",
			Name:      "connections_total",
			Help:      "Connections closed, by reason.",
		}, []string{"reason"}),
		requestsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emberd",
			Name:      "requests_served_total",
			Help:      "Requests served across all connections.",
		}),
	}
	if registry != nil {
		registry.MustRegister(m.active, m.closedTotal, m.requestsServed)
	}
	return m
}
