package manager

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type tracked struct {
	conn         Conn
	lastRequests int
}

// Start registers a newly accepted connection under id.
func (m *Manager) Start(id uint64, c Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[id] = tracked{conn: c}
	m.active.Inc()
}

// Deregister implements conn.Deregisterer: a connection reports its own
// close (client hangup, transport error, non-keep-alive exchange) once
// its serve loop returns. A connection the manager already removed via
// Tick or StopAll is a no-op here.
func (m *Manager) Deregister(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(id, "client_close")
}

// removeLocked folds the connection's final requests-served delta into
// the counter, deletes it from the tracked set, and records the closed
// reason. Callers must hold m.mu.
func (m *Manager) removeLocked(id uint64, reason string) {
	t, ok := m.conns[id]
	if !ok {
		return
	}
	m.observeRequestsLocked(id, t)
	delete(m.conns, id)
	m.active.Dec()
	m.closedTotal.WithLabelValues(reason).Inc()
}

func (m *Manager) observeRequestsLocked(id uint64, t tracked) {
	served := t.conn.RequestsServed()
	if delta := served - t.lastRequests; delta > 0 {
		m.requestsServed.Add(float64(delta))
	}
}

// Tick expires every connection whose idle duration exceeds the
// persistence policy's IdleTimeout, or whose served-request count has
// reached MaxKeepAliveRequests. Called once per second by the server's
// timer.
func (m *Manager) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.conns {
		m.observeRequestsLocked(id, t)
		t.lastRequests = t.conn.RequestsServed()
		m.conns[id] = t

		switch {
		case m.Persistence.IdleTimeout > 0 && t.conn.IdleFor() > m.Persistence.IdleTimeout:
			t.conn.Close()
			m.removeLocked(id, "idle_timeout")
		case m.Persistence.MaxKeepAliveRequests > 0 && t.conn.RequestsServed() >= m.Persistence.MaxKeepAliveRequests:
			t.conn.Close()
			m.removeLocked(id, "keepalive_limit")
		}
	}
}

// StopAll closes every registered connection concurrently and returns
// an aggregate of anything that went wrong. Connections don't expose a
// closing error today (net.Conn.Close() errors are swallowed by
// conn.Conn.Close()), so in practice this always returns nil; the
// aggregation exists so a future error-returning Close doesn't silently
// drop n-1 of n failures.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	ids := make([]uint64, 0, len(m.conns))
	conns := make([]Conn, 0, len(m.conns))
	for id, t := range m.conns {
		ids = append(ids, id)
		conns = append(conns, t.conn)
	}
	m.mu.Unlock()

	eg, _ := errgroup.WithContext(context.Background())
	for _, c := range conns {
		c := c
		eg.Go(func() error {
			c.Close()
			return nil
		})
	}
	var errs error
	if err := eg.Wait(); err != nil {
		errs = multierror.Append(errs, err)
	}

	m.mu.Lock()
	for _, id := range ids {
		m.removeLocked(id, "shutdown")
	}
	m.mu.Unlock()

	if errs != nil {
		m.Logger.Warn("errors stopping connections", zap.Error(errs))
	}
	return errs
}
