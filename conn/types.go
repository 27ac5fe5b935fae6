// Package conn drives one accepted TCP connection end to end: parsing
// requests, running them through the handler chain, and writing
// responses in chunks bounded by maxContentSize (spec §4.6).
package conn

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raspine/beauty/handler"
)

// Deregisterer is the back-reference a Conn uses to remove itself from
// the connection manager once closed, avoiding the cyclic
// connection<->manager reference the original design calls out (spec §9).
type Deregisterer interface {
	Deregister(id uint64)
}

// Persistence is the keep-alive policy (spec §4.7): a connection closes
// once it has served MaxKeepAliveRequests exchanges, or after
// IdleTimeout with no new request.
type Persistence struct {
	MaxKeepAliveRequests int
	IdleTimeout          time.Duration
}

// Conn is one accepted connection's driver state.
type Conn struct {
	ID             uint64
	MaxContentSize int
	Persistence    Persistence
	Chain          *handler.Chain
	Logger         *zap.Logger
	Manager        Deregisterer

	raw  net.Conn
	bufr *bufio.Reader
	bufw *bufio.Writer

	mu             sync.Mutex
	requestsServed int
	lastActivity   time.Time
	closed         bool
}

// New wraps an accepted socket. MaxContentSize must already have been
// validated (≥ 1024) by the caller.
func New(id uint64, raw net.Conn, chain *handler.Chain, persistence Persistence, maxContentSize int, manager Deregisterer, logger *zap.Logger) *Conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{
		ID:             id,
		MaxContentSize: maxContentSize,
		Persistence:    persistence,
		Chain:          chain,
		Logger:         logger.With(zap.Uint64("connId", id)),
		Manager:        manager,
		raw:            raw,
		bufr:           bufio.NewReaderSize(raw, maxContentSize),
		bufw:           bufio.NewWriterSize(raw, maxContentSize),
		lastActivity:   time.Now(),
	}
}

// IdleFor reports how long it's been since the connection was accepted
// or last read a request, for the manager's tick-driven expiry check.
func (c *Conn) IdleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActivity)
}

// RequestsServed reports the keep-alive exchange count.
func (c *Conn) RequestsServed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestsServed
}

// Close closes the underlying socket. Idempotent.
func (c *Conn) Close() {
	c.mu.Lock()
	already := c.closed
	c.closed = true
	c.mu.Unlock()
	if already {
		return
	}
	c.raw.Close()
}

func newRequestID() string {
	return uuid.NewString()
}
