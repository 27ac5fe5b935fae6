package manager

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	idle   time.Duration
	served int
	closed bool
}

func (c *fakeConn) IdleFor() time.Duration { return c.idle }
func (c *fakeConn) RequestsServed() int    { return c.served }
func (c *fakeConn) Close()                 { c.closed = true }

func TestTickExpiresIdleConnection(t *testing.T) {
	m := New(Persistence{IdleTimeout: time.Second}, nil, nil)
	c := &fakeConn{idle: 2 * time.Second}
	m.Start(1, c)

	m.Tick()

	assert.True(t, c.closed)
	m.mu.Lock()
	_, tracked := m.conns[1]
	m.mu.Unlock()
	assert.False(t, tracked)
}

func TestTickExpiresKeepAliveLimit(t *testing.T) {
	m := New(Persistence{MaxKeepAliveRequests: 3}, nil, nil)
	c := &fakeConn{served: 3}
	m.Start(1, c)

	m.Tick()

	assert.True(t, c.closed)
}

func TestTickLeavesHealthyConnectionAlone(t *testing.T) {
	m := New(Persistence{IdleTimeout: time.Minute, MaxKeepAliveRequests: 100}, nil, nil)
	c := &fakeConn{idle: time.Second, served: 1}
	m.Start(1, c)

	m.Tick()

	assert.False(t, c.closed)
	m.mu.Lock()
	_, tracked := m.conns[1]
	m.mu.Unlock()
	assert.True(t, tracked)
}

func TestDeregisterIsIdempotentAfterTick(t *testing.T) {
	m := New(Persistence{IdleTimeout: time.Second}, nil, nil)
	c := &fakeConn{idle: 2 * time.Second}
	m.Start(1, c)
	m.Tick()

	require.NotPanics(t, func() { m.Deregister(1) })
}

func TestStopAllClosesEveryConnection(t *testing.T) {
	m := New(Persistence{}, nil, nil)
	conns := []*fakeConn{{}, {}, {}}
	for i, c := range conns {
		m.Start(uint64(i+1), c)
	}

	err := m.StopAll()

	require.NoError(t, err)
	for _, c := range conns {
		assert.True(t, c.closed)
	}
	m.mu.Lock()
	assert.Empty(t, m.conns)
	m.mu.Unlock()
}

func TestRequestsServedCounterAccumulatesAcrossTicks(t *testing.T) {
	m := New(Persistence{}, nil, nil)
	c := &fakeConn{served: 1}
	m.Start(1, c)
	m.Tick()

	c.served = 4
	m.Tick()

	assert.InDelta(t, 4, testutil.ToFloat64(m.requestsServed), 0)
}
