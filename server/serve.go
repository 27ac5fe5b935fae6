package server

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/raspine/beauty/conn"
)

// ListenAndServe binds the configured address/port, then accepts and
// serves connections until Shutdown is called or the listener fails.
// A signal handler for SIGINT, SIGTERM, and SIGQUIT (spec.md §4.7's
// cancellation) triggers a graceful Shutdown automatically.
func (s *Server) ListenAndServe() error {
	addr := net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.ticker = time.NewTicker(time.Second)
	s.stopTick = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.tickLoop()

	go s.awaitSignal()

	return s.acceptLoop(ln)
}

// acceptLoop mirrors the teacher's retry-on-temporary-error accept
// loop: a transient Accept error backs off with exponential delay
// capped at one second rather than spinning or giving up.
func (s *Server) acceptLoop(ln net.Listener) error {
	var tempDelay time.Duration
	for {
		rawConn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Temporary() { //nolint:staticcheck // mirrors the teacher's accept-retry loop
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if tempDelay > time.Second {
					tempDelay = time.Second
				}
				s.logger.Warn("accept error, retrying", zap.Error(err), zap.Duration("delay", tempDelay))
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0

		id := s.nextConnectionID()
		s.debugf("accepted connection %d from %s", id, rawConn.RemoteAddr())

		connLogger := s.logger
		chain := s.chainTemplate.ForConnection(id, connLogger)
		persistence := conn.Persistence{
			MaxKeepAliveRequests: s.config.MaxKeepAliveRequests,
			IdleTimeout:          time.Duration(s.config.IdleTimeoutSeconds) * time.Second,
		}
		c := conn.New(id, rawConn, chain, persistence, s.config.MaxContentSize, s.mgr, connLogger)
		s.mgr.Start(id, c)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.Serve()
			s.debugf("closed connection %d", id)
		}()
	}
}

func (s *Server) tickLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.mgr.Tick()
		case <-s.stopTick:
			return
		}
	}
}

func (s *Server) awaitSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-ch
	s.debugf("received signal %s, shutting down", sig)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		s.logger.Warn("shutdown did not complete cleanly", zap.Error(err))
	}
}

// Shutdown stops the ticker, closes the listener, and closes every
// live connection via the manager's StopAll, then waits (bounded by
// ctx) for every connection goroutine to return.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stopTick)
	}
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}

	if err := s.mgr.StopAll(); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

