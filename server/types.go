// Package server wires the connection driver, the connection manager,
// and a listener into the embeddable core spec.md §6 describes, plus
// the ambient stack (config, logging, metrics) a deployable binary
// needs around it.
package server

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/raspine/beauty/filestore"
	"github.com/raspine/beauty/handler"
	"github.com/raspine/beauty/manager"
	"github.com/raspine/beauty/reply"
)

// minContentSize is the lower bound spec.md §3 places on maxContentSize;
// construction fails observably below it rather than binding a server
// that can't hold a single request line.
const minContentSize = 1024

// Config is the server's construction parameters (spec.md §6), loadable
// programmatically or via LoadConfig from YAML (github.com/elastic/go-ucfg).
type Config struct {
	Address              string `config:"address"`
	Port                 int    `config:"port"`
	MaxContentSize       int    `config:"maxContentSize"`
	MaxKeepAliveRequests int    `config:"maxKeepAliveRequests"`
	IdleTimeoutSeconds   int    `config:"idleTimeoutSeconds"`
	LogPath              string `config:"logPath"`
	LogLevel             string `config:"logLevel"`
}

// DebugFunc receives low-level connection lifecycle text (accepted
// connection, closed connection, shutdown signal; no close reason and
// no parse errors) distinct from the structured zap log —
// an escape hatch for embedders who want raw diagnostics without
// pulling in a logging stack.
type DebugFunc func(msg string)

// Server binds a listener and serves accepted connections through a
// shared handler.Chain, tracked by a manager.Manager.
type Server struct {
	config Config
	store  filestore.Store
	logger *zap.Logger

	chainTemplate *handler.Chain
	mgr           *manager.Manager
	Registry      *prometheus.Registry

	mu         sync.Mutex
	listener   net.Listener
	ticker     *time.Ticker
	stopTick   chan struct{}
	wg         sync.WaitGroup
	nextConnID uint64

	debugFn DebugFunc
}

// New validates config and returns a Server ready to ListenAndServe. A
// nil store means GET and multipart-POST requests always fall through
// to the not-found handler (spec.md §6); the handler chain still runs.
func New(config Config, store filestore.Store, logger *zap.Logger) (*Server, error) {
	if config.MaxContentSize < minContentSize {
		return nil, errMaxContentSizeTooSmall(config.MaxContentSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	persistence := manager.Persistence{
		MaxKeepAliveRequests: config.MaxKeepAliveRequests,
		IdleTimeout:          time.Duration(config.IdleTimeoutSeconds) * time.Second,
	}

	s := &Server{
		config:        config,
		store:         store,
		logger:        logger,
		chainTemplate: handler.New(store, 0, logger),
		mgr:           manager.New(persistence, registry, logger),
		Registry:      registry,
	}
	return s, nil
}

// AddRequestHandler registers a user handler, run in order ahead of the
// built-in GET/POST flows, for connections accepted after the call
// (spec.md §6's addRequestHandler); an already-open connection keeps the
// handlers registered when it was accepted. Call before ListenAndServe
// so every connection runs it.
func (s *Server) AddRequestHandler(h handler.Func) {
	s.chainTemplate.Add(h)
}

// SetFileNotFoundHandler overrides the default stock-404 handler
// (spec.md §6's setFileNotFoundHandler).
func (s *Server) SetFileNotFoundHandler(h handler.Func) {
	s.chainTemplate.NotFound = h
}

// SetMIMELookup overrides the default extension-to-MIME-type resolver
// used to set Content-Type on GET responses.
func (s *Server) SetMIMELookup(lookup reply.MIMELookup) {
	s.chainTemplate.MIMELookup = lookup
}

// SetDebugMsgHandler installs the low-level diagnostics callback.
func (s *Server) SetDebugMsgHandler(fn DebugFunc) {
	s.debugFn = fn
}

func (s *Server) debugf(format string, args ...any) {
	if s.debugFn == nil {
		return
	}
	s.debugFn(fmt.Sprintf(format, args...))
}

// GetBindedPort returns the OS-assigned port once ListenAndServe has
// bound its listener, or 0 before that.
func (s *Server) GetBindedPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *Server) nextConnectionID() uint64 {
	return atomic.AddUint64(&s.nextConnID, 1)
}
