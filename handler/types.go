// Package handler implements the request dispatch chain (spec §4.5):
// seeding the reply's file path from the request, running user handlers
// in registration order, and falling back to the built-in GET/POST
// multipart file flows.
package handler

import (
	"strings"

	"go.uber.org/zap"

	"github.com/raspine/beauty/filestore"
	"github.com/raspine/beauty/internal/multipart"
	"github.com/raspine/beauty/reply"
	"github.com/raspine/beauty/request"
)

// Func mutates rep in response to req. Setting rep.ReturnToClient
// short-circuits downstream dispatch.
type Func func(req *request.Request, rep *reply.Reply)

// Chain runs user handlers in registration order before the built-in
// GET/POST file flows.
type Chain struct {
	Store        filestore.Store
	MIMELookup   reply.MIMELookup
	NotFound     Func
	ConnectionID uint64
	Logger       *zap.Logger

	handlers []Func
}

// New returns a Chain with the default not-found handler (stock 404).
func New(store filestore.Store, connectionID uint64, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		Store:        store,
		NotFound:     func(_ *request.Request, rep *reply.Reply) { rep.StockReply(reply.NotFound) },
		ConnectionID: connectionID,
		Logger:       logger,
	}
}

// Add registers a handler at the end of the chain.
func (c *Chain) Add(h Func) { c.handlers = append(c.handlers, h) }

// ForConnection returns a shallow copy of c scoped to one accepted
// connection: same store, MIME lookup, not-found handler, and
// registered handler chain, but its own connection id and logger. The
// server calls this once per accepted connection so that concurrent
// connections never share a ConnectionID (and so never collide on
// filestore.ReadID/WriteID).
func (c *Chain) ForConnection(connectionID uint64, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	clone := *c
	clone.ConnectionID = connectionID
	clone.Logger = logger
	return &clone
}

// seedReply implements §4.5 step 1: file path and extension from the
// request path, with the GET-directory-to-index.html remap.
func seedReply(req *request.Request, rep *reply.Reply) string {
	rep.FilePath = req.Path
	if req.Method == "GET" && strings.HasSuffix(rep.FilePath, "/") {
		rep.FilePath += "index.html"
		return "html"
	}
	slash := strings.LastIndexByte(req.Path, '/')
	dot := strings.LastIndexByte(req.Path, '.')
	if dot > slash {
		return req.Path[dot+1:]
	}
	return ""
}

// MultipartState is held by the connection driver across the several
// body refills of one POST multipart upload and passed back into
// ContinueWrite for each subsequent chunk.
type MultipartState struct {
	parser   *multipart.Parser
	counter  int
	lastOpen string
}

// MultipartCounter reports how many parts an open-for-write has been
// attempted for in this upload so far, failed attempts included.
func (s *MultipartState) MultipartCounter() int { return s.counter }
