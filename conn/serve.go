package conn

import (
	"io"
	"time"

	"github.com/raspine/beauty/handler"
	"github.com/raspine/beauty/internal/reqparser"
	"github.com/raspine/beauty/reply"
	"github.com/raspine/beauty/request"
)

// Serve runs the connection's request loop until the peer closes the
// socket, a transport error occurs, or keep-alive is exhausted (spec
// §4.6). It blocks the calling goroutine; callers run one per accepted
// connection (spec §5's thread-pool-affinitized variant).
func (c *Conn) Serve() {
	defer c.finish()

	for {
		if d := c.Persistence.IdleTimeout; d > 0 {
			c.raw.SetReadDeadline(time.Now().Add(d))
		} else {
			c.raw.SetReadDeadline(time.Time{})
		}

		req, ok := c.readRequest()
		if !ok {
			return
		}

		c.mu.Lock()
		c.lastActivity = time.Now()
		c.mu.Unlock()

		req.RequestID = newRequestID()
		rep := reply.New(c.MaxContentSize)

		remaining := req.ContentLength
		if remaining > 0 {
			chunk, ok := c.readBodyChunk(remaining)
			if !ok {
				return
			}
			req.Body = chunk
			remaining -= int64(len(chunk))
		}

		state := c.Chain.Dispatch(req, rep)
		if state != nil && !c.drainMultipartBody(req, rep, state, &remaining) {
			return
		}

		keepAlive := c.decideKeepAlive(req.KeepAlive)
		rep.SetConnectionHeader(keepAlive)

		if !c.writeInitial(rep) {
			return
		}
		if rep.ReplyPartial && !c.writeChunks(req) {
			return
		}

		if !keepAlive {
			return
		}
	}
}

// readRequest feeds socket bytes to the request parser one at a time
// until it reports good or bad, then post-processes the result. Returns
// ok=false when the connection should close (parse failure already
// answered with a stock 400, or a transport error with no reply sent).
func (c *Conn) readRequest() (*request.Request, bool) {
	p := reqparser.New()
	for {
		b, err := c.bufr.ReadByte()
		if err != nil {
			return nil, false
		}
		switch p.Consume(b) {
		case reqparser.Bad:
			c.replyStockError(reply.BadRequest)
			return nil, false
		case reqparser.Good:
			req, err := request.FromParser(p)
			if err != nil {
				c.replyStockError(reply.BadRequest)
				return nil, false
			}
			return req, true
		}
	}
}

// readBodyChunk reads min(remaining, MaxContentSize) bytes, the unit the
// multipart parser and file store both operate on per refill.
func (c *Conn) readBodyChunk(remaining int64) ([]byte, bool) {
	n := remaining
	if n > int64(c.MaxContentSize) {
		n = int64(c.MaxContentSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.bufr, buf); err != nil {
		return nil, false
	}
	return buf, true
}

// drainMultipartBody implements reading_body: read further body refills
// from the socket and feed them through the handler chain's multipart
// continuation until the parser reports Done (rep.FinalPart) or fails.
func (c *Conn) drainMultipartBody(req *request.Request, rep *reply.Reply, state *handler.MultipartState, remaining *int64) bool {
	for !rep.FinalPart && rep.ReplyPartial {
		rep.ReplyPartial = false
		if *remaining <= 0 {
			return false
		}
		chunk, ok := c.readBodyChunk(*remaining)
		if !ok {
			return false
		}
		*remaining -= int64(len(chunk))
		req.Body = chunk
		c.Chain.ContinueWrite(req, rep, state)
	}
	return true
}

// writeInitial sends the status line, headers, and whatever body bytes
// the reply already carries (spec §4.6 writing_initial_reply).
func (c *Conn) writeInitial(rep *reply.Reply) bool {
	if _, err := c.bufw.Write(rep.HeaderBytes()); err != nil {
		return false
	}
	if _, err := c.bufw.Write(rep.Body()); err != nil {
		return false
	}
	return c.bufw.Flush() == nil
}

// writeChunks implements writing_chunks: repeatedly asks the handler
// chain for the next file chunk and writes it as raw body bytes (no
// headers — those were already sent by writeInitial) until FinalPart.
func (c *Conn) writeChunks(req *request.Request) bool {
	for {
		chunk := reply.New(c.MaxContentSize)
		c.Chain.ContinueRead(req, chunk)
		if _, err := c.bufw.Write(chunk.Body()); err != nil {
			return false
		}
		if err := c.bufw.Flush(); err != nil {
			return false
		}
		if chunk.FinalPart {
			return true
		}
	}
}

// replyStockError implements the replying_error state: a best-effort
// write of a stock reply, ignoring write errors since the connection is
// closing regardless.
func (c *Conn) replyStockError(status reply.Status) {
	rep := reply.New(c.MaxContentSize)
	rep.StockReply(status)
	rep.SetConnectionHeader(false)
	c.bufw.Write(rep.HeaderBytes())
	c.bufw.Write(rep.Body())
	c.bufw.Flush()
}

// decideKeepAlive folds the request's own Connection preference together
// with the manager's keep-alive request cap (invariant 6).
func (c *Conn) decideKeepAlive(requested bool) bool {
	c.mu.Lock()
	c.requestsServed++
	limitHit := c.Persistence.MaxKeepAliveRequests > 0 && c.requestsServed >= c.Persistence.MaxKeepAliveRequests
	c.mu.Unlock()
	if limitHit {
		return false
	}
	return requested
}

func (c *Conn) finish() {
	c.Close()
	if c.Manager != nil {
		c.Manager.Deregister(c.ID)
	}
}
