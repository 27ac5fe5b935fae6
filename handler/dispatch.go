package handler

import (
	"path"

	"go.uber.org/zap"

	"github.com/raspine/beauty/filestore"
	"github.com/raspine/beauty/internal/multipart"
	"github.com/raspine/beauty/reply"
	"github.com/raspine/beauty/request"
)

// Dispatch runs the chain against one request/reply pair (§4.5): seed the
// reply, run user handlers in order, then fall back to the built-in
// GET-file or POST-multipart flow unless a user handler already
// returned to the client or the store is nil.
//
// For a POST multipart upload, Dispatch returns the MultipartState the
// caller must thread into ContinueWrite for each subsequent body refill
// until rep.FinalPart (already set when the whole body fit in req.Body);
// for every other request it returns nil.
func (c *Chain) Dispatch(req *request.Request, rep *reply.Reply) *MultipartState {
	ext := seedReply(req, rep)

	for _, h := range c.handlers {
		h(req, rep)
		if rep.ReturnToClient {
			return nil
		}
	}

	if c.Store == nil {
		c.NotFound(req, rep)
		return nil
	}

	switch {
	case req.Method == "POST":
		state := NewMultipartState(req)
		if state == nil {
			rep.StockReply(reply.BadRequest)
			return nil
		}
		rep.Status = reply.OK
		rep.IsMultiPart = true
		c.ContinueWrite(req, rep, state)
		return state
	case req.Method == "GET":
		c.openAndReadFile(req, rep, ext)
		return nil
	default:
		c.NotFound(req, rep)
		return nil
	}
}

// openAndReadFile implements the GET flow: open the file under the
// connection's read id, set Content-Length from the file's total size
// (framing the whole multi-write response, since chunked
// transfer-encoding is out of scope), read the first chunk, and close
// the handle immediately when the whole file fit in it.
func (c *Chain) openAndReadFile(req *request.Request, rep *reply.Reply, ext string) {
	id := filestore.ReadID(c.ConnectionID)
	size := c.Store.OpenFileForRead(id, req, rep)
	if size == 0 {
		c.NotFound(req, rep)
		return
	}
	rep.SetContentHeaders(int(size), ext, c.MIMELookup)
	c.readChunk(req, rep, id)
}

// readChunk implements one chunk of handlePartialRead: each call reads
// at most MaxContentSize bytes and reports FinalPart once the store
// returns a short read, closing the read handle at that point. Only the
// first chunk's reply carries headers; ContinueRead's caller is
// responsible for writing subsequent chunks as raw body bytes.
func (c *Chain) readChunk(req *request.Request, rep *reply.Reply, id string) {
	buf := make([]byte, rep.MaxContentSize)
	n := c.Store.ReadFile(id, req, buf)
	rep.Status = reply.OK
	rep.AddContent(buf[:n])

	if n < rep.MaxContentSize {
		rep.FinalPart = true
		c.Store.CloseReadFile(id)
		return
	}
	rep.ReplyPartial = true
}

// ContinueRead is called by the connection driver for each subsequent
// chunk of a partial GET reply already in flight.
func (c *Chain) ContinueRead(req *request.Request, rep *reply.Reply) {
	c.readChunk(req, rep, filestore.ReadID(c.ConnectionID))
}

// ContinueWrite runs one refill of body bytes through the multipart
// parser and writes every completed part to the store, grounded on
// request_handler.cpp's handlePartialWrite/writeFileParts. Dispatch calls
// this for the first body refill and the driver for each later one, with
// the same reply, until rep.FinalPart.
func (c *Chain) ContinueWrite(req *request.Request, rep *reply.Reply, state *MultipartState) {
	result, parts := state.parser.Parse(req.Body)
	if result == multipart.Bad {
		rep.StockReply(reply.BadRequest)
		return
	}

	if rep.Status == reply.OK {
		c.writeFileParts(req, rep, state, parts)
	}

	if result == multipart.Done {
		final := state.parser.Flush()
		if rep.Status == reply.OK {
			c.writeFileParts(req, rep, state, final)
		}
		if rep.Status == reply.OK {
			rep.ClearContent()
		}
		rep.FinalPart = true
		return
	}
	rep.ReplyPartial = true
}

// writeFileParts peeks the parser's current lookahead for a header-only
// part with a filename and opens its write handle now — so that when the
// body-start chunk is actually delivered on the next refill, there is
// already somewhere for it to land — then streams every body-bearing
// part in parts to the store, closing on the part's FoundEnd or on any
// error.
func (c *Chain) writeFileParts(req *request.Request, rep *reply.Reply, state *MultipartState, parts []multipart.ContentPart) {
	for _, peeked := range state.parser.PeekLastPart() {
		if !peeked.HeaderOnly || peeked.Filename == "" {
			continue
		}
		state.counter++
		rep.FilePath = path.Join(req.Path, peeked.Filename)
		id := filestore.WriteID(rep.FilePath, c.ConnectionID)
		status, errText := c.Store.OpenFileForWrite(id, req, rep)
		if status == filestore.StatusError {
			c.abortWrite(rep, state, errText)
			return
		}
		state.lastOpen = id
		rep.LastOpenFileForWriteID = id
	}

	for _, part := range parts {
		if part.HeaderOnly {
			// Its write handle was already opened when this part first
			// surfaced in a previous call's lookahead peek, above.
			if part.Filename != "" {
				rep.LastOpenFileForWriteID = state.lastOpen
			}
			continue
		}

		id := state.lastOpen
		if id == "" && part.Filename != "" {
			state.counter++
			rep.FilePath = path.Join(req.Path, part.Filename)
			id = filestore.WriteID(rep.FilePath, c.ConnectionID)
			status, errText := c.Store.OpenFileForWrite(id, req, rep)
			if status == filestore.StatusError {
				c.abortWrite(rep, state, errText)
				return
			}
			state.lastOpen = id
			rep.LastOpenFileForWriteID = id
		}
		if id == "" {
			continue
		}

		status, errText := c.Store.WriteFile(id, req, part.Data, part.FoundEnd)
		if status == filestore.StatusError {
			c.abortWrite(rep, state, errText)
			return
		}
		if part.FoundEnd {
			state.lastOpen = ""
			rep.LastOpenFileForWriteID = ""
		}
	}
}

func (c *Chain) abortWrite(rep *reply.Reply, state *MultipartState, errText string) {
	c.Logger.Warn("multipart write failed", zap.String("id", state.lastOpen), zap.String("error", errText))
	if state.lastOpen != "" {
		c.Store.CloseWriteFile(state.lastOpen)
	}
	rep.PrependError(errText)
	rep.Status = reply.InternalServerError
	state.lastOpen = ""
	rep.LastOpenFileForWriteID = ""
}

// NewMultipartState allocates the per-upload parser state seeded from
// the request's Content-Type boundary, or nil if the request is not a
// multipart upload.
func NewMultipartState(req *request.Request) *MultipartState {
	boundary, ok := multipart.BoundaryFromContentType(req.Get("Content-Type"))
	if !ok {
		return nil
	}
	return &MultipartState{parser: multipart.New(boundary)}
}
