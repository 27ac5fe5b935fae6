package reply

import (
	"fmt"
	"strconv"

	"github.com/raspine/beauty/hdr"
)

// DefaultMIMELookup is the stdlib-backed MIMELookup used when the server
// is not given a more specific one.
func DefaultMIMELookup(ext string) string {
	return mimeByExtension(ext)
}

// Send prepares the reply for delivery using whatever body bytes were
// already accumulated in Content (via AddContent), with no explicit
// content type.
func (r *Reply) Send(status Status) {
	r.Status = status
}

// SendWithType is Send plus an explicit Content-Type.
func (r *Reply) SendWithType(status Status, contentType string) {
	r.Status = status
	r.AddHeader(hdr.ContentType, contentType)
}

// SendPtr prepares a zero-copy reply. The caller guarantees data
// outlives the socket write.
func (r *Reply) SendPtr(status Status, contentType string, data []byte) {
	r.Status = status
	r.contentPtr = data
	r.AddHeader(hdr.ContentType, contentType)
}

// AddContent appends to the reply's owned body buffer.
func (r *Reply) AddContent(data []byte) {
	r.content = append(r.content, data...)
}

// ClearContent discards any accumulated body bytes, leaving headers and
// status untouched. Used once a multipart upload completes successfully:
// the response carries no body, only the final status line.
func (r *Reply) ClearContent() {
	r.content = nil
	r.contentPtr = nil
}

// AddHeader appends a response header. Duplicate names are permitted
// and are emitted in the order added.
func (r *Reply) AddHeader(name, value string) {
	r.addedHeaders = append(r.addedHeaders, hdr.Header{hdr.CanonicalHeaderKey(name): []string{value}})
}

// PrependError inserts file-store error text ahead of the current body,
// per §4.5/§7's multipart-write failure handling.
func (r *Reply) PrependError(text string) {
	r.err = text
}

// Body returns the effective response body: the zero-copy pointer if
// SendPtr was used, otherwise the owned content buffer, with any
// file-store error text prepended.
func (r *Reply) Body() []byte {
	body := r.content
	if r.contentPtr != nil {
		body = r.contentPtr
	}
	if r.err == "" {
		return body
	}
	out := make([]byte, 0, len(r.err)+len(body))
	out = append(out, r.err...)
	out = append(out, body...)
	return out
}

var stockBodies = map[Status]string{
	BadRequest:          "Bad Request",
	Unauthorized:        "Unauthorized",
	Forbidden:           "Forbidden",
	NotFound:            "Not Found",
	InternalServerError: "Internal Server Error",
	NotImplemented:      "Not Implemented",
	BadGateway:          "Bad Gateway",
	ServiceUnavailable:  "Service Unavailable",
}

// StockReply populates a canonical HTML body for the given status, with
// Content-Type: text/html and Content-Length set automatically.
func (r *Reply) StockReply(status Status) {
	r.Status = status
	title := stockBodies[status]
	if title == "" {
		title = status.ReasonPhrase()
	}
	r.content = []byte(fmt.Sprintf(
		"<html><head><title>%s</title></head><body><h1>%d %s</h1></body></html>",
		title, int(status), status.ReasonPhrase(),
	))
	r.contentPtr = nil
	r.AddHeader(hdr.ContentLength, strconv.Itoa(len(r.content)))
	r.AddHeader(hdr.ContentType, "text/html")
}

// SetContentHeaders sets the default Content-Length and Content-Type
// headers from the body and MIME lookup, but only into slots not
// already populated by a user handler or StockReply/SendWithType — an
// existing Content-Type added upstream is reused rather than duplicated.
func (r *Reply) SetContentHeaders(size int, ext string, lookup MIMELookup) {
	if lookup == nil {
		lookup = DefaultMIMELookup
	}
	if !r.hasAddedHeader(hdr.ContentLength) {
		r.AddHeader(hdr.ContentLength, strconv.Itoa(size))
	}
	if !r.hasAddedHeader(hdr.ContentType) {
		r.AddHeader(hdr.ContentType, lookup(ext))
	}
}

func (r *Reply) hasAddedHeader(name string) bool {
	canon := hdr.CanonicalHeaderKey(name)
	for _, h := range r.addedHeaders {
		if _, ok := h[canon]; ok {
			return true
		}
	}
	return false
}

// SetConnectionHeader is called by the connection driver once keep-alive
// has been decided for this exchange.
func (r *Reply) SetConnectionHeader(keepAlive bool) {
	if keepAlive {
		r.AddHeader(hdr.Connection, "keep-alive")
	} else {
		r.AddHeader(hdr.Connection, "close")
	}
}

// HeaderBytes serializes the status line and headers. Together with Body
// it yields two independent buffers (headers, body) suitable for vectored
// I/O.
func (r *Reply) HeaderBytes() []byte {
	var buf []byte
	buf = append(buf, fmt.Sprintf("HTTP/1.1 %d %s\r\n", int(r.Status), r.Status.ReasonPhrase())...)
	for _, h := range r.addedHeaders {
		for k, vv := range h {
			for _, v := range vv {
				buf = append(buf, k...)
				buf = append(buf, ':', ' ')
				buf = append(buf, v...)
				buf = append(buf, '\r', '\n')
			}
		}
	}
	buf = append(buf, '\r', '\n')
	return buf
}
