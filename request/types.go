// Package request holds the fully-parsed, post-processed HTTP request
// passed to the handler chain.
package request

import "github.com/raspine/beauty/hdr"

// Param is one query- or form-parameter key/value pair, in the order it
// appeared on the wire. Query and form parameters are matched
// case-sensitively, unlike headers.
type Param struct {
	Name  string
	Value string
}

// Request is the core's view of one parsed HTTP request. It is created
// by the connection driver once the request parser returns Good, and
// discarded when its reply finishes.
type Request struct {
	Method        string
	URI           string
	ProtoMajor    int
	ProtoMinor    int
	Header        hdr.Header
	KeepAlive     bool
	Path          string // URI minus query string, URL-decoded
	Query         []Param
	Form          []Param
	ContentLength int64

	// RequestID is a random per-request id set by the connection
	// driver; no component reads it, and it has no effect on parsing or
	// wire behavior.
	RequestID string

	// Body is a borrowed reference to the connection's body buffer; it
	// is only valid until the next refill or until the reply finishes.
	Body []byte
}

// Get returns the first value of a case-insensitively matched header.
func (r *Request) Get(name string) string {
	return r.Header.Get(name)
}

// QueryParam returns the first query parameter matching name exactly
// (case-sensitive), or "" if absent.
func (r *Request) QueryParam(name string) string {
	for _, p := range r.Query {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// FormParam returns the first form parameter matching name exactly
// (case-sensitive), or "" if absent.
func (r *Request) FormParam(name string) string {
	for _, p := range r.Form {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}
