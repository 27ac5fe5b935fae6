// Package reply builds and serializes the HTTP/1.1 response: status
// line, headers, and a body that may be owned, zero-copy, or streamed in
// chunks bounded by MaxContentSize.
package reply

import "github.com/raspine/beauty/hdr"

// Status is an enumerated HTTP status code. Only the codes named in the
// spec are supported; anything else is a caller error.
type Status int

const (
	OK                  Status = 200
	Created             Status = 201
	Accepted            Status = 202
	NoContent           Status = 204
	MultipleChoices     Status = 300
	MovedPermanently    Status = 301
	MovedTemporarily    Status = 302
	NotModified         Status = 304
	BadRequest          Status = 400
	Unauthorized        Status = 401
	Forbidden           Status = 403
	NotFound            Status = 404
	InternalServerError Status = 500
	NotImplemented      Status = 501
	BadGateway          Status = 502
	ServiceUnavailable  Status = 503
)

var reasonPhrases = map[Status]string{
	OK:                  "OK",
	Created:             "Created",
	Accepted:            "Accepted",
	NoContent:           "No Content",
	MultipleChoices:     "Multiple Choices",
	MovedPermanently:    "Moved Permanently",
	MovedTemporarily:    "Moved Temporarily",
	NotModified:         "Not Modified",
	BadRequest:          "Bad Request",
	Unauthorized:        "Unauthorized",
	Forbidden:           "Forbidden",
	NotFound:            "Not Found",
	InternalServerError: "Internal Server Error",
	NotImplemented:      "Not Implemented",
	BadGateway:          "Bad Gateway",
	ServiceUnavailable:  "Service Unavailable",
}

// ReasonPhrase returns the canonical reason phrase for status, or
// "Unknown" if status isn't one of the enumerated codes.
func (s Status) ReasonPhrase() string {
	if p, ok := reasonPhrases[s]; ok {
		return p
	}
	return "Unknown"
}

// MIMELookup resolves a file extension (without the leading dot) to a
// MIME type. It is an external collaborator per spec §1; DefaultMIMELookup
// wraps the standard library's extension table.
type MIMELookup func(ext string) string

// FilePath is seeded by the handler chain from the request path and is
// consulted by the multipart-write and GET-file flows.
type Reply struct {
	Status Status

	// FilePath is seeded from the request path by the handler chain
	// (§4.5 step 1) and may be mutated by user handlers.
	FilePath string

	addedHeaders []hdr.Header

	// ReturnToClient, when set by a user handler, short-circuits the
	// handler chain (§4.5 step 2).
	ReturnToClient bool

	content    []byte
	contentPtr []byte // non-owning view when sendPtr is used; caller-owned

	MaxContentSize int
	ReplyPartial   bool
	FinalPart      bool
	IsMultiPart    bool

	// LastOpenFileForWriteID tracks the most recently opened multipart
	// write handle, so continuation chunks append to the right file.
	LastOpenFileForWriteID string

	// err holds file-store error text prepended to the body on a
	// multipart-write failure (§4.5, §7).
	err string
}

// New returns a Reply configured with the driver's fixed chunk size.
func New(maxContentSize int) *Reply {
	return &Reply{MaxContentSize: maxContentSize}
}
