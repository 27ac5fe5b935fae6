// Package filestore declares the capability the core consumes, never
// implements, for reading and writing files keyed by a
// connection-scoped identifier (spec §4.4). See the diskstore
// subpackage for a POSIX-backed reference implementation.
package filestore

import (
	"strconv"

	"github.com/raspine/beauty/reply"
	"github.com/raspine/beauty/request"
)

// WriteStatus is the outcome of an open-for-write or write call.
type WriteStatus int

const (
	StatusOK WriteStatus = iota
	StatusCreated
	StatusError
)

// Store is the file-store capability set. Implementations must tolerate
// concurrent opens under distinct ids; the driver guarantees distinct
// ids per concurrent upload/download.
type Store interface {
	// OpenFileForRead returns the total byte length for id, or 0 when
	// not found.
	OpenFileForRead(id string, req *request.Request, rep *reply.Reply) int64

	// ReadFile performs a sequential read from the current position,
	// returning the number of bytes placed into buf.
	ReadFile(id string, req *request.Request, buf []byte) int

	// OpenFileForWrite returns StatusOK or StatusCreated on success;
	// any other status has errText populated.
	OpenFileForWrite(id string, req *request.Request, rep *reply.Reply) (status WriteStatus, errText string)

	// WriteFile streams an append; finished signals the final chunk for
	// this identifier.
	WriteFile(id string, req *request.Request, data []byte, finished bool) (status WriteStatus, errText string)

	// CloseReadFile and CloseWriteFile are idempotent: closing an
	// unknown id is a no-op.
	CloseReadFile(id string)
	CloseWriteFile(id string)
}

// WriteID composes the identifier the driver uses for multipart upload
// writes: the logical path plus the connection id, isolating concurrent
// uploads on different connections that happen to target the same path.
func WriteID(logicalPath string, connectionID uint64) string {
	return logicalPath + strconv.FormatUint(connectionID, 10)
}

// ReadID composes the identifier the driver uses for GET reads: the bare
// connection id.
func ReadID(connectionID uint64) string {
	return strconv.FormatUint(connectionID, 10)
}
