// Package multipart implements the streaming, boundary-aware
// multipart/form-data parser that operates on a body buffer refilled in
// place by the connection driver, one socket read at a time.
package multipart

// Result is the outcome of one Parse call.
type Result int

const (
	// Indeterminate: more body bytes are required before any further
	// progress can be reported.
	Indeterminate Result = iota
	// Good: at least one ContentPart was produced, more body expected.
	Good
	// Bad: the stream is malformed.
	Bad
	// Done: the terminal boundary was observed. Flush to drain any
	// part still held back.
	Done
)

// ContentPart describes a slice of a single refill belonging to one file
// part. Data is an owned copy, safe to retain across the next refill.
type ContentPart struct {
	Filename   string
	HeaderOnly bool
	FoundStart bool
	FoundEnd   bool
	Data       []byte
}

// carryState describes how the next Parse call should interpret the
// bytes preceding its first discovered boundary.
type carryState int

const (
	// carryNone: the previous call ended cleanly at a boundary (or this
	// is the first call); the next segment is a fresh part and begins
	// with Content-Disposition headers.
	carryNone carryState = iota
	// carryBodyStart: the previous call ended on a header-only part (the
	// filename is known but no body byte has arrived yet); the next
	// segment is that part's body, and FoundStart is true when it closes.
	carryBodyStart
	// carryContinuation: the previous call ended mid-body of a part
	// whose start was already reported (or whose start could not be
	// determined); the next segment is an anonymous continuation chunk.
	carryContinuation
	// carryHeaders: the previous call ended before the header block
	// terminated; accumulated raw header bytes are carried forward.
	carryHeaders
)

// Parser is a streaming multipart/form-data parser. It holds no
// reference to the caller's buffer between calls; any bytes it must
// remember across a refill are copied into its own state.
type Parser struct {
	delim     []byte
	delimCRLF []byte

	started bool
	done    bool

	carry         carryState
	carryFilename string
	carryHeaderAcc []byte

	held []ContentPart
}

// New returns a Parser configured for the given boundary (without the
// leading "--").
func New(boundary string) *Parser {
	delim := append([]byte("--"), boundary...)
	delimCRLF := append([]byte("\r\n"), delim...)
	return &Parser{delim: delim, delimCRLF: delimCRLF}
}

// Done reports whether the terminal boundary has been observed.
func (p *Parser) Done() bool { return p.done }

// PeekLastPart returns the parts observed but not yet delivered by
// Parse — the one-refill lookahead described in the package docs. The
// returned slice must not be retained past the next Parse/Flush call.
func (p *Parser) PeekLastPart() []ContentPart { return p.held }

// Flush drains any part still held back. Call once Parse reports Done.
func (p *Parser) Flush() []ContentPart {
	out := p.held
	p.held = nil
	return out
}
