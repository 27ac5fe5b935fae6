package multipart

import "bytes"

// findBoundary locates the next boundary delimiter at or after from. The
// very first boundary of the whole stream may appear with no leading
// CRLF (it opens the body); every subsequent one is always preceded by
// CRLF.
func (p *Parser) findBoundary(buf []byte, from int) (pos, length int, ok bool) {
	if !p.started && from == 0 && bytes.HasPrefix(buf, p.delim) {
		return 0, len(p.delim), true
	}
	idx := bytes.Index(buf[from:], p.delimCRLF)
	if idx < 0 {
		return 0, 0, false
	}
	return from + idx, len(p.delimCRLF), true
}

// isTerminal reports whether the boundary marker ending at end (buf[:end]
// already consumed the delimiter) is immediately followed by the
// terminal "--" suffix.
func isTerminal(buf []byte, end int) bool {
	return bytes.HasPrefix(buf[end:], []byte("--"))
}

// segment tracks the part currently being scanned within one Parse call.
type segment struct {
	acc          []byte
	headerEnd    int // offset into acc just past the header terminator, -1 if unknown
	filename     string
	isBodyStart  bool // true if this segment, once closed, reports FoundStart
}

func newSegmentFromCarry(p *Parser) segment {
	switch p.carry {
	case carryBodyStart:
		return segment{headerEnd: 0, filename: p.carryFilename, isBodyStart: true}
	case carryContinuation:
		return segment{headerEnd: 0}
	case carryHeaders:
		acc := append([]byte(nil), p.carryHeaderAcc...)
		s := segment{acc: acc, headerEnd: findHeaderEnd(acc)}
		if s.headerEnd >= 0 {
			s.filename = filenameFromHeaders(acc[:s.headerEnd-len(headerTerminator)])
			s.isBodyStart = true
		}
		return s
	default:
		return segment{headerEnd: -1}
	}
}

func freshSegment() segment {
	return segment{headerEnd: -1, isBodyStart: true}
}

// consume appends newly-seen bytes and, while headers are still being
// collected, checks whether the header terminator has now arrived.
func (s *segment) consume(b []byte) {
	s.acc = append(s.acc, b...)
	if s.headerEnd < 0 {
		if end := findHeaderEnd(s.acc); end >= 0 {
			s.headerEnd = end
			s.filename = filenameFromHeaders(s.acc[:end-len(headerTerminator)])
			s.isBodyStart = true
		}
	}
}

func (s *segment) body() []byte {
	if s.headerEnd < 0 {
		return nil
	}
	return s.acc[s.headerEnd:]
}

// Parse feeds the next refill of the body buffer to the parser. It
// returns the parts that were held back from the previous call (now
// safe to deliver) together with the outcome of scanning buf.
func (p *Parser) Parse(buf []byte) (Result, []ContentPart) {
	if p.done {
		return Done, nil
	}

	emit := p.held
	p.held = nil

	var newHeld []ContentPart
	pos := 0

	seg := newSegmentFromCarry(p)
	p.carry = carryNone
	p.carryHeaderAcc = nil
	p.carryFilename = ""

	opensStream := !p.started

	for !p.done {
		bpos, blen, ok := p.findBoundary(buf, pos)
		if !ok {
			seg.consume(buf[pos:])
			pos = len(buf)
			break
		}
		seg.consume(buf[pos:bpos])
		p.started = true

		switch {
		case opensStream:
			// The very first boundary in the stream only opens it; any
			// preamble bytes preceding it are discarded, not reported.
			opensStream = false
		case seg.headerEnd < 0:
			// Headers never completed before the boundary arrived;
			// best-effort: treat the whole segment as an opaque
			// continuation (§9 open question (a)).
			newHeld = append(newHeld, ContentPart{Data: append([]byte(nil), seg.acc...)})
		default:
			newHeld = append(newHeld, ContentPart{
				Filename:   seg.filename,
				FoundStart: seg.isBodyStart,
				FoundEnd:   true,
				Data:       append([]byte(nil), seg.body()...),
			})
		}

		terminalMarkerEnd := bpos + blen
		if isTerminal(buf, terminalMarkerEnd) {
			p.done = true
			break
		}
		pos = terminalMarkerEnd
		seg = freshSegment()
	}

	if !p.done {
		switch {
		case seg.headerEnd < 0 && opensStream:
			// No boundary has been seen yet (§9 open question (a)):
			// best-effort, the whole refill becomes a continuation part.
			if len(seg.acc) > 0 {
				newHeld = append(newHeld, ContentPart{Data: append([]byte(nil), seg.acc...)})
				p.carry = carryContinuation
			}
		case seg.headerEnd < 0:
			if len(seg.acc) > 0 {
				p.carry = carryHeaders
				p.carryHeaderAcc = append([]byte(nil), seg.acc...)
			}
		case len(seg.body()) == 0:
			newHeld = append(newHeld, ContentPart{
				Filename:   seg.filename,
				HeaderOnly: true,
			})
			p.carry = carryBodyStart
			p.carryFilename = seg.filename
		default:
			newHeld = append(newHeld, ContentPart{
				Filename:   seg.filename,
				FoundStart: seg.isBodyStart,
				Data:       append([]byte(nil), seg.body()...),
			})
			p.carry = carryContinuation
		}
	}

	p.held = newHeld

	if p.done {
		return Done, emit
	}
	if len(emit) > 0 {
		return Good, emit
	}
	return Indeterminate, emit
}
