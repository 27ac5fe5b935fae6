package reqparser

// isCTL reports whether b is a control byte (0-31 or 127).
func isCTL(b byte) bool {
	return b < 32 || b == 127
}

// isTSpecial reports whether b is one of the RFC 2616 tspecials.
func isTSpecial(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"',
		'/', '[', ']', '?', '=', '{', '}', ' ', '\t':
		return true
	}
	return false
}

// isToken reports whether b is a valid token byte: printable, non-CTL,
// non-tspecial.
func isToken(b byte) bool {
	return !isCTL(b) && b < 127 && !isTSpecial(b)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Consume feeds one byte to the state machine and returns the outcome.
// Good is returned exactly once, on the byte that completes the blank
// line terminating the header block; the parsed request is then
// retrievable via Method, URI, Version, Headers.
func (p *Parser) Consume(b byte) Result {
	switch p.state {
	case StateMethodStart:
		if !isToken(b) {
			return Bad
		}
		p.state = StateMethod
		p.method = append(p.method, b)
		return Indeterminate

	case StateMethod:
		if b == ' ' {
			p.state = StateURI
			return Indeterminate
		}
		if !isToken(b) {
			return Bad
		}
		p.method = append(p.method, b)
		return Indeterminate

	case StateURI:
		if b == ' ' {
			p.state = StateHTTPVersionH
			return Indeterminate
		}
		if isCTL(b) {
			return Bad
		}
		p.uri = append(p.uri, b)
		return Indeterminate

	case StateHTTPVersionH:
		if b != 'H' {
			return Bad
		}
		p.state = StateHTTPVersionHT
		return Indeterminate

	case StateHTTPVersionHT:
		if b != 'T' {
			return Bad
		}
		p.state = StateHTTPVersionHTT
		return Indeterminate

	case StateHTTPVersionHTT:
		if b != 'T' {
			return Bad
		}
		p.state = StateHTTPVersionHTTP
		return Indeterminate

	case StateHTTPVersionHTTP:
		if b != 'P' {
			return Bad
		}
		p.state = StateHTTPVersionSlash
		return Indeterminate

	case StateHTTPVersionSlash:
		if b != '/' {
			return Bad
		}
		p.state = StateHTTPVersionMajorStart
		return Indeterminate

	case StateHTTPVersionMajorStart:
		if !isDigit(b) {
			return Bad
		}
		p.versionMajor = int(b - '0')
		p.state = StateHTTPVersionMajor
		return Indeterminate

	case StateHTTPVersionMajor:
		if b == '.' {
			p.state = StateHTTPVersionMinorStart
			return Indeterminate
		}
		if !isDigit(b) {
			return Bad
		}
		p.versionMajor = p.versionMajor*10 + int(b-'0')
		return Indeterminate

	case StateHTTPVersionMinorStart:
		if !isDigit(b) {
			return Bad
		}
		p.versionMinor = int(b - '0')
		p.state = StateHTTPVersionMinor
		return Indeterminate

	case StateHTTPVersionMinor:
		if b == '\r' {
			p.state = StateExpectingNewline1
			return Indeterminate
		}
		if !isDigit(b) {
			return Bad
		}
		p.versionMinor = p.versionMinor*10 + int(b-'0')
		return Indeterminate

	case StateExpectingNewline1:
		if b != '\n' {
			return Bad
		}
		p.state = StateHeaderLineStart
		return Indeterminate

	case StateHeaderLineStart:
		if b == '\r' {
			p.state = StateExpectingNewline3
			return Indeterminate
		}
		if b == ' ' || b == '\t' {
			if len(p.headers) == 0 {
				return Bad
			}
			p.state = StateHeaderLWS
			return Indeterminate
		}
		if !isToken(b) {
			return Bad
		}
		p.headers = append(p.headers, header{})
		p.curName = p.curName[:0]
		p.curValue = p.curValue[:0]
		p.curName = append(p.curName, b)
		p.state = StateHeaderName
		return Indeterminate

	case StateHeaderLWS:
		if b == '\r' {
			p.state = StateExpectingNewline2
			return Indeterminate
		}
		if b == ' ' || b == '\t' {
			return Indeterminate
		}
		if isCTL(b) {
			return Bad
		}
		p.curValue = append(p.curValue, ' ', b)
		p.state = StateHeaderValue
		return Indeterminate

	case StateHeaderName:
		if b == ':' {
			p.state = StateSpaceBeforeHeaderValue
			return Indeterminate
		}
		if !isToken(b) {
			return Bad
		}
		p.curName = append(p.curName, b)
		return Indeterminate

	case StateSpaceBeforeHeaderValue:
		if b == ' ' {
			return Indeterminate
		}
		if b == '\r' {
			p.commitHeader()
			p.state = StateExpectingNewline2
			return Indeterminate
		}
		if isCTL(b) {
			return Bad
		}
		p.curValue = append(p.curValue, b)
		p.state = StateHeaderValue
		return Indeterminate

	case StateHeaderValue:
		if b == '\r' {
			p.commitHeader()
			p.state = StateExpectingNewline2
			return Indeterminate
		}
		if isCTL(b) {
			return Bad
		}
		p.curValue = append(p.curValue, b)
		return Indeterminate

	case StateExpectingNewline2:
		if b != '\n' {
			return Bad
		}
		p.state = StateHeaderLineStart
		return Indeterminate

	case StateExpectingNewline3:
		if b != '\n' {
			return Bad
		}
		return Good

	default:
		return Bad
	}
}

// commitHeader stores the name/value accumulated in curName/curValue into
// the last header slot started in StateHeaderLineStart, or merges the
// continuation into the previous header's value when folding.
func (p *Parser) commitHeader() {
	n := len(p.headers)
	if n == 0 {
		return
	}
	if p.headers[n-1].name == "" && len(p.curName) > 0 {
		p.headers[n-1].name = string(p.curName)
	}
	p.headers[n-1].value += string(p.curValue)
	p.curValue = p.curValue[:0]
}

// Method returns the parsed request method. Valid after Good.
func (p *Parser) Method() string { return string(p.method) }

// URI returns the parsed, still URL-encoded request URI. Valid after Good.
func (p *Parser) URI() string { return string(p.uri) }

// Version returns the parsed HTTP major/minor version. Valid after Good.
func (p *Parser) Version() (major, minor int) { return p.versionMajor, p.versionMinor }

// Headers returns the parsed headers in wire order, name then value.
// Folded continuation lines have already been merged into the preceding
// header's value (a literal space per continuation line, per §9's note
// that folding is accepted but not otherwise normalized). Valid after Good.
func (p *Parser) Headers() []HeaderField {
	out := make([]HeaderField, len(p.headers))
	for i, h := range p.headers {
		out[i] = HeaderField{Name: h.name, Value: h.value}
	}
	return out
}

// HeaderField is one raw (name, value) pair as seen on the wire, in
// parse order.
type HeaderField struct {
	Name  string
	Value string
}
