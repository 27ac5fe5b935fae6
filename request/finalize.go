package request

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/raspine/beauty/hdr"
	"github.com/raspine/beauty/internal/reqparser"
)

// FromParser builds a Request from a parser that has just returned
// reqparser.Good. It performs the post-processing described in spec
// §4.1: URL-decoding the URI (rejecting malformed %xx escapes),
// splitting the query string at '?', and evaluating Connection/HTTP
// version to set KeepAlive. RequestID is left for the caller to set.
func FromParser(p *reqparser.Parser) (*Request, error) {
	major, minor := p.Version()
	r := &Request{
		Method:     p.Method(),
		URI:        p.URI(),
		ProtoMajor: major,
		ProtoMinor: minor,
		Header:     make(hdr.Header),
	}
	for _, h := range p.Headers() {
		r.Header.Add(h.Name, h.Value)
	}

	rawPath, rawQuery, _ := strings.Cut(r.URI, "?")
	path, err := url.QueryUnescape(rawPath)
	if err != nil {
		return nil, errors.Wrap(err, "decoding request path")
	}
	r.Path = path

	if rawQuery != "" {
		q, err := splitParams(rawQuery)
		if err != nil {
			return nil, errors.Wrap(err, "decoding query parameters")
		}
		r.Query = q
	}

	if cl := r.Header.Get(hdr.ContentLength); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "parsing Content-Length")
		}
		r.ContentLength = n
	}

	r.KeepAlive = evaluateKeepAlive(major, minor, r.Header.Get(hdr.Connection))
	return r, nil
}

// evaluateKeepAlive implements §4.1's default: HTTP/1.1 keeps the
// connection alive unless told to close; HTTP/1.0 closes unless told to
// keep alive.
func evaluateKeepAlive(major, minor int, connection string) bool {
	connection = strings.ToLower(strings.TrimSpace(connection))
	if major == 1 && minor >= 1 {
		return connection != "close"
	}
	return connection == "keep-alive"
}

// ParseForm populates Form from an application/x-www-form-urlencoded
// body. The caller supplies the body once it has been fully read.
func (r *Request) ParseForm(body []byte) error {
	params, err := splitParams(string(body))
	if err != nil {
		return errors.Wrap(err, "decoding form body")
	}
	r.Form = params
	return nil
}

// splitParams splits an urlencoded key/value sequence on '&' and '=',
// URL-decoding each side.
func splitParams(raw string) ([]Param, error) {
	var out []Param
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		decodedName, err := url.QueryUnescape(name)
		if err != nil {
			return nil, err
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		out = append(out, Param{Name: decodedName, Value: decodedValue})
	}
	return out, nil
}
