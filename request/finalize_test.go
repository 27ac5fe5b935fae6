package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raspine/beauty/internal/reqparser"
)

func parseGood(t *testing.T, raw string) *reqparser.Parser {
	t.Helper()
	p := reqparser.New()
	var res reqparser.Result
	for i := 0; i < len(raw); i++ {
		res = p.Consume(raw[i])
	}
	require.Equal(t, reqparser.Good, res)
	return p
}

func TestFromParserBasicGet(t *testing.T) {
	p := parseGood(t, "GET /hello.txt HTTP/1.1\r\nHost: x\r\n\r\n")
	req, err := FromParser(p)
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/hello.txt", req.Path)
	assert.True(t, req.KeepAlive)
}

func TestFromParserQueryAndDecoding(t *testing.T) {
	p := parseGood(t, "GET /search?q=a%20b&x=1 HTTP/1.1\r\nHost: x\r\n\r\n")
	req, err := FromParser(p)
	require.NoError(t, err)
	assert.Equal(t, "/search", req.Path)
	assert.Equal(t, "a b", req.QueryParam("q"))
	assert.Equal(t, "1", req.QueryParam("x"))
}

func TestFromParserHTTP10DefaultsToClose(t *testing.T) {
	p := parseGood(t, "GET / HTTP/1.0\r\nHost: x\r\n\r\n")
	req, err := FromParser(p)
	require.NoError(t, err)
	assert.False(t, req.KeepAlive)
}

func TestFromParserHTTP10KeepAliveHeader(t *testing.T) {
	p := parseGood(t, "GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n")
	req, err := FromParser(p)
	require.NoError(t, err)
	assert.True(t, req.KeepAlive)
}

func TestFromParserHTTP11ConnectionClose(t *testing.T) {
	p := parseGood(t, "GET / HTTP/1.1\r\nConnection: close\r\n\r\n")
	req, err := FromParser(p)
	require.NoError(t, err)
	assert.False(t, req.KeepAlive)
}

func TestParseFormBody(t *testing.T) {
	req := &Request{}
	require.NoError(t, req.ParseForm([]byte("a=1&b=hello%20world")))
	assert.Equal(t, "1", req.FormParam("a"))
	assert.Equal(t, "hello world", req.FormParam("b"))
}

func TestFromParserMalformedPercentEscape(t *testing.T) {
	p := parseGood(t, "GET /bad%zz HTTP/1.1\r\n\r\n")
	_, err := FromParser(p)
	assert.Error(t, err)
}
