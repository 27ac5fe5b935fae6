package reply

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStockReplySetsHTMLAndStatus(t *testing.T) {
	r := New(4096)
	r.StockReply(NotFound)
	assert.Equal(t, NotFound, r.Status)
	assert.Contains(t, string(r.Body()), "404")
	header := string(r.HeaderBytes())
	assert.Contains(t, header, "HTTP/1.1 404 Not Found")
	assert.Contains(t, header, "Content-Type: text/html")
}

func TestAddHeaderPreservesDuplicateOrder(t *testing.T) {
	r := New(4096)
	r.AddHeader("Set-Cookie", "a=1")
	r.AddHeader("Set-Cookie", "b=2")
	header := string(r.HeaderBytes())
	assert.True(t, strings.Index(header, "a=1") < strings.Index(header, "b=2"))
}

func TestSetContentHeadersReusesExistingContentType(t *testing.T) {
	r := New(4096)
	r.AddHeader("Content-Type", "text/custom")
	r.SetContentHeaders(10, "txt", nil)
	header := string(r.HeaderBytes())
	assert.Contains(t, header, "text/custom")
	assert.NotContains(t, header, "text/plain")
}

func TestSetContentHeadersDerivesFromExtension(t *testing.T) {
	r := New(4096)
	r.SetContentHeaders(13, "txt", nil)
	header := string(r.HeaderBytes())
	assert.Contains(t, header, "Content-Length: 13")
	assert.Contains(t, header, "text/plain")
}

func TestSendPtrIsZeroCopy(t *testing.T) {
	r := New(4096)
	data := []byte("hello")
	r.SendPtr(OK, "text/plain", data)
	assert.Equal(t, "hello", string(r.Body()))

	// The reply holds the caller's slice, not a copy.
	data[0] = 'j'
	assert.Equal(t, "jello", string(r.Body()))
}

func TestPrependErrorText(t *testing.T) {
	r := New(4096)
	r.AddContent([]byte("partial"))
	r.PrependError("write failed: ")
	assert.Equal(t, "write failed: partial", string(r.Body()))
}
