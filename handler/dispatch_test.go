package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raspine/beauty/filestore"
	"github.com/raspine/beauty/reply"
	"github.com/raspine/beauty/request"
)

// fakeStore is an in-memory filestore.Store for dispatch tests.
type fakeStore struct {
	files       map[string][]byte
	writing     map[string][]byte
	writeErr    string
	failWriteID string
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: map[string][]byte{}, writing: map[string][]byte{}}
}

func (s *fakeStore) OpenFileForRead(id string, _ *request.Request, rep *reply.Reply) int64 {
	data, ok := s.files[rep.FilePath]
	if !ok {
		return 0
	}
	s.writing[id] = data
	return int64(len(data))
}

func (s *fakeStore) ReadFile(id string, _ *request.Request, buf []byte) int {
	data := s.writing[id]
	n := copy(buf, data)
	s.writing[id] = data[n:]
	return n
}

func (s *fakeStore) OpenFileForWrite(id string, _ *request.Request, rep *reply.Reply) (filestore.WriteStatus, string) {
	if id == s.failWriteID {
		return filestore.StatusError, s.writeErr
	}
	_, existed := s.files[rep.FilePath]
	s.writing[id] = nil
	if existed {
		return filestore.StatusOK, ""
	}
	return filestore.StatusCreated, ""
}

func (s *fakeStore) WriteFile(id string, _ *request.Request, data []byte, finished bool) (filestore.WriteStatus, string) {
	if id == s.failWriteID {
		return filestore.StatusError, s.writeErr
	}
	s.writing[id] = append(s.writing[id], data...)
	if finished {
		s.files[id] = s.writing[id]
	}
	return filestore.StatusOK, ""
}

func (s *fakeStore) CloseReadFile(id string)  { delete(s.writing, id) }
func (s *fakeStore) CloseWriteFile(id string) {}

func TestOpenAndReadFileSingleChunk(t *testing.T) {
	store := newFakeStore()
	store.files["/a.txt"] = []byte("hello world")
	c := New(store, 1, nil)

	req := &request.Request{Method: "GET", URI: "/a.txt", Path: "/a.txt"}
	rep := reply.New(4096)
	c.Dispatch(req, rep)

	assert.Equal(t, reply.OK, rep.Status)
	assert.True(t, rep.FinalPart)
	assert.Equal(t, "hello world", string(rep.Body()))
}

func TestOpenAndReadFileChunked(t *testing.T) {
	store := newFakeStore()
	store.files["/a.txt"] = []byte("0123456789")
	c := New(store, 1, nil)

	req := &request.Request{Method: "GET", URI: "/a.txt", Path: "/a.txt"}
	rep := reply.New(4)
	c.Dispatch(req, rep)
	require.True(t, rep.ReplyPartial)
	require.False(t, rep.FinalPart)
	assert.Equal(t, "0123", string(rep.Body()))
	assert.Contains(t, string(rep.HeaderBytes()), "Content-Length: 10")

	rep2 := reply.New(4)
	c.ContinueRead(req, rep2)
	assert.True(t, rep2.ReplyPartial)
	assert.Equal(t, "4567", string(rep2.Body()))

	rep3 := reply.New(4)
	c.ContinueRead(req, rep3)
	assert.True(t, rep3.FinalPart)
	assert.Equal(t, "89", string(rep3.Body()))
}

func TestGetMissingFileIsNotFound(t *testing.T) {
	store := newFakeStore()
	c := New(store, 1, nil)
	req := &request.Request{Method: "GET", URI: "/nope.txt", Path: "/nope.txt"}
	rep := reply.New(4096)
	c.Dispatch(req, rep)
	assert.Equal(t, reply.NotFound, rep.Status)
}

func multipartBody(boundary, filename, content string) string {
	return "--" + boundary + "\r\n" +
		`Content-Disposition: form-data; name="file"; filename="` + filename + `"` + "\r\n\r\n" +
		content + "\r\n" +
		"--" + boundary + "--\r\n"
}

func TestPostMultipartSingleRefillWritesFile(t *testing.T) {
	store := newFakeStore()
	c := New(store, 1, nil)

	body := multipartBody("B", "up.txt", "payload")
	req := &request.Request{
		Method: "POST",
		URI:    "/upload",
		Path:   "/upload",
		Body:   []byte(body),
	}
	req.Header = map[string][]string{"Content-Type": {`multipart/form-data; boundary=B`}}

	rep := reply.New(4096)
	state := c.Dispatch(req, rep)
	require.NotNil(t, state)
	assert.True(t, rep.FinalPart)
	assert.Equal(t, reply.OK, rep.Status)
	assert.Empty(t, rep.Body())

	id := filestore.WriteID("/upload/up.txt", 1)
	assert.Equal(t, "payload", string(store.files[id]))
}

func TestPostMultipartSplitAcrossRefillsOpensOnPeek(t *testing.T) {
	store := newFakeStore()
	c := New(store, 7, nil)

	full := multipartBody("B", "up.txt", "payload")
	// The first refill ends exactly at the part's header terminator, so
	// the part is seen as a header-only lookahead before its body arrives.
	split := strings.Index(full, "\r\n\r\n") + len("\r\n\r\n")

	req := &request.Request{
		Method: "POST",
		Path:   "/upload",
		Header: map[string][]string{"Content-Type": {`multipart/form-data; boundary=B`}},
		Body:   []byte(full[:split]),
	}
	rep := reply.New(4096)
	state := c.Dispatch(req, rep)
	require.NotNil(t, state)
	assert.True(t, rep.ReplyPartial)

	id := filestore.WriteID("/upload/up.txt", 7)
	assert.Contains(t, store.writing, id, "write handle opened on the peeked header-only part")

	// The driver threads the same reply through every refill.
	req2 := &request.Request{Method: "POST", Path: "/upload", Body: []byte(full[split:])}
	c.ContinueWrite(req2, rep, state)
	assert.True(t, rep.FinalPart)

	assert.Equal(t, "payload", string(store.files[id]))
}

func TestPostMultipartWriteFailureAbortsWithErrorPrepend(t *testing.T) {
	store := newFakeStore()
	store.writeErr = "disk full"
	store.failWriteID = filestore.WriteID("/upload/up.txt", 3)
	c := New(store, 3, nil)

	body := multipartBody("B", "up.txt", "payload")
	req := &request.Request{
		Method: "POST",
		Path:   "/upload",
		Header: map[string][]string{"Content-Type": {`multipart/form-data; boundary=B`}},
		Body:   []byte(body),
	}
	rep := reply.New(4096)
	c.Dispatch(req, rep)

	assert.Equal(t, reply.InternalServerError, rep.Status)
	assert.Contains(t, string(rep.Body()), "disk full")
}

func TestUserHandlerShortCircuitsBuiltinDispatch(t *testing.T) {
	store := newFakeStore()
	c := New(store, 1, nil)
	c.Add(func(_ *request.Request, rep *reply.Reply) {
		rep.SendPtr(reply.OK, "text/plain", []byte("handled"))
		rep.ReturnToClient = true
	})

	req := &request.Request{Method: "GET", Path: "/anything"}
	rep := reply.New(4096)
	state := c.Dispatch(req, rep)

	assert.Nil(t, state)
	assert.Equal(t, "handled", string(rep.Body()))
}
