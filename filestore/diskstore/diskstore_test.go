package diskstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raspine/beauty/filestore"
	"github.com/raspine/beauty/reply"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	rep := reply.New(4096)
	rep.FilePath = "/upload/a.txt"
	status, errText := s.OpenFileForWrite("w1", nil, rep)
	require.Equal(t, filestore.StatusCreated, status)
	require.Empty(t, errText)

	status, errText = s.WriteFile("w1", nil, []byte("Hello"), true)
	require.Equal(t, filestore.StatusOK, status)
	require.Empty(t, errText)

	data, err := os.ReadFile(filepath.Join(dir, "upload", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(data))

	readRep := reply.New(4096)
	readRep.FilePath = "/upload/a.txt"
	size := s.OpenFileForRead("r1", nil, readRep)
	require.EqualValues(t, 5, size)

	buf := make([]byte, 1024)
	n := s.ReadFile("r1", nil, buf)
	assert.Equal(t, "Hello", string(buf[:n]))
}

func TestOpenFileForReadMissingReturnsZero(t *testing.T) {
	s := New(t.TempDir(), nil)
	rep := reply.New(4096)
	rep.FilePath = "/nope.txt"
	assert.EqualValues(t, 0, s.OpenFileForRead("r1", nil, rep))
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New(t.TempDir(), nil)
	assert.NotPanics(t, func() {
		s.CloseReadFile("unknown")
		s.CloseReadFile("unknown")
		s.CloseWriteFile("unknown")
		s.CloseWriteFile("unknown")
	})
}

func TestWriteToUnopenedIDFails(t *testing.T) {
	s := New(t.TempDir(), nil)
	status, errText := s.WriteFile("never-opened", nil, []byte("x"), false)
	assert.Equal(t, filestore.StatusError, status)
	assert.NotEmpty(t, errText)
}

func TestSecondOpenForWriteReturnsOKNotCreated(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "upload"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "upload", "a.txt"), []byte("x"), 0o644))

	s := New(dir, nil)
	rep := reply.New(4096)
	rep.FilePath = "/upload/a.txt"
	status, _ := s.OpenFileForWrite("w1", nil, rep)
	assert.Equal(t, filestore.StatusOK, status)
}
