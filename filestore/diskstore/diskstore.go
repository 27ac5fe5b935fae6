// Package diskstore is a POSIX-filesystem-backed reference
// implementation of filestore.Store, grounded on the original
// FileHandler's docRoot + per-id open-handle-map design.
package diskstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/raspine/beauty/filestore"
	"github.com/raspine/beauty/reply"
	"github.com/raspine/beauty/request"
)

// Store serves reads and writes from files under DocRoot, one *os.File
// per open id. At most one read handle and one write handle exist per
// id at a time, matching spec invariant 5.
type Store struct {
	DocRoot string
	Logger  *zap.Logger

	mu         sync.Mutex
	readFiles  map[string]*os.File
	writeFiles map[string]*os.File
}

// New returns a Store rooted at docRoot.
func New(docRoot string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		DocRoot:    docRoot,
		Logger:     logger,
		readFiles:  make(map[string]*os.File),
		writeFiles: make(map[string]*os.File),
	}
}

func (s *Store) resolve(logicalPath string) string {
	return filepath.Join(s.DocRoot, filepath.Clean("/"+logicalPath))
}

// OpenFileForRead implements filestore.Store.
func (s *Store) OpenFileForRead(id string, req *request.Request, rep *reply.Reply) int64 {
	f, err := os.Open(s.resolve(rep.FilePath))
	if err != nil {
		s.Logger.Debug("open for read failed", zap.String("id", id), zap.Error(err))
		return 0
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0
	}

	s.mu.Lock()
	s.readFiles[id] = f
	s.mu.Unlock()
	return info.Size()
}

// ReadFile implements filestore.Store.
func (s *Store) ReadFile(id string, req *request.Request, buf []byte) int {
	s.mu.Lock()
	f := s.readFiles[id]
	s.mu.Unlock()
	if f == nil {
		return 0
	}
	n, _ := f.Read(buf)
	return n
}

// OpenFileForWrite implements filestore.Store.
func (s *Store) OpenFileForWrite(id string, req *request.Request, rep *reply.Reply) (filestore.WriteStatus, string) {
	path := s.resolve(rep.FilePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return filestore.StatusError, errors.Wrap(err, "create parent directory").Error()
	}
	_, statErr := os.Stat(path)
	f, err := os.Create(path)
	if err != nil {
		return filestore.StatusError, errors.Wrap(err, "create file").Error()
	}

	s.mu.Lock()
	s.writeFiles[id] = f
	s.mu.Unlock()

	if os.IsNotExist(statErr) {
		return filestore.StatusCreated, ""
	}
	return filestore.StatusOK, ""
}

// WriteFile implements filestore.Store.
func (s *Store) WriteFile(id string, req *request.Request, data []byte, finished bool) (filestore.WriteStatus, string) {
	s.mu.Lock()
	f := s.writeFiles[id]
	s.mu.Unlock()
	if f == nil {
		return filestore.StatusError, errors.Errorf("write to unopened id %s", id).Error()
	}
	if _, err := f.Write(data); err != nil {
		return filestore.StatusError, errors.Wrap(err, "write file").Error()
	}
	if finished {
		s.CloseWriteFile(id)
	}
	return filestore.StatusOK, ""
}

// CloseReadFile implements filestore.Store. Idempotent.
func (s *Store) CloseReadFile(id string) {
	s.mu.Lock()
	f := s.readFiles[id]
	delete(s.readFiles, id)
	s.mu.Unlock()
	if f != nil {
		f.Close()
	}
}

// CloseWriteFile implements filestore.Store. Idempotent.
func (s *Store) CloseWriteFile(id string) {
	s.mu.Lock()
	f := s.writeFiles[id]
	delete(s.writeFiles, id)
	s.mu.Unlock()
	if f != nil {
		f.Close()
	}
}
