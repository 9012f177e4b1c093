package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// fileDocument is the on-disk layout. Keys mirror the host storage slots.
type fileDocument struct {
	Token  string      `json:"token"`
	Record *PushRecord `json:"notify.pushRecord,omitempty"`
}

// FileStore keeps the credential and record in a JSON file.
// Every write replaces the file atomically. External edits to the file are
// picked up on the next read.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path. The file is created on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Token reads the credential from the file. A missing file means no credential.
func (s *FileStore) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return "", err
	}
	return normalizeToken(doc.Token), nil
}

// SetToken rewrites the file with token, keeping the push record.
func (s *FileStore) SetToken(ctx context.Context, token string) error {
	return s.update(func(doc *fileDocument) {
		doc.Token = normalizeToken(token)
	})
}

// LoadRecord returns the stored push record, or a zero record.
func (s *FileStore) LoadRecord(ctx context.Context) (PushRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return PushRecord{}, err
	}
	if doc.Record == nil {
		return PushRecord{}, nil
	}
	return *doc.Record, nil
}

// SaveRecord replaces the push record.
func (s *FileStore) SaveRecord(ctx context.Context, rec PushRecord) error {
	return s.update(func(doc *fileDocument) {
		doc.Record = &rec
	})
}

// ClearRecord removes the push record, keeping the credential.
func (s *FileStore) ClearRecord(ctx context.Context) error {
	return s.update(func(doc *fileDocument) {
		doc.Record = nil
	})
}

func (s *FileStore) update(fn func(*fileDocument)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	fn(&doc)
	return s.write(doc)
}

func (s *FileStore) read() (fileDocument, error) {
	var doc fileDocument

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, errors.Join(ErrStoreUnavailable, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, errors.Join(ErrCorruptStore, fmt.Errorf("%s: %w", s.path, err))
	}
	return doc, nil
}

func (s *FileStore) write(doc fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	tmp, err := os.CreateTemp(dir, ".notify-store-*")
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Join(ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Join(ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
