package receiver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nebula-ui/nebula-upload/internal/validation"
)

// ErrNotFound is returned for unknown file ids.
var ErrNotFound = errors.New("file not found")

// FileInfo describes one stored upload.
type FileInfo struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Size        int64             `json:"size"`
	Fields      map[string]string `json:"fields"`
	ContentType string            `json:"content_type,omitempty"`
	StoredAt    time.Time         `json:"stored_at"`
}

// LocalStore keeps uploaded files in a directory, each under a generated id.
// Metadata lives in memory only.
type LocalStore struct {
	mu    sync.RWMutex
	dir   string
	files map[string]*FileInfo
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStore{
		dir:   dir,
		files: make(map[string]*FileInfo),
	}, nil
}

// Save writes r to disk and records its metadata.
func (s *LocalStore) Save(name, contentType string, fields map[string]string, r io.Reader) (*FileInfo, error) {
	id := uuid.New().String()
	path, err := validation.JoinInDirectory(s.dir, id)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	if fields == nil {
		fields = map[string]string{}
	}
	info := &FileInfo{
		ID:          id,
		Name:        name,
		Size:        size,
		Fields:      fields,
		ContentType: contentType,
		StoredAt:    time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info
	return info, nil
}

// Get returns a copy of the metadata for id.
func (s *LocalStore) Get(id string) (FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *info, nil
}

// List returns up to limit files, most recent first.
func (s *LocalStore) List(limit int) []FileInfo {
	s.mu.RLock()
	list := make([]FileInfo, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, *info)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].StoredAt.After(list[j].StoredAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

// Dir returns the storage directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Open returns the stored content of id.
func (s *LocalStore) Open(id string) (io.ReadCloser, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	path, err := validation.JoinInDirectory(s.dir, id)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes the file and its metadata.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	path, err := validation.JoinInDirectory(s.dir, id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}
	delete(s.files, id)
	return nil
}
