package models

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// File is a raw file handed to the uploader by a picker or a drop surface.
// Content can be opened more than once: the transmitter sizes the multipart
// body before streaming it.
type File struct {
	Name        string // Base name sent as the multipart filename
	Size        int64  // Size in bytes, captured when the file was picked
	ContentType string // Best-effort MIME type, "application/octet-stream" when unknown
	Path        string // Local path the content came from, empty for in-memory files

	open func() (io.ReadCloser, error)
}

// NewLocalFile stats a file on disk and returns a File reading from it.
func NewLocalFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return &File{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: contentTypeByName(path),
		Path:        path,
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// NewMemoryFile returns a File backed by data. The slice is not copied.
func NewMemoryFile(name string, data []byte) *File {
	return &File{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentTypeByName(name),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Open returns a fresh reader over the file content.
func (f *File) Open() (io.ReadCloser, error) {
	if f == nil || f.open == nil {
		return nil, fmt.Errorf("file has no content source")
	}
	return f.open()
}

// String returns a short representation for logs.
func (f *File) String() string {
	if f == nil {
		return "File[nil]"
	}
	return fmt.Sprintf("File[name=%s size=%d]", f.Name, f.Size)
}

func contentTypeByName(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
