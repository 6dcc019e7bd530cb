package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/nebula-ui/nebula-upload/internal/constants"
	"github.com/nebula-ui/nebula-upload/internal/models"
)

// MultipartBody is a multipart/form-data payload whose length is known before
// any bytes are sent. Static fields come first in key order, then the file.
type MultipartBody struct {
	FieldName string
	Fields    map[string]string
	File      *models.File

	boundary string
	head     []byte // field parts and the file part header
	tail     []byte // closing boundary
}

// NewMultipartBody lays out the payload for f under fieldName.
func NewMultipartBody(fieldName string, fields map[string]string, f *models.File) (*MultipartBody, error) {
	if fieldName == "" {
		fieldName = constants.DefaultFieldName
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(fieldName), escapeQuotes(f.Name)))
	h.Set("Content-Type", contentType)
	if _, err := w.CreatePart(h); err != nil {
		return nil, fmt.Errorf("failed to write file header: %w", err)
	}
	head := append([]byte(nil), buf.Bytes()...)

	buf.Reset()
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}
	tail := append([]byte(nil), buf.Bytes()...)

	return &MultipartBody{
		FieldName: fieldName,
		Fields:    fields,
		File:      f,
		boundary:  w.Boundary(),
		head:      head,
		tail:      tail,
	}, nil
}

// ContentType returns the multipart content type including the boundary.
func (b *MultipartBody) ContentType() string {
	return constants.MultipartContentType + "; boundary=" + b.boundary
}

// Len returns the exact number of bytes Open will produce.
func (b *MultipartBody) Len() int64 {
	return int64(len(b.head)) + b.File.Size + int64(len(b.tail))
}

// Open returns a reader streaming the payload. The file is opened now and
// closed with the returned reader.
func (b *MultipartBody) Open() (io.ReadCloser, error) {
	content, err := b.File.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", b.File.Name, err)
	}
	return &multiReadCloser{
		Reader: io.MultiReader(
			bytes.NewReader(b.head),
			&sizedReader{r: content, want: b.File.Size, name: b.File.Name},
			bytes.NewReader(b.tail),
		),
		closer: content,
	}, nil
}

type multiReadCloser struct {
	io.Reader
	closer io.Closer
}

func (m *multiReadCloser) Close() error {
	return m.closer.Close()
}

// sizedReader fails when the file no longer has the size it was picked with,
// since the declared content length would be wrong.
type sizedReader struct {
	r    io.Reader
	want int64
	read int64
	name string
}

func (s *sizedReader) Read(p []byte) (int, error) {
	if remaining := s.want - s.read; int64(len(p)) > remaining+1 {
		p = p[:remaining+1]
	}
	n, err := s.r.Read(p)
	s.read += int64(n)
	if s.read > s.want {
		return n, fmt.Errorf("%s grew after it was picked (expected %d bytes)", s.name, s.want)
	}
	if err == io.EOF && s.read < s.want {
		return n, fmt.Errorf("%s shrank after it was picked (expected %d bytes, read %d)", s.name, s.want, s.read)
	}
	return n, err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
