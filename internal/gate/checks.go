package gate

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/nebula-ui/nebula-upload/internal/models"
)

// MaxSize rejects files larger than limit bytes. A limit <= 0 accepts all.
func MaxSize(limit int64) Check {
	return func(f *models.File) Decision {
		if limit > 0 && f.Size > limit {
			return Reject()
		}
		return AcceptNow(nil)
	}
}

// AcceptFilter rejects files that do not match an accept list such as
// ".png,.jpg", "application/pdf" or "image/*".
func AcceptFilter(accept string) Check {
	list := ParseAccept(accept)
	return func(f *models.File) Decision {
		return Allow(list.Match(f))
	}
}

// Gzip replaces each file with a gzip-compressed in-memory copy named
// "<name>.gz". Compression runs off the caller's goroutine.
func Gzip() Check {
	return func(f *models.File) Decision {
		return AcceptDeferred(Defer(context.Background(), func(ctx context.Context) (*models.File, error) {
			return compress(ctx, f)
		}))
	}
}

func compress(ctx context.Context, f *models.File) (*models.File, error) {
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer r.Close()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Name = f.Name
	if _, err := io.Copy(zw, r); err != nil {
		return nil, fmt.Errorf("failed to compress %s: %w", f.Name, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress %s: %w", f.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := models.NewMemoryFile(f.Name+".gz", buf.Bytes())
	out.ContentType = "application/gzip"
	out.Path = f.Path
	return out, nil
}

// Chain runs checks in order. The first rejection wins; a replacement file
// from one check is what the next check sees. Once a check defers, the rest of
// the chain continues when that result arrives.
func Chain(checks ...Check) Check {
	return func(f *models.File) Decision {
		return chainFrom(checks, f)
	}
}

func chainFrom(checks []Check, f *models.File) Decision {
	current := f
	for i, check := range checks {
		if check == nil {
			continue
		}
		d := check(current)
		switch d.Kind() {
		case KindReject:
			return Reject()
		case KindAcceptNow:
			if d.File() != nil {
				current = d.File()
			}
		case KindAcceptDeferred:
			rest := checks[i+1:]
			return AcceptDeferred(Defer(context.Background(), func(ctx context.Context) (*models.File, error) {
				next, err := resolve(ctx, d, current)
				if err != nil {
					return nil, err
				}
				return resolve(ctx, chainFrom(rest, next), next)
			}))
		}
	}
	if current == f {
		return AcceptNow(nil)
	}
	return AcceptNow(current)
}

// AcceptList is a parsed accept attribute.
type AcceptList struct {
	extensions []string // ".png", lower case
	exact      []string // "application/pdf"
	prefixes   []string // "image/" from "image/*"
}

// ParseAccept parses a comma separated accept list. Empty entries are ignored.
func ParseAccept(accept string) AcceptList {
	var list AcceptList
	for _, entry := range strings.Split(accept, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "":
			continue
		case entry == "*" || entry == "*/*":
			list.prefixes = append(list.prefixes, "")
		case strings.HasPrefix(entry, "."):
			list.extensions = append(list.extensions, entry)
		case strings.HasSuffix(entry, "/*"):
			list.prefixes = append(list.prefixes, strings.TrimSuffix(entry, "*"))
		default:
			list.exact = append(list.exact, entry)
		}
	}
	return list
}

// Empty reports whether the list accepts everything.
func (l AcceptList) Empty() bool {
	return len(l.extensions) == 0 && len(l.exact) == 0 && len(l.prefixes) == 0
}

// Match reports whether f is acceptable. Extensions are checked against the
// file name; MIME entries against the sniffed content type, falling back to
// the declared one.
func (l AcceptList) Match(f *models.File) bool {
	if l.Empty() {
		return true
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	for _, e := range l.extensions {
		if ext == e {
			return true
		}
	}
	if len(l.exact) == 0 && len(l.prefixes) == 0 {
		return false
	}

	for _, ct := range contentTypes(f) {
		for _, e := range l.exact {
			if ct == e {
				return true
			}
		}
		for _, p := range l.prefixes {
			if strings.HasPrefix(ct, p) {
				return true
			}
		}
	}
	return false
}

// contentTypes returns the sniffed MIME type with its parents, then the
// declared one, all without parameters.
func contentTypes(f *models.File) []string {
	var types []string
	if r, err := f.Open(); err == nil {
		m, err := mimetype.DetectReader(r)
		r.Close()
		if err == nil {
			for ; m != nil; m = m.Parent() {
				types = append(types, baseType(m.String()))
			}
		}
	}
	if f.ContentType != "" {
		types = append(types, baseType(f.ContentType))
	}
	return types
}

func baseType(ct string) string {
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return strings.ToLower(ct)
}
