package upload

import (
	"context"

	"github.com/nebula-ui/nebula-upload/internal/models"
)

// Endpoint is where one file is posted, with the extra form fields that go
// with it.
type Endpoint struct {
	URL    string
	Fields map[string]string
}

// Target resolves the endpoint for a file. Resolution runs on the file's
// transmission goroutine; an error fails that upload only.
type Target interface {
	Resolve(ctx context.Context, f *models.File) (Endpoint, error)
}

// StaticTarget posts every file to the same URL with the same fields.
type StaticTarget struct {
	URL    string
	Fields map[string]string
}

// Resolve returns the configured endpoint.
func (t StaticTarget) Resolve(_ context.Context, _ *models.File) (Endpoint, error) {
	if t.URL == "" {
		return Endpoint{}, ErrNoAction
	}
	return Endpoint{URL: t.URL, Fields: t.Fields}, nil
}
