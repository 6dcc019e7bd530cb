// Package picker provides upload.Picker implementations for the command line:
// a fixed list of paths and an interactive prompt.
package picker

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nebula-ui/nebula-upload/internal/gate"
	"github.com/nebula-ui/nebula-upload/internal/localfs"
	"github.com/nebula-ui/nebula-upload/internal/models"
	"github.com/nebula-ui/nebula-upload/internal/upload"
)

// ErrMultiple is returned when more than one file is picked but the
// uploader only takes one at a time.
var ErrMultiple = errors.New("only one file may be picked")

// Paths picks the files named on the command line. Directories contribute
// their regular files, without recursing.
type Paths []string

// Pick loads every path, dropping files that do not match opts.Accept.
func (p Paths) Pick(ctx context.Context, opts upload.PickOptions) ([]*models.File, error) {
	return pick(ctx, p, false, opts)
}

// Tree picks like Paths but walks directories recursively.
type Tree []string

// Pick loads every path, dropping files that do not match opts.Accept.
func (t Tree) Pick(ctx context.Context, opts upload.PickOptions) ([]*models.File, error) {
	return pick(ctx, t, true, opts)
}

func pick(ctx context.Context, paths []string, recursive bool, opts upload.PickOptions) ([]*models.File, error) {
	accept := gate.ParseAccept(opts.Accept)

	var files []*models.File
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		expanded, err := expand(path, recursive)
		if err != nil {
			return nil, err
		}
		for _, f := range expanded {
			if accept.Match(f) {
				files = append(files, f)
			}
		}
	}

	if !opts.Multiple && len(files) > 1 {
		return nil, fmt.Errorf("%w: got %d", ErrMultiple, len(files))
	}
	return files, nil
}

// expand loads path, or the files inside it when it is a directory. A file
// named explicitly is loaded even when hidden.
func expand(path string, recursive bool) ([]*models.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	paths := []string{path}
	if info.IsDir() {
		if paths, err = localfs.ListFiles(path, recursive); err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
		}
	}

	files := make([]*models.File, 0, len(paths))
	for _, p := range paths {
		f, err := models.NewLocalFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

var (
	_ upload.Picker = Paths(nil)
	_ upload.Picker = Tree(nil)
)
