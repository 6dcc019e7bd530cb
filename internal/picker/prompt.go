package picker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nebula-ui/nebula-upload/internal/gate"
	"github.com/nebula-ui/nebula-upload/internal/models"
	"github.com/nebula-ui/nebula-upload/internal/upload"
)

// Prompt asks for file paths on a terminal, one per line. With multiple
// files allowed, an empty line ends the list.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

// NewPrompt returns a Prompt on stdin and stdout.
func NewPrompt() *Prompt {
	return &Prompt{In: os.Stdin, Out: os.Stdout}
}

// Pick reads paths until the list is complete. Paths that cannot be read or
// do not match the accept list are reported and asked again.
func (p *Prompt) Pick(ctx context.Context, opts upload.PickOptions) ([]*models.File, error) {
	accept := gate.ParseAccept(opts.Accept)
	reader := bufio.NewReader(p.In)

	if opts.Multiple {
		fmt.Fprintln(p.Out, "Enter file paths, one per line. Empty line to finish.")
	} else {
		fmt.Fprintln(p.Out, "Enter a file path.")
	}
	if opts.Accept != "" {
		fmt.Fprintf(p.Out, "Accepted: %s\n", opts.Accept)
	}

	var files []*models.File
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fmt.Fprint(p.Out, "> ")

		input, err := reader.ReadString('\n')
		input = strings.Trim(strings.TrimSpace(input), `"'`)
		if err != nil && (err != io.EOF || input == "") {
			if err == io.EOF {
				return files, nil
			}
			return nil, err
		}

		if input == "" {
			if opts.Multiple || len(files) > 0 {
				return files, nil
			}
			continue
		}

		f, loadErr := models.NewLocalFile(input)
		switch {
		case loadErr != nil:
			fmt.Fprintf(p.Out, "Cannot use %s: %v\n", input, loadErr)
		case !accept.Match(f):
			fmt.Fprintf(p.Out, "%s is not an accepted file type.\n", f.Name)
		default:
			files = append(files, f)
			if !opts.Multiple {
				return files, nil
			}
		}

		if err == io.EOF {
			return files, nil
		}
	}
}

var _ upload.Picker = (*Prompt)(nil)
