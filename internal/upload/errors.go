package upload

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoAction is returned when no upload URL is configured.
	ErrNoAction = errors.New("upload action URL is required")

	// ErrNoPicker is returned by TriggerPick when no picker is configured.
	ErrNoPicker = errors.New("no file picker configured")

	// ErrDragMode is returned by TriggerPick when files arrive through the
	// drop surface instead.
	ErrDragMode = errors.New("uploader is in drag mode, drop files on its surface")
)

// maxErrorBody bounds the response body quoted in error messages.
const maxErrorBody = 200

// Error is the failure attached to a record that ended in error.
// StatusCode is 0 when no response was received.
type Error struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upload failed: %v", e.Err)
	}
	msg := fmt.Sprintf("upload failed: server returned %d", e.StatusCode)
	if body := strings.TrimSpace(e.Body); body != "" {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody] + "..."
		}
		msg += ": " + body
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
