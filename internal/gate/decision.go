// Package gate decides, per file, whether an upload goes ahead.
//
// A Check inspects a picked file and returns a Decision: reject it, accept it
// now (optionally swapping in a different file), or accept it later once a
// Future resolves. Only the deferred file's admission waits; other files in
// the same batch are unaffected.
package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/nebula-ui/nebula-upload/internal/models"
)

// Kind tags a Decision.
type Kind int

const (
	KindReject Kind = iota
	KindAcceptNow
	KindAcceptDeferred
)

func (k Kind) String() string {
	switch k {
	case KindReject:
		return "reject"
	case KindAcceptNow:
		return "accept"
	case KindAcceptDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	// ErrRejected is returned when a check rejects a file after a deferred step.
	ErrRejected = errors.New("file rejected")

	// ErrNoFile is returned when a deferred check resolves without a file.
	ErrNoFile = errors.New("deferred check resolved without a file")
)

// Check is the before-upload hook.
type Check func(f *models.File) Decision

// Decision is the result of a Check.
type Decision struct {
	kind   Kind
	file   *models.File
	future *Future
}

// Reject skips the file. No record is created and nothing is reported.
func Reject() Decision {
	return Decision{kind: KindReject}
}

// AcceptNow admits f immediately. A nil f admits the original file.
func AcceptNow(f *models.File) Decision {
	return Decision{kind: KindAcceptNow, file: f}
}

// AcceptDeferred admits whatever fut resolves to.
func AcceptDeferred(fut *Future) Decision {
	return Decision{kind: KindAcceptDeferred, future: fut}
}

// Allow maps a boolean hook result: false rejects, true accepts the original.
func Allow(ok bool) Decision {
	if !ok {
		return Reject()
	}
	return AcceptNow(nil)
}

// Kind returns the decision tag.
func (d Decision) Kind() Kind { return d.kind }

// File returns the replacement file of an AcceptNow decision, if any.
func (d Decision) File() *models.File { return d.file }

// Future returns the pending result of an AcceptDeferred decision.
func (d Decision) Future() *Future { return d.future }

// resolve turns any decision about original into the file to upload,
// blocking on deferred results.
func resolve(ctx context.Context, d Decision, original *models.File) (*models.File, error) {
	switch d.kind {
	case KindAcceptNow:
		if d.file != nil {
			return d.file, nil
		}
		return original, nil
	case KindAcceptDeferred:
		if d.future == nil {
			return nil, ErrNoFile
		}
		f, err := d.future.Await(ctx)
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, ErrNoFile
		}
		return f, nil
	default:
		return nil, ErrRejected
	}
}
