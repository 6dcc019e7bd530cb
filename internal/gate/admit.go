package gate

import (
	"context"

	"github.com/nebula-ui/nebula-upload/internal/models"
)

// Admission is the result of running a check on one file.
type Admission struct {
	kind    Kind
	settled chan struct{}
	err     error
}

// Kind returns the tag of the decision that produced this admission.
func (a *Admission) Kind() Kind { return a.kind }

// Wait blocks until the admission settles. It returns nil when the file was
// accepted, ErrRejected when it was rejected, and the deferred failure
// otherwise.
func (a *Admission) Wait() error {
	<-a.settled
	return a.err
}

// Admit runs check on f and hands the admitted file to accept.
//
// Without a check the original file is accepted. Reject and AcceptNow are
// handled before Admit returns. AcceptDeferred returns at once; a goroutine
// awaits the Future and calls accept with the resolved file. Failed or
// empty futures drop the file and surface through Wait.
func Admit(ctx context.Context, check Check, f *models.File, accept func(*models.File)) *Admission {
	if check == nil {
		accept(f)
		return settled(KindAcceptNow, nil)
	}

	d := check(f)
	switch d.Kind() {
	case KindReject:
		return settled(KindReject, ErrRejected)
	case KindAcceptNow:
		admitted, _ := resolve(ctx, d, f)
		accept(admitted)
		return settled(KindAcceptNow, nil)
	}

	a := &Admission{kind: KindAcceptDeferred, settled: make(chan struct{})}
	go func() {
		defer close(a.settled)
		admitted, err := resolve(ctx, d, f)
		if err != nil {
			a.err = err
			return
		}
		accept(admitted)
	}()
	return a
}

func settled(kind Kind, err error) *Admission {
	a := &Admission{kind: kind, settled: make(chan struct{}), err: err}
	close(a.settled)
	return a
}
