package progress

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/nebula-ui/nebula-upload/internal/constants"
	"github.com/nebula-ui/nebula-upload/internal/events"
	"github.com/nebula-ui/nebula-upload/internal/transfer"
)

// SingleUI draws one progress bar for a single-file upload.
type SingleUI struct {
	*follower

	w   io.Writer
	bar *progressbar.ProgressBar
	id  string // record the bar follows
}

// NewSingleUI creates a single-bar renderer writing to w.
func NewSingleUI(store *transfer.Store, bus *events.EventBus, w io.Writer) *SingleUI {
	u := &SingleUI{w: w}
	u.follower = newFollower(store, bus, u)
	return u
}

func (u *SingleUI) seed(rec transfer.FileRecord) {
	if rec.IsTerminal() {
		u.result(rec.Name, rec.Status == transfer.StatusSuccess, rec.Err)
	}
}

func (u *SingleUI) handle(ev *events.RecordEvent) {
	if u.id == "" && ev.Type() != events.EventRecordRemoved {
		u.start(ev.RecordID, ev.Name, ev.Size)
	}
	if ev.RecordID != u.id || u.bar == nil {
		return
	}

	switch ev.Type() {
	case events.EventRecordProgress:
		_ = u.bar.Set(ev.Progress)
	case events.EventRecordSucceeded:
		_ = u.bar.Finish()
		u.bar = nil
		u.result(ev.Name, true, nil)
	case events.EventRecordFailed:
		_ = u.bar.Clear()
		u.bar = nil
		u.result(ev.Name, false, ev.Error)
	case events.EventRecordRemoved:
		_ = u.bar.Clear()
		u.bar = nil
	}
}

// start initializes the progress bar for the first record seen.
func (u *SingleUI) start(id, name string, size int64) {
	u.id = id
	u.bar = progressbar.NewOptions(100,
		progressbar.OptionSetDescription(fmt.Sprintf("%s (%s)", truncateName(name, 40), FormatBytes(size))),
		progressbar.OptionSetWriter(u.w),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(constants.SingleBarThrottle),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(u.w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (u *SingleUI) result(name string, succeeded bool, err error) {
	if succeeded {
		fmt.Fprintf(u.w, "✓ %s\n", name)
		return
	}
	fmt.Fprintf(u.w, "✗ %s: %v\n", name, err)
}

func (u *SingleUI) finish() {
	if u.bar != nil {
		_ = u.bar.Clear()
		u.bar = nil
	}
}

func (u *SingleUI) Writer() io.Writer {
	return u.w
}

func (u *SingleUI) IsTerminal() bool {
	return true
}
