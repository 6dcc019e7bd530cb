package progress

import (
	"fmt"
	"io"

	"github.com/nebula-ui/nebula-upload/internal/events"
	"github.com/nebula-ui/nebula-upload/internal/transfer"
)

// TextUI prints one line per lifecycle change, for logs and pipes.
type TextUI struct {
	*follower

	w       io.Writer
	started map[string]bool
}

// NewTextUI creates a line-oriented renderer writing to w.
func NewTextUI(store *transfer.Store, bus *events.EventBus, w io.Writer) *TextUI {
	u := &TextUI{w: w, started: make(map[string]bool)}
	u.follower = newFollower(store, bus, u)
	return u
}

func (u *TextUI) seed(rec transfer.FileRecord) {
	fmt.Fprintf(u.w, "Listed: %s (%s, %s)\n", rec.Name, FormatBytes(rec.Size), rec.Status)
}

func (u *TextUI) handle(ev *events.RecordEvent) {
	switch ev.Type() {
	case events.EventRecordAdded:
		fmt.Fprintf(u.w, "Queued: %s (%s)\n", ev.Name, FormatBytes(ev.Size))
	case events.EventRecordProgress:
		if !u.started[ev.RecordID] {
			u.started[ev.RecordID] = true
			fmt.Fprintf(u.w, "Uploading: %s\n", ev.Name)
		}
	case events.EventRecordSucceeded:
		fmt.Fprintf(u.w, "✓ %s\n", ev.Name)
	case events.EventRecordFailed:
		fmt.Fprintf(u.w, "✗ %s: %v\n", ev.Name, ev.Error)
	case events.EventRecordRemoved:
		delete(u.started, ev.RecordID)
		fmt.Fprintf(u.w, "Removed: %s\n", ev.Name)
	}
}

func (u *TextUI) finish() {}

func (u *TextUI) Writer() io.Writer {
	return u.w
}

func (u *TextUI) IsTerminal() bool {
	return false
}
