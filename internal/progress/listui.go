package progress

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/nebula-ui/nebula-upload/internal/constants"
	"github.com/nebula-ui/nebula-upload/internal/events"
	"github.com/nebula-ui/nebula-upload/internal/transfer"
)

// ListUI draws one bar per record using mpb
type ListUI struct {
	*follower

	progress *mpb.Progress
	bars     map[string]*recordBar // record id -> bar, owned by the follower goroutine
	mu       sync.Mutex
	started  int32 // Atomic counter for bar index (1, 2, 3, ...)
}

// recordBar is the bar of a single record
type recordBar struct {
	bar       *mpb.Bar
	index     int
	name      string
	size      int64
	startTime time.Time
	done      bool
}

// NewListUI creates a list renderer writing to w.
func NewListUI(store *transfer.Store, bus *events.EventBus, w io.Writer) *ListUI {
	u := &ListUI{
		progress: mpb.New(
			mpb.WithOutput(w),
			mpb.WithRefreshRate(constants.ProgressRefreshRate),
			mpb.WithWidth(constants.ProgressBarWidth),
		),
		bars: make(map[string]*recordBar),
	}
	u.follower = newFollower(store, bus, u)
	return u
}

// seed prints records that already finished and draws bars for the rest
func (u *ListUI) seed(rec transfer.FileRecord) {
	if rec.IsTerminal() {
		u.printResult(rec.Name, rec.Size, rec.Status == transfer.StatusSuccess, rec.Err, 0)
		return
	}
	fb := u.addBar(rec.ID, rec.Name, rec.Size)
	fb.bar.SetCurrent(int64(rec.Progress))
}

func (u *ListUI) handle(ev *events.RecordEvent) {
	u.mu.Lock()
	fb, exists := u.bars[ev.RecordID]
	u.mu.Unlock()

	switch ev.Type() {
	case events.EventRecordAdded:
		if !exists {
			u.addBar(ev.RecordID, ev.Name, ev.Size)
		}

	case events.EventRecordProgress:
		if !exists {
			fb = u.addBar(ev.RecordID, ev.Name, ev.Size)
		}
		if !fb.done {
			fb.bar.SetCurrent(int64(ev.Progress))
		}

	case events.EventRecordSucceeded, events.EventRecordFailed:
		if !exists {
			fb = u.addBar(ev.RecordID, ev.Name, ev.Size)
		}
		if fb.done {
			return
		}
		fb.done = true
		succeeded := ev.Type() == events.EventRecordSucceeded
		if succeeded {
			// The record may stop short of 100; reaching the total completes the bar
			fb.bar.SetCurrent(100)
		} else {
			fb.bar.Abort(false) // false = don't remove (show failure)
		}
		u.printResult(fb.name, fb.size, succeeded, ev.Error, time.Since(fb.startTime))

	case events.EventRecordRemoved:
		if exists && !fb.done {
			fb.done = true
			fb.bar.Abort(true)
		}
		u.mu.Lock()
		delete(u.bars, ev.RecordID)
		u.mu.Unlock()
	}
}

func (u *ListUI) addBar(id, name string, size int64) *recordBar {
	// Atomic increment to get unique bar index across all records
	index := int(atomic.AddInt32(&u.started, 1))

	fb := &recordBar{
		index:     index,
		name:      name,
		size:      size,
		startTime: time.Now(),
	}
	label := fmt.Sprintf("[%d] %s (%s)", index, truncateName(name, 40), FormatBytes(size))

	fb.bar = u.progress.New(100,
		// Custom bar style with Unicode block characters
		mpb.BarStyle().
			Lbound("[").
			Filler("█").  // U+2588 - Full block for completed portion
			Tip("█").     // Full block at leading edge
			Padding("░"). // U+2591 - Light shade for remaining portion
			Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(label, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncSpace),
			decor.Name("  "),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace),
		),
		mpb.BarRemoveOnComplete(),
	)

	u.mu.Lock()
	u.bars[id] = fb
	u.mu.Unlock()
	return fb
}

// printResult writes through mpb's writer (not stdout) to avoid triggering redraws
func (u *ListUI) printResult(name string, size int64, succeeded bool, err error, elapsed time.Duration) {
	var msg string
	if succeeded {
		msg = fmt.Sprintf("✓ %s (%s", name, FormatBytes(size))
		if elapsed > 0 {
			msg += ", " + elapsed.Round(time.Millisecond).String()
		}
		msg += ")\n"
	} else {
		msg = fmt.Sprintf("✗ %s: %v\n", name, err)
	}
	_, _ = u.progress.Write([]byte(msg))
}

// finish aborts bars that never reached a terminal state and waits for mpb
func (u *ListUI) finish() {
	u.mu.Lock()
	for _, fb := range u.bars {
		if !fb.done {
			fb.done = true
			fb.bar.Abort(false)
		}
	}
	u.mu.Unlock()
	u.progress.Wait()
}

// Writer returns an io.Writer that safely prints above the progress bars
func (u *ListUI) Writer() io.Writer {
	return u.progress
}

func (u *ListUI) IsTerminal() bool {
	return true
}
