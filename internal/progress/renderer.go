// Package progress renders the upload record list on a terminal. Renderers
// follow record events from the event bus; the store provides the records
// that existed before they started.
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/nebula-ui/nebula-upload/internal/events"
	"github.com/nebula-ui/nebula-upload/internal/transfer"
)

// Renderer displays records as they change.
type Renderer interface {
	// Start begins following record events.
	Start()

	// Stop handles every event already published, finishes the display and
	// returns once output is flushed.
	Stop()

	// Writer returns an io.Writer that safely outputs above the progress bars.
	Writer() io.Writer

	// IsTerminal returns true if progress bars are drawn
	IsTerminal() bool
}

// recordView reacts to individual record events.
type recordView interface {
	seed(rec transfer.FileRecord)
	handle(ev *events.RecordEvent)
	finish()
}

// NewRenderer picks a renderer for stderr: text lines when stderr is not a
// terminal, a single bar when exactly one file is expected, one bar per
// record otherwise.
func NewRenderer(store *transfer.Store, bus *events.EventBus, expected int) Renderer {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))
	if isTerminal {
		enableANSIOnWindows(os.Stderr)
	}

	switch {
	case !isTerminal:
		return NewTextUI(store, bus, os.Stderr)
	case expected == 1 && store.Len() == 0:
		return NewSingleUI(store, bus, os.Stderr)
	default:
		return NewListUI(store, bus, os.Stderr)
	}
}

// follower feeds record events from the bus into a view.
type follower struct {
	store *transfer.Store
	bus   *events.EventBus
	view  recordView

	ch       <-chan events.Event
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newFollower(store *transfer.Store, bus *events.EventBus, view recordView) *follower {
	f := &follower{
		store: store,
		bus:   bus,
		view:  view,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	// Subscribe before the caller starts uploading so no event is missed
	if bus != nil {
		f.ch = bus.SubscribeAll()
	}
	return f
}

func (f *follower) Start() {
	if f.store != nil {
		// Oldest first so the display reads top to bottom
		records := f.store.Snapshot()
		for i := len(records) - 1; i >= 0; i-- {
			f.view.seed(records[i])
		}
	}
	go f.loop()
}

func (f *follower) loop() {
	defer close(f.done)
	if f.ch == nil {
		<-f.stop
		return
	}

	for {
		select {
		case ev, ok := <-f.ch:
			if !ok {
				return
			}
			f.dispatch(ev)
		case <-f.stop:
			for {
				select {
				case ev, ok := <-f.ch:
					if !ok {
						return
					}
					f.dispatch(ev)
				default:
					return
				}
			}
		}
	}
}

func (f *follower) dispatch(ev events.Event) {
	if rec, ok := ev.(*events.RecordEvent); ok {
		f.view.handle(rec)
	}
}

func (f *follower) Stop() {
	f.stopOnce.Do(func() {
		close(f.stop)
		<-f.done
		if f.bus != nil {
			f.bus.UnsubscribeAll(f.ch)
		}
		f.view.finish()
	})
}

// PrintSummary writes one line with the final record counts.
func PrintSummary(w io.Writer, stats transfer.StoreStats) {
	fmt.Fprintf(w, "%d uploaded, %d failed", stats.Succeeded, stats.Failed)
	if pending := stats.Ready + stats.Uploading; pending > 0 {
		fmt.Fprintf(w, ", %d pending", pending)
	}
	fmt.Fprintln(w)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// truncateName shortens long file names, keeping the extension.
// Example: truncateName("quarterly-financial-report.pdf", 16) → "quarterly-f….pdf"
func truncateName(name string, max int) string {
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	ext := []rune(filepath.Ext(name))
	if len(ext) >= max-1 {
		return string(runes[:max-1]) + "…"
	}
	keep := max - len(ext) - 1
	return strings.TrimSpace(string(runes[:keep])) + "…" + string(ext)
}

// enableANSIOnWindows enables Virtual Terminal processing on Windows for ANSI escape sequences
// This is a no-op on non-Windows platforms
func enableANSIOnWindows(f *os.File) {
	if runtime.GOOS == "windows" {
		enableWindowsANSI(f)
	}
}
