package upload

import (
	"context"

	"github.com/nebula-ui/nebula-upload/internal/events"
	"github.com/nebula-ui/nebula-upload/internal/gate"
	"github.com/nebula-ui/nebula-upload/internal/logging"
	"github.com/nebula-ui/nebula-upload/internal/metrics"
	"github.com/nebula-ui/nebula-upload/internal/models"
	"github.com/nebula-ui/nebula-upload/internal/transfer"
)

// Config is the host-facing surface of an Uploader.
//
// Callbacks for one file are called from that file's goroutine in lifecycle
// order: OnProgress (zero or more times), then OnSuccess or OnError, then
// OnChange. They still fire after the file's record has been removed.
type Config struct {
	// Where and how files are posted
	Action          string            // Upload URL
	Name            string            // Multipart field for the file, "file" when empty
	Headers         map[string]string // Extra request headers
	Data            map[string]string // Extra form fields
	WithCredentials bool              // Send and keep cookies across uploads

	// Picker and drop surface options
	Accept   string // Accept list passed to the picker, e.g. ".png,image/*"
	Multiple bool   // Allow picking more than one file
	Drag     bool   // Files arrive through Surface instead of TriggerPick

	// Records shown before anything is uploaded
	DefaultFileList []transfer.FileRecord

	BeforeUpload gate.Check
	OnProgress   func(percent int, f *models.File)
	OnSuccess    func(response any, f *models.File)
	OnError      func(err error, f *models.File)
	OnChange     func(f *models.File)
	OnRemove     func(rec transfer.FileRecord)
}

// PickOptions constrain what a Picker may return.
type PickOptions struct {
	Accept   string
	Multiple bool
}

// Picker asks the user for files. An empty batch means the user picked
// nothing.
type Picker interface {
	Pick(ctx context.Context, opts PickOptions) ([]*models.File, error)
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) Option {
	return func(u *Uploader) { u.transport = t }
}

// WithTarget replaces the static Action target.
func WithTarget(t Target) Option {
	return func(u *Uploader) { u.target = t }
}

// WithPicker sets the picker used by TriggerPick.
func WithPicker(p Picker) Option {
	return func(u *Uploader) { u.picker = p }
}

// WithEventBus publishes record changes on bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(u *Uploader) { u.bus = bus }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logging.Logger) Option {
	return func(u *Uploader) { u.logger = l }
}

// WithMetrics records upload metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(u *Uploader) { u.metrics = m }
}
