// Package upload turns picked or dropped files into independent multipart
// uploads and tracks each one as a record in a transfer.Store.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nebula-ui/nebula-upload/internal/dropzone"
	"github.com/nebula-ui/nebula-upload/internal/events"
	"github.com/nebula-ui/nebula-upload/internal/gate"
	httpclient "github.com/nebula-ui/nebula-upload/internal/http"
	"github.com/nebula-ui/nebula-upload/internal/logging"
	"github.com/nebula-ui/nebula-upload/internal/metrics"
	"github.com/nebula-ui/nebula-upload/internal/models"
	"github.com/nebula-ui/nebula-upload/internal/transfer"
)

// Uploader wires input batches through the before-upload check into
// transmissions. There is no queue: every admitted file starts at once.
type Uploader struct {
	cfg         Config
	store       *transfer.Store
	transmitter *Transmitter
	surface     *dropzone.Surface // set in drag mode only

	transport Transport
	target    Target
	picker    Picker
	bus       *events.EventBus
	logger    *logging.Logger
	metrics   *metrics.Metrics

	wg sync.WaitGroup // admissions and transmissions in flight
}

// New creates an Uploader. It fails with ErrNoAction when neither an Action
// URL nor a Target is configured.
func New(cfg Config, opts ...Option) (*Uploader, error) {
	u := &Uploader{cfg: cfg}
	for _, opt := range opts {
		opt(u)
	}

	if u.target == nil {
		if cfg.Action == "" {
			return nil, ErrNoAction
		}
		u.target = StaticTarget{URL: cfg.Action}
	}
	if u.transport == nil {
		jar, err := httpclient.NewCookieJar()
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		u.transport = NewHTTPTransport(nil, jar)
	}
	if u.logger == nil {
		u.logger = logging.NewNopLogger()
	}

	u.store = transfer.NewStore(u.bus, cfg.DefaultFileList...)
	u.transmitter = &Transmitter{
		cfg:       &u.cfg,
		header:    headerFrom(cfg.Headers),
		store:     u.store,
		transport: u.transport,
		target:    u.target,
		logger:    u.logger,
		metrics:   u.metrics,
		wg:        &u.wg,
	}
	if cfg.Drag {
		u.surface = dropzone.NewSurface(u.HandlePickResult, u.bus)
	}
	return u, nil
}

// Surface returns the drop surface files are dropped on, or nil unless
// Config.Drag is set.
func (u *Uploader) Surface() *dropzone.Surface {
	return u.surface
}

// TriggerPick asks the picker for files and handles the result. In drag
// mode it fails with ErrDragMode.
func (u *Uploader) TriggerPick(ctx context.Context) error {
	if u.cfg.Drag {
		return ErrDragMode
	}
	if u.picker == nil {
		return ErrNoPicker
	}
	files, err := u.picker.Pick(ctx, PickOptions{Accept: u.cfg.Accept, Multiple: u.cfg.Multiple})
	if err != nil {
		return fmt.Errorf("failed to pick files: %w", err)
	}
	u.HandlePickResult(ctx, files)
	return nil
}

// HandlePickResult runs each file through the before-upload check in order
// and starts the admitted ones. It never waits on a deferred check or an
// upload; use Wait for that.
func (u *Uploader) HandlePickResult(ctx context.Context, batch []*models.File) {
	for _, f := range batch {
		if f == nil {
			continue
		}
		u.admit(ctx, f)
	}
}

func (u *Uploader) admit(ctx context.Context, f *models.File) {
	admission := gate.Admit(ctx, u.cfg.BeforeUpload, f, func(admitted *models.File) {
		u.transmitter.Start(ctx, admitted)
	})

	switch admission.Kind() {
	case gate.KindReject:
		u.rejected(f)
	case gate.KindAcceptDeferred:
		u.wg.Add(1)
		go func() {
			defer u.wg.Done()
			err := admission.Wait()
			switch {
			case err == nil:
			case errors.Is(err, gate.ErrRejected):
				u.rejected(f)
			default:
				u.logger.Warn().Err(err).Str("name", f.Name).Msg("Dropping file: before-upload check failed")
			}
		}()
	}
}

func (u *Uploader) rejected(f *models.File) {
	u.metrics.UploadRejected()
	u.logger.Debug().Str("name", f.Name).Msg("File rejected by before-upload check")
}

// Remove deletes a record and reports it through OnRemove. Unknown ids are
// ignored. An upload still running for the record keeps going, but its
// results no longer reach the store.
func (u *Uploader) Remove(id string) bool {
	rec, ok := u.store.Remove(id)
	if !ok {
		return false
	}
	u.metrics.RecordRemoved()
	u.logger.Debug().
		Str("record_id", rec.ID).
		Str("name", rec.Name).
		Str("status", string(rec.Status)).
		Msg("Record removed")
	if u.cfg.OnRemove != nil {
		u.cfg.OnRemove(rec)
	}
	return true
}

// Records returns a copy of the current records, newest first.
func (u *Uploader) Records() []transfer.FileRecord {
	return u.store.Snapshot()
}

// Store returns the record store renderers read from.
func (u *Uploader) Store() *transfer.Store {
	return u.store
}

// Config returns the configuration the Uploader was built with.
func (u *Uploader) Config() Config {
	return u.cfg
}

// Wait blocks until every pending check and upload has finished.
func (u *Uploader) Wait() {
	u.wg.Wait()
}
