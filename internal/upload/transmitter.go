package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nebula-ui/nebula-upload/internal/logging"
	"github.com/nebula-ui/nebula-upload/internal/metrics"
	"github.com/nebula-ui/nebula-upload/internal/models"
	"github.com/nebula-ui/nebula-upload/internal/transfer"
)

// Transmitter performs one upload attempt per file. Each attempt owns one
// record in the store and runs on its own goroutine.
type Transmitter struct {
	cfg       *Config
	header    http.Header
	store     *transfer.Store
	transport Transport
	target    Target
	logger    *logging.Logger
	metrics   *metrics.Metrics
	wg        *sync.WaitGroup
}

// Start adds a ready record for raw and begins transmitting it. It returns
// the new record id without waiting for any network activity.
func (t *Transmitter) Start(ctx context.Context, raw *models.File) string {
	rec := t.store.Add(raw)
	t.logger.Debug().
		Str("record_id", rec.ID).
		Str("name", rec.Name).
		Str("status", string(rec.Status)).
		Msg("Upload queued")

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(ctx, rec.ID, raw)
	}()
	return rec.ID
}

func (t *Transmitter) run(ctx context.Context, id string, raw *models.File) {
	started := time.Now()
	t.metrics.UploadStarted()

	// Progress may be reported from the transport's goroutine. done stops
	// late reports once the outcome is known, keeping callbacks in order.
	var mu sync.Mutex
	done := false
	onProgress := func(loaded, total int64) {
		percent := Percent(loaded, total)
		if percent >= 100 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if done {
			return
		}
		if t.store.MarkProgress(id, percent) {
			t.logger.Debug().
				Str("record_id", id).
				Str("name", raw.Name).
				Str("status", string(transfer.StatusUploading)).
				Int("progress", percent).
				Msg("Upload progress")
		}
		if t.cfg.OnProgress != nil {
			t.cfg.OnProgress(percent, raw)
		}
	}

	response, err := t.send(ctx, raw, onProgress)

	mu.Lock()
	done = true
	mu.Unlock()

	if err != nil {
		t.metrics.UploadFinished(string(transfer.StatusError), time.Since(started))
		if !t.store.MarkError(id, err) {
			t.logger.Debug().Str("record_id", id).Msg("Record removed before upload failed")
		}
		t.logger.Warn().
			Err(err).
			Str("record_id", id).
			Str("name", raw.Name).
			Str("status", string(transfer.StatusError)).
			Msg("Upload failed")
		if t.cfg.OnError != nil {
			t.cfg.OnError(err, raw)
		}
		if t.cfg.OnChange != nil {
			t.cfg.OnChange(raw)
		}
		return
	}

	t.metrics.UploadFinished(string(transfer.StatusSuccess), time.Since(started))
	if !t.store.MarkSuccess(id, response) {
		t.logger.Debug().Str("record_id", id).Msg("Record removed before upload finished")
	}
	t.logger.Debug().
		Str("record_id", id).
		Str("name", raw.Name).
		Str("status", string(transfer.StatusSuccess)).
		Dur("elapsed", time.Since(started)).
		Msg("Upload succeeded")
	if t.cfg.OnSuccess != nil {
		t.cfg.OnSuccess(response, raw)
	}
	if t.cfg.OnChange != nil {
		t.cfg.OnChange(raw)
	}
}

// send resolves the endpoint, posts the file and decodes the reply.
// Every failure is returned as *Error.
func (t *Transmitter) send(ctx context.Context, raw *models.File, progress ProgressFunc) (any, error) {
	endpoint, err := t.target.Resolve(ctx, raw)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to resolve upload target: %w", err)}
	}

	body, err := NewMultipartBody(t.cfg.Name, mergeFields(t.cfg.Data, endpoint.Fields), raw)
	if err != nil {
		return nil, &Error{Err: err}
	}

	resp, err := t.transport.Send(ctx, &Request{
		URL:             endpoint.URL,
		Header:          t.header.Clone(),
		Body:            body,
		WithCredentials: t.cfg.WithCredentials,
	}, progress)
	if err != nil {
		return nil, &Error{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	response, err := decodeResponse(resp)
	if err != nil {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
			Err:        fmt.Errorf("invalid JSON response: %w", err),
		}
	}
	return response, nil
}

// mergeFields layers target fields over the configured ones.
func mergeFields(base, over map[string]string) map[string]string {
	if len(over) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range over {
		merged[k] = v
	}
	return merged
}

// decodeResponse returns decoded JSON for JSON replies, the body text for
// anything else, and nil for an empty body.
func decodeResponse(resp *Response) (any, error) {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, nil
	}
	if !isJSON(resp.Header.Get("Content-Type")) {
		return string(resp.Body), nil
	}
	var v any
	if err := json.Unmarshal(resp.Body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func headerFrom(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}
