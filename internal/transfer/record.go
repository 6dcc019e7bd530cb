// Package transfer holds the per-file upload records and the store that
// renderers read from.
package transfer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nebula-ui/nebula-upload/internal/constants"
	"github.com/nebula-ui/nebula-upload/internal/models"
)

// Status represents the current state of an upload record.
type Status string

const (
	StatusReady     Status = "ready"     // Accepted, no bytes sent yet
	StatusUploading Status = "uploading" // Bytes are moving
	StatusSuccess   Status = "success"   // Server accepted the file
	StatusError     Status = "error"     // Transport or server failure
)

// IsTerminal returns true for success and error.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

// rank orders statuses so the store can refuse backward transitions.
func (s Status) rank() int {
	switch s {
	case StatusReady:
		return 0
	case StatusUploading:
		return 1
	case StatusSuccess, StatusError:
		return 2
	default:
		return -1
	}
}

// FileRecord is the state of one accepted file.
// Values handed out by the Store are copies; mutate through the Store only.
type FileRecord struct {
	ID   string // Generated at creation, never reused
	Name string // Captured from the raw file at creation
	Size int64  // Captured from the raw file at creation

	Status   Status
	Progress int // 0..100, non-decreasing while uploading

	Raw *models.File // File that is (or was) transmitted

	// Set once on the terminal transition, mutually exclusive
	Response any
	Err      error

	CreatedAt   time.Time
	CompletedAt time.Time
}

// newRecord builds a ready record for a freshly accepted file.
func newRecord(raw *models.File) *FileRecord {
	return &FileRecord{
		ID:        generateRecordID(),
		Name:      raw.Name,
		Size:      raw.Size,
		Status:    StatusReady,
		Progress:  0,
		Raw:       raw,
		CreatedAt: time.Now(),
	}
}

// NewSeedRecord builds a record for an initial file list. Seeded records are
// display-only: they have no raw file and usually start in a terminal state.
func NewSeedRecord(name string, size int64, status Status, progress int) FileRecord {
	rec := FileRecord{
		ID:        generateRecordID(),
		Name:      name,
		Size:      size,
		Status:    status,
		Progress:  progress,
		CreatedAt: time.Now(),
	}
	if status.IsTerminal() {
		rec.CompletedAt = rec.CreatedAt
	}
	return rec
}

// IsTerminal returns true if the record reached success or error.
func (r FileRecord) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// String returns a string representation of the record
func (r FileRecord) String() string {
	return fmt.Sprintf("FileRecord[id=%s name=%s status=%s progress=%d]",
		r.ID, r.Name, r.Status, r.Progress)
}

// generateRecordID returns "upload-<unixnano>-<random>".
func generateRecordID() string {
	return fmt.Sprintf("%s-%d-%s", constants.RecordIDPrefix, time.Now().UnixNano(), uuid.NewString()[:8])
}
