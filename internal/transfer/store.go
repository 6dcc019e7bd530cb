package transfer

import (
	"sync"
	"time"

	"github.com/nebula-ui/nebula-upload/internal/events"
	"github.com/nebula-ui/nebula-upload/internal/models"
)

// StoreStats holds per-status record counts.
type StoreStats struct {
	Ready     int
	Uploading int
	Succeeded int
	Failed    int
}

// Total returns total number of records in the store.
func (s StoreStats) Total() int {
	return s.Ready + s.Uploading + s.Succeeded + s.Failed
}

// Store is the ordered, id-keyed set of upload records.
//
// Every transmission mutates only its own record, addressed by id. Updates
// for ids that are no longer present are dropped, so a removed record is
// never reinserted and no other record is touched. Records only move forward
// (ready -> uploading -> success|error).
//
// Renderers read copies via Snapshot and listen for changes on the event bus.
type Store struct {
	records []*FileRecord          // Head first
	byID    map[string]*FileRecord // Index by ID for quick lookup
	mu      sync.RWMutex

	eventBus *events.EventBus
}

// NewStore creates a store seeded with an initial file list, kept in the
// given order. Seed ids are preserved; empty ids are generated.
func NewStore(eventBus *events.EventBus, seed ...FileRecord) *Store {
	s := &Store{
		records:  make([]*FileRecord, 0, len(seed)),
		byID:     make(map[string]*FileRecord, len(seed)),
		eventBus: eventBus,
	}
	for i := range seed {
		rec := seed[i]
		if rec.ID == "" {
			rec.ID = generateRecordID()
		}
		if _, dup := s.byID[rec.ID]; dup {
			continue
		}
		if rec.Status == "" {
			rec.Status = StatusSuccess
		}
		s.records = append(s.records, &rec)
		s.byID[rec.ID] = &rec
	}
	return s
}

// Add creates a ready record for raw at the head of the store.
func (s *Store) Add(raw *models.File) FileRecord {
	rec := newRecord(raw)

	s.mu.Lock()
	s.records = append([]*FileRecord{rec}, s.records...)
	s.byID[rec.ID] = rec
	snapshot := *rec
	s.mu.Unlock()

	s.publish(events.EventRecordAdded, snapshot)
	return snapshot
}

// MarkProgress moves a record to uploading with the given percentage.
// Returns false when the record is gone, already terminal, or the percentage
// would move backwards.
func (s *Store) MarkProgress(id string, percent int) bool {
	if percent < 0 || percent > 100 {
		return false
	}

	s.mu.Lock()
	rec, exists := s.byID[id]
	if !exists || rec.Status.IsTerminal() || percent < rec.Progress {
		s.mu.Unlock()
		return false
	}
	rec.Status = StatusUploading
	rec.Progress = percent
	snapshot := *rec
	s.mu.Unlock()

	// Publish outside lock to avoid holding lock during event dispatch
	s.publish(events.EventRecordProgress, snapshot)
	return true
}

// MarkSuccess records the server response and moves the record to success.
func (s *Store) MarkSuccess(id string, response any) bool {
	snapshot, ok := s.finish(id, StatusSuccess, response, nil)
	if ok {
		s.publish(events.EventRecordSucceeded, snapshot)
	}
	return ok
}

// MarkError records the failure and moves the record to error.
func (s *Store) MarkError(id string, err error) bool {
	snapshot, ok := s.finish(id, StatusError, nil, err)
	if ok {
		s.publish(events.EventRecordFailed, snapshot)
	}
	return ok
}

func (s *Store) finish(id string, status Status, response any, err error) (FileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.byID[id]
	if !exists || rec.Status.rank() >= status.rank() {
		return FileRecord{}, false
	}
	rec.Status = status
	rec.Response = response
	rec.Err = err
	rec.CompletedAt = time.Now()
	return *rec, true
}

// Remove deletes a record and returns its last state.
// The order of the remaining records is preserved.
func (s *Store) Remove(id string) (FileRecord, bool) {
	s.mu.Lock()
	rec, exists := s.byID[id]
	if !exists {
		s.mu.Unlock()
		return FileRecord{}, false
	}
	delete(s.byID, id)
	filtered := make([]*FileRecord, 0, len(s.records)-1)
	for _, r := range s.records {
		if r.ID != id {
			filtered = append(filtered, r)
		}
	}
	s.records = filtered
	snapshot := *rec
	s.mu.Unlock()

	s.publish(events.EventRecordRemoved, snapshot)
	return snapshot, true
}

// Get returns a copy of a specific record by ID.
func (s *Store) Get(id string) (FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.byID[id]
	if !exists {
		return FileRecord{}, false
	}
	return *rec, true
}

// Snapshot returns a copy of all records, head first.
func (s *Store) Snapshot() []FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]FileRecord, len(s.records))
	for i, rec := range s.records {
		result[i] = *rec
	}
	return result
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Stats returns current per-status counts.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StoreStats{}
	for _, rec := range s.records {
		switch rec.Status {
		case StatusReady:
			stats.Ready++
		case StatusUploading:
			stats.Uploading++
		case StatusSuccess:
			stats.Succeeded++
		case StatusError:
			stats.Failed++
		}
	}
	return stats
}

// publish sends a record event built from a snapshot taken under the lock.
func (s *Store) publish(eventType events.EventType, rec FileRecord) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.PublishRecord(eventType, rec.ID, rec.Name, rec.Size, string(rec.Status), rec.Progress, rec.Err)
}
