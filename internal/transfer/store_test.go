package transfer

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nebula-ui/nebula-upload/internal/events"
	"github.com/nebula-ui/nebula-upload/internal/models"
)

func TestNewRecord(t *testing.T) {
	raw := models.NewMemoryFile("report.pdf", make([]byte, 1024))
	rec := newRecord(raw)

	if !strings.HasPrefix(rec.ID, "upload-") {
		t.Errorf("Expected id with 'upload-' prefix, got %s", rec.ID)
	}
	if rec.Name != "report.pdf" {
		t.Errorf("Expected name 'report.pdf', got %s", rec.Name)
	}
	if rec.Size != 1024 {
		t.Errorf("Expected size 1024, got %d", rec.Size)
	}
	if rec.Status != StatusReady {
		t.Errorf("Expected StatusReady, got %v", rec.Status)
	}
	if rec.Progress != 0 {
		t.Errorf("Expected progress 0, got %d", rec.Progress)
	}
	if rec.Raw != raw {
		t.Error("Record should reference the raw file")
	}
}

func TestRecordIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := generateRecordID()
		if seen[id] {
			t.Fatalf("Duplicate record id %s", id)
		}
		seen[id] = true
	}
}

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusReady, false},
		{StatusUploading, false},
		{StatusSuccess, true},
		{StatusError, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

// Store tests

func TestStoreAddPrepends(t *testing.T) {
	store := NewStore(nil)

	a := store.Add(models.NewMemoryFile("a.txt", []byte("a")))
	b := store.Add(models.NewMemoryFile("b.txt", []byte("b")))

	records := store.Snapshot()
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != b.ID || records[1].ID != a.ID {
		t.Errorf("Expected newest record first, got %s then %s", records[0].Name, records[1].Name)
	}
}

func TestStoreSeedKeepsOrder(t *testing.T) {
	seed := []FileRecord{
		NewSeedRecord("first.png", 10, StatusSuccess, 100),
		NewSeedRecord("second.png", 20, StatusError, 40),
	}
	store := NewStore(nil, seed...)

	records := store.Snapshot()
	if len(records) != 2 {
		t.Fatalf("Expected 2 seeded records, got %d", len(records))
	}
	if records[0].ID != seed[0].ID || records[1].ID != seed[1].ID {
		t.Error("Seeded records should keep their ids and order")
	}

	added := store.Add(models.NewMemoryFile("new.png", nil))
	if store.Snapshot()[0].ID != added.ID {
		t.Error("New record should be placed ahead of seeded records")
	}

	// Seeded terminal records never move
	if store.MarkProgress(seed[0].ID, 10) {
		t.Error("Terminal seeded record should refuse progress")
	}
}

func TestStoreProgressIsMonotonic(t *testing.T) {
	store := NewStore(nil)
	rec := store.Add(models.NewMemoryFile("data.csv", make([]byte, 100)))

	if !store.MarkProgress(rec.ID, 30) {
		t.Fatal("Expected progress update to be accepted")
	}
	got, _ := store.Get(rec.ID)
	if got.Status != StatusUploading || got.Progress != 30 {
		t.Errorf("Expected uploading at 30, got %s at %d", got.Status, got.Progress)
	}

	if store.MarkProgress(rec.ID, 20) {
		t.Error("Backward progress should be refused")
	}
	if !store.MarkProgress(rec.ID, 30) {
		t.Error("Repeated percentage should be accepted")
	}
	if store.MarkProgress(rec.ID, 101) || store.MarkProgress(rec.ID, -1) {
		t.Error("Out of range percentages should be refused")
	}

	got, _ = store.Get(rec.ID)
	if got.Progress != 30 {
		t.Errorf("Expected progress to stay at 30, got %d", got.Progress)
	}
}

func TestStoreTerminalTransitions(t *testing.T) {
	store := NewStore(nil)
	ok := store.Add(models.NewMemoryFile("ok.txt", nil))
	bad := store.Add(models.NewMemoryFile("bad.txt", nil))

	store.MarkProgress(ok.ID, 50)
	response := map[string]any{"id": float64(42)}
	if !store.MarkSuccess(ok.ID, response) {
		t.Fatal("Expected success transition")
	}

	failure := errors.New("server returned 500")
	if !store.MarkError(bad.ID, failure) {
		t.Fatal("Expected ready record to accept a terminal transition")
	}

	okRec, _ := store.Get(ok.ID)
	if okRec.Status != StatusSuccess {
		t.Errorf("Expected StatusSuccess, got %v", okRec.Status)
	}
	if okRec.Progress != 50 {
		t.Errorf("Progress should be retained after success, got %d", okRec.Progress)
	}
	if okRec.Err != nil {
		t.Error("Successful record should carry no error")
	}
	if okRec.CompletedAt.IsZero() {
		t.Error("CompletedAt should be set on terminal transition")
	}

	badRec, _ := store.Get(bad.ID)
	if badRec.Status != StatusError || !errors.Is(badRec.Err, failure) {
		t.Errorf("Expected error record carrying %v, got %s / %v", failure, badRec.Status, badRec.Err)
	}
	if badRec.Response != nil {
		t.Error("Failed record should carry no response")
	}

	// Terminal states are final
	if store.MarkError(ok.ID, failure) {
		t.Error("Success should not be overwritten by error")
	}
	if store.MarkSuccess(bad.ID, response) {
		t.Error("Error should not be overwritten by success")
	}
	if store.MarkProgress(ok.ID, 60) {
		t.Error("Progress after terminal should be refused")
	}
}

func TestStoreRemove(t *testing.T) {
	store := NewStore(nil)
	a := store.Add(models.NewMemoryFile("a.txt", nil))
	b := store.Add(models.NewMemoryFile("b.txt", nil))
	c := store.Add(models.NewMemoryFile("c.txt", nil))

	removed, ok := store.Remove(b.ID)
	if !ok {
		t.Fatal("Expected remove to succeed")
	}
	if removed.Name != "b.txt" {
		t.Errorf("Expected removed snapshot for b.txt, got %s", removed.Name)
	}

	records := store.Snapshot()
	if len(records) != 2 || records[0].ID != c.ID || records[1].ID != a.ID {
		t.Errorf("Survivors should keep their order, got %v", records)
	}

	if _, ok := store.Remove(b.ID); ok {
		t.Error("Second remove should be a no-op")
	}

	// Late updates for the removed id must not reinsert or touch other records
	if store.MarkProgress(b.ID, 40) {
		t.Error("Progress for removed record should be refused")
	}
	if store.MarkSuccess(b.ID, "late") {
		t.Error("Success for removed record should be refused")
	}
	if store.MarkError(b.ID, errors.New("late")) {
		t.Error("Error for removed record should be refused")
	}
	if store.Len() != 2 {
		t.Errorf("Expected 2 records after late updates, got %d", store.Len())
	}
	for _, rec := range store.Snapshot() {
		if rec.Status != StatusReady {
			t.Errorf("Record %s should be untouched, got %s", rec.Name, rec.Status)
		}
	}
}

func TestStoreStats(t *testing.T) {
	store := NewStore(nil, NewSeedRecord("seed.txt", 1, StatusSuccess, 100))
	a := store.Add(models.NewMemoryFile("a.txt", nil))
	b := store.Add(models.NewMemoryFile("b.txt", nil))
	store.Add(models.NewMemoryFile("c.txt", nil))

	store.MarkProgress(a.ID, 10)
	store.MarkError(b.ID, errors.New("boom"))

	stats := store.Stats()
	if stats.Ready != 1 || stats.Uploading != 1 || stats.Succeeded != 1 || stats.Failed != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.Total() != 4 {
		t.Errorf("Expected total 4, got %d", stats.Total())
	}
}

func TestStorePublishesEvents(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.SubscribeAll()

	store := NewStore(bus)
	rec := store.Add(models.NewMemoryFile("a.txt", []byte("abc")))
	store.MarkProgress(rec.ID, 30)
	store.MarkSuccess(rec.ID, "ok")
	store.Remove(rec.ID)

	want := []events.EventType{
		events.EventRecordAdded,
		events.EventRecordProgress,
		events.EventRecordSucceeded,
		events.EventRecordRemoved,
	}
	for i, eventType := range want {
		select {
		case event := <-ch:
			if event.Type() != eventType {
				t.Errorf("Event %d: expected %s, got %s", i, eventType, event.Type())
			}
			recEvent := event.(*events.RecordEvent)
			if recEvent.RecordID != rec.ID {
				t.Errorf("Event %d: expected record %s, got %s", i, rec.ID, recEvent.RecordID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for %s", eventType)
		}
	}
}

func TestStoreConcurrentUpdates(t *testing.T) {
	store := NewStore(nil)

	const files = 20
	ids := make([]string, files)
	for i := range ids {
		ids[i] = store.Add(models.NewMemoryFile("f.bin", make([]byte, 10))).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for p := 0; p < 100; p += 7 {
				store.MarkProgress(id, p)
			}
			store.MarkSuccess(id, id)
		}(id)
	}
	wg.Wait()

	for _, rec := range store.Snapshot() {
		if rec.Status != StatusSuccess {
			t.Errorf("Record %s: expected success, got %s", rec.ID, rec.Status)
		}
		if rec.Response != rec.ID {
			t.Errorf("Record %s received another record's response: %v", rec.ID, rec.Response)
		}
		if rec.Progress != 98 {
			t.Errorf("Record %s: expected progress 98, got %d", rec.ID, rec.Progress)
		}
	}
}
