package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nebula-ui/nebula-upload/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	// Record store events
	EventRecordAdded     EventType = "record_added"     // New record inserted at the head
	EventRecordProgress  EventType = "record_progress"  // Sub-100% progress tick
	EventRecordSucceeded EventType = "record_succeeded" // Terminal success
	EventRecordFailed    EventType = "record_failed"    // Terminal error
	EventRecordRemoved   EventType = "record_removed"   // Explicit removal

	// Drop surface events
	EventDragState EventType = "drag_state" // Hover flag changed
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// RecordEvent reports a change to one FileRecord
type RecordEvent struct {
	BaseEvent
	RecordID string // FileRecord id
	Name     string // Display name (filename)
	Size     int64  // File size in bytes
	Status   string // Status after the change
	Progress int    // 0..100
	Error    error  // Set on record_failed
}

// DragStateEvent reports a hover change on a drop surface
type DragStateEvent struct {
	BaseEvent
	Hovering bool
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
// Events for full subscribers are dropped and counted.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishRecord is a convenience method for publishing record events
func (eb *EventBus) PublishRecord(eventType EventType, id, name string, size int64, status string, progress int, err error) {
	eb.Publish(&RecordEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Time:      time.Now(),
		},
		RecordID: id,
		Name:     name,
		Size:     size,
		Status:   status,
		Progress: progress,
		Error:    err,
	})
}

// PublishDragState is a convenience method for publishing hover changes
func (eb *EventBus) PublishDragState(hovering bool) {
	eb.Publish(&DragStateEvent{
		BaseEvent: BaseEvent{
			EventType: EventDragState,
			Time:      time.Now(),
		},
		Hovering: hovering,
	})
}

// UnsubscribeAll removes a subscription channel from all event types
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType, subscribers := range eb.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range eb.all {
		if subCh == ch {
			eb.all[i] = eb.all[len(eb.all)-1]
			eb.all = eb.all[:len(eb.all)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers.
// A renderer that missed a terminal event leaves that record's bar aborted.
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
