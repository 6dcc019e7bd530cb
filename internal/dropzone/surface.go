// Package dropzone implements the drag-and-drop surface of the uploader: a
// hover flag driven by drag events, and a drop that hands files over without
// any checks of its own.
package dropzone

import (
	"context"
	"sync"

	"github.com/nebula-ui/nebula-upload/internal/events"
	"github.com/nebula-ui/nebula-upload/internal/models"
)

// Event is one drag event delivered to a Surface.
type Event struct {
	Files []*models.File

	defaultPrevented bool
}

// PreventDefault marks the event as handled by the surface, so the host
// does not apply its own behavior (opening the file, for instance).
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// Handler receives dropped files. Uploader.HandlePickResult fits.
type Handler func(ctx context.Context, files []*models.File)

// Surface tracks whether something is being dragged over it.
type Surface struct {
	handler Handler
	bus     *events.EventBus

	mu       sync.Mutex
	hovering bool
}

// NewSurface creates a Surface that passes drops to handler. Hover changes
// are published on bus when it is non-nil.
func NewSurface(handler Handler, bus *events.EventBus) *Surface {
	return &Surface{handler: handler, bus: bus}
}

// Hovering reports whether a drag is in progress over the surface.
func (s *Surface) Hovering() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hovering
}

// DragEnter marks the surface as hovered and claims the event.
func (s *Surface) DragEnter(ev *Event) {
	ev.PreventDefault()
	s.setHovering(true)
}

// DragOver keeps the hover flag set while a drag moves over the surface.
func (s *Surface) DragOver(ev *Event) {
	ev.PreventDefault()
	s.setHovering(true)
}

// DragLeave clears the hover flag. The event is left to the host.
func (s *Surface) DragLeave(ev *Event) {
	s.setHovering(false)
}

// Drop clears the hover flag and hands every file of ev to the handler.
func (s *Surface) Drop(ctx context.Context, ev *Event) {
	ev.PreventDefault()
	s.setHovering(false)
	if s.handler != nil && len(ev.Files) > 0 {
		s.handler(ctx, ev.Files)
	}
}

func (s *Surface) setHovering(v bool) {
	s.mu.Lock()
	changed := s.hovering != v
	s.hovering = v
	s.mu.Unlock()

	if changed && s.bus != nil {
		s.bus.PublishDragState(v)
	}
}
