package dom

import (
	"golang.org/x/net/html"
)

// Standard event names.
const (
	EventChange           = "change"
	EventClick            = "click"
	EventDOMContentLoaded = "DOMContentLoaded"
)

// Event is dispatched to listeners of a node or of the document.
type Event struct {
	Type string
	// Target is nil for document-level events.
	Target *html.Node
	// Detail carries the payload of custom events.
	Detail any

	prevented bool
}

// NewEvent returns an event of the given type.
func NewEvent(typ string) *Event {
	return &Event{Type: typ}
}

// NewCustomEvent returns a document-level event carrying detail.
func NewCustomEvent(typ string, detail any) *Event {
	return &Event{Type: typ, Detail: detail}
}

// PreventDefault cancels the default action that follows dispatch.
func (e *Event) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.prevented }

// Listener handles a dispatched event.
type Listener func(*Event)

type registration struct {
	id   uint64
	node *html.Node // nil for document listeners
	typ  string
	fn   Listener
}

// Subscription is a registered listener. The zero value is inert.
type Subscription struct {
	page *Page
	id   uint64
}

// Detach unregisters the listener. Calling it more than once is harmless.
func (s Subscription) Detach() {
	if s.page == nil {
		return
	}
	s.page.mu.Lock()
	delete(s.page.listeners, s.id)
	s.page.mu.Unlock()
}

// Active reports whether the listener is still registered.
func (s Subscription) Active() bool {
	if s.page == nil {
		return false
	}
	s.page.mu.RLock()
	defer s.page.mu.RUnlock()
	_, ok := s.page.listeners[s.id]
	return ok
}
