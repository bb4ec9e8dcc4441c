// Package dom models the browsing context a smart table runs in: one HTML
// document, the listeners bound to its nodes, its location and its history.
//
// Every exported method is safe for concurrent use. Listeners are invoked
// without any lock held, so they may call back into the page.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	// ErrNoDocument is returned before a document has been opened.
	ErrNoDocument = errors.New("dom: no document loaded")
	// ErrDetached is returned when a node is no longer part of the document.
	ErrDetached = errors.New("dom: node is not attached to the document")
	// ErrNoMatch is returned when no element matches a selector.
	ErrNoMatch = errors.New("dom: no element matches the selector")
)

// Page is a single browsing context.
type Page struct {
	mu         sync.RWMutex
	doc        *goquery.Document
	location   *url.URL
	history    []string
	ready      bool
	generation uint64

	nextID    uint64
	listeners map[uint64]registration
}

// NewPage returns a page with no document.
func NewPage() *Page {
	return &Page{listeners: make(map[uint64]registration)}
}

// Open installs doc as the page's document at loc. Listeners bound to nodes
// of the previous document are dropped; document listeners survive. A new
// history entry is pushed.
func (p *Page) Open(doc *goquery.Document, loc *url.URL) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, reg := range p.listeners {
		if reg.node != nil {
			delete(p.listeners, id)
		}
	}
	p.doc = doc
	p.location = cloneURL(loc)
	p.history = append(p.history, p.location.String())
	p.ready = true
	p.generation++
}

// Ready reports whether a document has been opened.
func (p *Page) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// Generation counts document swaps performed by Open.
func (p *Page) Generation() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generation
}

// Root returns the document node, or nil before Open.
func (p *Page) Root() *html.Node {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root()
}

func (p *Page) root() *html.Node {
	if p.doc == nil || len(p.doc.Nodes) == 0 {
		return nil
	}
	return p.doc.Nodes[0]
}

// View runs fn with read access to the document. fn must not retain the
// document or call other Page methods.
func (p *Page) View(fn func(doc *goquery.Document)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc == nil {
		return ErrNoDocument
	}
	fn(p.doc)
	return nil
}

// Find returns the document nodes matching selector, in document order.
func (p *Page) Find(selector string) []*html.Node {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc == nil {
		return nil
	}
	return p.doc.Find(selector).Nodes
}

// First returns the first node matching selector, or nil.
func (p *Page) First(selector string) *html.Node {
	nodes := p.Find(selector)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// FindIn returns the nodes matching selector within scope, scope itself
// included.
func (p *Page) FindIn(scope *html.Node, selector string) []*html.Node {
	if scope == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return matchIn(scope, selector)
}

// FirstIn returns the first node matching selector within scope, or nil.
func (p *Page) FirstIn(scope *html.Node, selector string) *html.Node {
	nodes := p.FindIn(scope, selector)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func matchIn(scope *html.Node, selector string) []*html.Node {
	sel := goquery.NewDocumentFromNode(scope).Selection
	out := append([]*html.Node(nil), sel.Filter(selector).Nodes...)
	return append(out, sel.Find(selector).Nodes...)
}

// Contains reports whether n is part of the current document.
func (p *Page) Contains(n *html.Node) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.attached(n)
}

func (p *Page) attached(n *html.Node) bool {
	root := p.root()
	if root == nil || n == nil {
		return false
	}
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

// Replace swaps old for fresh at the same position under the same parent.
// fresh is detached from whatever tree it came from first. Listeners bound
// inside old are dropped.
func (p *Page) Replace(old, fresh *html.Node) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.doc == nil {
		return ErrNoDocument
	}
	return p.replace(old, fresh)
}

// ReplaceFirst swaps the first element matching selector for fresh and, when
// loc is not nil, rewrites the current history entry to loc. Matching,
// swapping and the location change happen under one lock, so a concurrent
// swap can never detach the match in between. It returns the replaced node.
func (p *Page) ReplaceFirst(selector string, fresh *html.Node, loc *url.URL) (*html.Node, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.doc == nil {
		return nil, ErrNoDocument
	}
	nodes := p.doc.Find(selector).Nodes
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	old := nodes[0]
	if err := p.replace(old, fresh); err != nil {
		return nil, err
	}
	if loc != nil {
		p.replaceState(loc)
	}
	return old, nil
}

func (p *Page) replace(old, fresh *html.Node) error {
	if !p.attached(old) || old.Parent == nil {
		return ErrDetached
	}
	if fresh.Parent != nil {
		fresh.Parent.RemoveChild(fresh)
	}
	parent := old.Parent
	parent.InsertBefore(fresh, old)
	parent.RemoveChild(old)

	for id, reg := range p.listeners {
		if reg.node != nil && within(old, reg.node) {
			delete(p.listeners, id)
		}
	}
	return nil
}

func within(ancestor, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}

// Listen registers fn for events of type typ dispatched to n. A node that is
// not part of the document gets an inert subscription.
func (p *Page) Listen(n *html.Node, typ string, fn Listener) Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.attached(n) {
		return Subscription{}
	}
	return p.register(n, typ, fn)
}

// ListenDocument registers fn for document-level events of type typ.
func (p *Page) ListenDocument(typ string, fn Listener) Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.register(nil, typ, fn)
}

func (p *Page) register(n *html.Node, typ string, fn Listener) Subscription {
	p.nextID++
	p.listeners[p.nextID] = registration{id: p.nextID, node: n, typ: typ, fn: fn}
	return Subscription{page: p, id: p.nextID}
}

// ListenerCount returns the number of listeners bound to n.
func (p *Page) ListenerCount(n *html.Node) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	count := 0
	for _, reg := range p.listeners {
		if reg.node == n {
			count++
		}
	}
	return count
}

// Dispatch delivers ev to the listeners of n in registration order. Events
// do not bubble.
func (p *Page) Dispatch(n *html.Node, ev *Event) {
	ev.Target = n
	for _, fn := range p.matching(n, ev.Type) {
		fn(ev)
	}
}

// DispatchDocument delivers ev to the document listeners.
func (p *Page) DispatchDocument(ev *Event) {
	ev.Target = nil
	for _, fn := range p.matching(nil, ev.Type) {
		fn(ev)
	}
}

func (p *Page) matching(n *html.Node, typ string) []Listener {
	p.mu.RLock()
	regs := make([]registration, 0, 4)
	for _, reg := range p.listeners {
		if reg.node == n && reg.typ == typ {
			regs = append(regs, reg)
		}
	}
	p.mu.RUnlock()

	sort.Slice(regs, func(i, j int) bool { return regs[i].id < regs[j].id })
	out := make([]Listener, len(regs))
	for i, reg := range regs {
		out[i] = reg.fn
	}
	return out
}

// HTML renders the whole document.
func (p *Page) HTML() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	root := p.root()
	if root == nil {
		return "", ErrNoDocument
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return buf.String(), nil
}

// OuterHTML renders n.
func (p *Page) OuterHTML(n *html.Node) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", fmt.Errorf("render node: %w", err)
	}
	return buf.String(), nil
}
