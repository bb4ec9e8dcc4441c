package dom

import (
	"fmt"
	"net/url"
)

// Location returns a copy of the page URL, or nil before Open.
func (p *Page) Location() *url.URL {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneURL(p.location)
}

// Resolve resolves ref against the page URL.
func (p *Page) Resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", ref, err)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.location == nil {
		return u, nil
	}
	return p.location.ResolveReference(u), nil
}

// ReplaceState rewrites the current history entry and the location without
// loading anything.
func (p *Page) ReplaceState(target string) error {
	u, err := p.Resolve(target)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replaceState(u)
	return nil
}

func (p *Page) replaceState(u *url.URL) {
	p.location = cloneURL(u)
	if len(p.history) == 0 {
		p.history = append(p.history, u.String())
		return
	}
	p.history[len(p.history)-1] = u.String()
}

// PushState adds a history entry for target and makes it the location.
func (p *Page) PushState(target string) error {
	u, err := p.Resolve(target)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.location = u
	p.history = append(p.history, u.String())
	return nil
}

// HistoryLen returns the number of history entries.
func (p *Page) HistoryLen() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.history)
}

// History returns the history entries, oldest first.
func (p *Page) History() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.history...)
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
