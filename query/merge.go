package query

import (
	"fmt"
	"net/url"
)

type change struct {
	key    string
	value  string
	remove bool
}

// Changes is a merge request: an ordered list of upserts and deletions to
// apply to a parameter set. Later entries for the same key win.
type Changes struct {
	entries []change
}

// NewChanges returns an empty merge request.
func NewChanges() *Changes {
	return &Changes{}
}

// Set records an upsert of key to value.
func (c *Changes) Set(key, value string) *Changes {
	c.entries = append(c.entries, change{key: key, value: value})
	return c
}

// Remove records the deletion of key.
func (c *Changes) Remove(key string) *Changes {
	c.entries = append(c.entries, change{key: key, remove: true})
	return c
}

// SetOrRemove upserts key when value is non-empty and removes it otherwise.
func (c *Changes) SetOrRemove(key, value string) *Changes {
	if value == "" {
		return c.Remove(key)
	}
	return c.Set(key, value)
}

// Len returns the number of recorded entries.
func (c *Changes) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Apply merges c into p in place. Keys not named by c are left untouched.
func (c *Changes) Apply(p *Params) {
	if c == nil {
		return
	}
	for _, e := range c.entries {
		if e.remove {
			p.Del(e.key)
			continue
		}
		p.Set(e.key, e.value)
	}
}

// Merge computes the navigation target for current with c applied to its
// query string. The result is origin + path + query; the fragment is
// dropped and the '?' is omitted when no parameters remain.
func Merge(current *url.URL, c *Changes) string {
	p := ParseQuery(current.RawQuery)
	c.Apply(p)

	target := origin(current) + current.EscapedPath()
	if qs := p.Encode(); qs != "" {
		target += "?" + qs
	}
	return target
}

// MergeString is Merge for a raw URL.
func MergeString(raw string, c *Changes) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	return Merge(u, c), nil
}

func origin(u *url.URL) string {
	if u.Scheme == "" && u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
