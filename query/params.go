// Package query implements the query-string bookkeeping behind a smart table:
// parsing a URL's parameters, merging upserts and deletions into them and
// rebuilding the navigation target.
package query

import (
	"net/url"
	"strings"
)

// Params is a query parameter set. Keys are unique and keep the position in
// which they were first seen, so a rebuilt query string reads like the
// original one.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams returns an empty parameter set.
func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// ParseQuery parses a raw query string (with or without the leading '?').
//
// Parsing is best-effort: empty segments are skipped, a segment without '='
// becomes a key with an empty value, '+' decodes to a space and a malformed
// percent escape leaves the segment text as-is.
func ParseQuery(raw string) *Params {
	p := NewParams()
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return p
	}
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			continue
		}
		k, v, _ := strings.Cut(seg, "=")
		p.Set(DecodeComponent(k), DecodeComponent(v))
	}
	return p
}

// Get returns the value stored for key.
func (p *Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p *Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Set upserts key. An existing key keeps its position.
func (p *Params) Set(key, value string) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Del removes key. Removing an absent key is a no-op.
func (p *Params) Del(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of parameters.
func (p *Params) Len() int { return len(p.keys) }

// Keys returns the parameter names in order.
func (p *Params) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Map returns a copy of the set as a plain map.
func (p *Params) Map() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Values converts the set to url.Values, one value per key.
func (p *Params) Values() url.Values {
	out := make(url.Values, len(p.values))
	for k, v := range p.values {
		out.Set(k, v)
	}
	return out
}

// Encode serializes the set as "k=v&k2=v2" with every key and value encoded
// independently. It returns "" for an empty set.
func (p *Params) Encode() string {
	if len(p.keys) == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(EncodeComponent(k))
		b.WriteByte('=')
		b.WriteString(EncodeComponent(p.values[k]))
	}
	return b.String()
}

// EncodeComponent percent-encodes s for use as a query key or value. Spaces
// become "%20", never '+', so the result decodes the same under strict
// percent-decoding and under form decoding.
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// DecodeComponent decodes a query key or value with form semantics: '+' is a
// space. When s holds an invalid escape only the '+' substitution is applied.
func DecodeComponent(s string) string {
	out, err := url.QueryUnescape(s)
	if err != nil {
		return strings.ReplaceAll(s, "+", " ")
	}
	return out
}
