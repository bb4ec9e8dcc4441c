package dom

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Control types as reported by ControlType.
const (
	TypeText           = "text"
	TypeSearch         = "search"
	TypeCheckbox       = "checkbox"
	TypeRadio          = "radio"
	TypeSelectOne      = "select-one"
	TypeSelectMultiple = "select-multiple"
	TypeTextarea       = "textarea"
)

var (
	// ErrNotControl is returned when a form operation targets a node that
	// does not support it.
	ErrNotControl = errors.New("dom: node is not a suitable form control")
	// ErrNoSuchOption is returned by SelectOption for an unknown value.
	ErrNoSuchOption = errors.New("dom: no option with that value")
)

// ControlType returns the type of a form control the way browsers report it:
// the lower-cased type attribute of an input ("text" when missing),
// "select-one" or "select-multiple" for selects, "textarea". Other nodes
// yield "".
func (p *Page) ControlType(n *html.Node) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return controlType(n)
}

func controlType(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	switch n.DataAtom {
	case atom.Input:
		t := strings.ToLower(strings.TrimSpace(getAttr(n, "type")))
		if t == "" {
			return TypeText
		}
		return t
	case atom.Select:
		if hasAttr(n, "multiple") {
			return TypeSelectMultiple
		}
		return TypeSelectOne
	case atom.Textarea:
		return TypeTextarea
	}
	return ""
}

// Attr returns the attribute key of n.
func (p *Page) Attr(n *html.Node, key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if n == nil {
		return "", false
	}
	return attr(n, key)
}

// Name returns the name attribute of n.
func (p *Page) Name(n *html.Node) string {
	v, _ := p.Attr(n, "name")
	return v
}

// Checked reports whether n carries the checked attribute.
func (p *Page) Checked(n *html.Node) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return n != nil && hasAttr(n, "checked")
}

// Value returns the current value of a form control. Checkboxes and radios
// without a value attribute report "on"; a select reports its selected
// option (the first option when none is marked).
func (p *Page) Value(n *html.Node) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch controlType(n) {
	case "":
		return ""
	case TypeCheckbox, TypeRadio:
		if v, ok := attr(n, "value"); ok {
			return v
		}
		return "on"
	case TypeSelectOne, TypeSelectMultiple:
		opts := options(n)
		for _, o := range opts {
			if hasAttr(o, "selected") {
				return optionValue(o)
			}
		}
		if len(opts) > 0 {
			return optionValue(opts[0])
		}
		return ""
	case TypeTextarea:
		return textContent(n)
	default:
		return getAttr(n, "value")
	}
}

// SetValue sets the value of an input, textarea or select.
func (p *Page) SetValue(n *html.Node, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch controlType(n) {
	case "":
		return fmt.Errorf("set value on <%s>: %w", nodeName(n), ErrNotControl)
	case TypeSelectOne, TypeSelectMultiple:
		return selectOption(n, value)
	case TypeTextarea:
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		return nil
	default:
		setAttr(n, "value", value)
		return nil
	}
}

// SetChecked checks or unchecks a checkbox or radio. Checking a radio
// unchecks the other radios of the same name in the same form.
func (p *Page) SetChecked(n *html.Node, checked bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	typ := controlType(n)
	if typ != TypeCheckbox && typ != TypeRadio {
		return fmt.Errorf("check <%s type=%q>: %w", nodeName(n), typ, ErrNotControl)
	}
	if !checked {
		removeAttr(n, "checked")
		return nil
	}
	if typ == TypeRadio {
		name := getAttr(n, "name")
		group := formOf(n)
		if group == nil {
			group = p.root()
		}
		for _, other := range matchIn(group, "input[type=radio]") {
			if other != n && getAttr(other, "name") == name {
				removeAttr(other, "checked")
			}
		}
	}
	setAttr(n, "checked", "checked")
	return nil
}

// SelectOption marks the option whose value is value as selected. On a
// single select every other option is deselected.
func (p *Page) SelectOption(n *html.Node, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return selectOption(n, value)
}

func selectOption(n *html.Node, value string) error {
	typ := controlType(n)
	if typ != TypeSelectOne && typ != TypeSelectMultiple {
		return fmt.Errorf("select on <%s>: %w", nodeName(n), ErrNotControl)
	}
	var target *html.Node
	opts := options(n)
	for _, o := range opts {
		if optionValue(o) == value {
			target = o
			break
		}
	}
	if target == nil {
		return fmt.Errorf("select %q: %w", value, ErrNoSuchOption)
	}
	if typ == TypeSelectOne {
		for _, o := range opts {
			removeAttr(o, "selected")
		}
	}
	setAttr(target, "selected", "selected")
	return nil
}

func options(sel *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Option:
				out = append(out, c)
			case atom.Optgroup:
				walk(c)
			}
		}
	}
	walk(sel)
	return out
}

func optionValue(o *html.Node) string {
	if v, ok := attr(o, "value"); ok {
		return v
	}
	return strings.TrimSpace(textContent(o))
}

func formOf(n *html.Node) *html.Node {
	for c := n.Parent; c != nil; c = c.Parent {
		if c.Type == html.ElementNode && c.DataAtom == atom.Form {
			return c
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func nodeName(n *html.Node) string {
	if n == nil {
		return "nil"
	}
	return n.Data
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func getAttr(n *html.Node, key string) string {
	v, _ := attr(n, key)
	return v
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attr(n, key)
	return ok
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}
