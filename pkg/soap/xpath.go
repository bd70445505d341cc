package soap

import (
	"strings"

	"github.com/beevik/etree"
)

// findLocal returns the first element under e (e included) whose local name is
// tag, ignoring namespace prefixes. Search is depth-first in document order.
func findLocal(e *etree.Element, tag string) *etree.Element {
	if e == nil {
		return nil
	}
	if e.Tag == tag {
		return e
	}
	for _, c := range e.ChildElements() {
		if found := findLocal(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// childElements returns e's direct children whose local name is tag.
func childElements(e *etree.Element, tag string) []*etree.Element {
	if e == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// childText returns the trimmed text of e's first direct child named tag, or "".
func childText(e *etree.Element, tag string) string {
	if e == nil {
		return ""
	}
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			return strings.TrimSpace(c.Text())
		}
	}
	return ""
}

// findBody locates the SOAP Body of a parsed envelope.
func findBody(doc *etree.Document) *etree.Element {
	return findLocal(doc.Root(), "Body")
}
