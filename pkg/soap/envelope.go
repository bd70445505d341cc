package soap

import (
	"strconv"
	"strings"
)

// EscapeXML escapes &, <, >, " and ' with their named entities. The ampersand
// goes first so the entities added afterwards are left alone.
func EscapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

// Element renders <name>text</name> with text escaped.
func Element(name, text string) string {
	return "<" + name + ">" + EscapeXML(text) + "</" + name + ">"
}

// IntElement renders <name>n</name>.
func IntElement(name string, n int) string {
	return "<" + name + ">" + strconv.Itoa(n) + "</" + name + ">"
}

// Wrap nests already rendered fragments inside <name>...</name>.
func Wrap(name string, children ...string) string {
	var b strings.Builder
	b.WriteString("<" + name + ">")
	for _, c := range children {
		b.WriteString(c)
	}
	b.WriteString("</" + name + ">")
	return b.String()
}

// WrapEnvelope places a body fragment, verbatim, inside a SOAP envelope that
// binds the soap and user prefixes and carries an empty header.
func WrapEnvelope(fragment string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<soap:Envelope xmlns:soap="` + EnvelopeNamespace + `" xmlns:user="` + ServiceNamespace + `">` + "\n")
	b.WriteString("  <soap:Header/>\n")
	b.WriteString("  <soap:Body>\n")
	b.WriteString("    " + fragment + "\n")
	b.WriteString("  </soap:Body>\n")
	b.WriteString("</soap:Envelope>")
	return b.String()
}

// WrapFault renders a SOAP 1.1 fault envelope.
func WrapFault(code, message string) string {
	return WrapEnvelope(Wrap("soap:Fault",
		Element("faultcode", code),
		Element("faultstring", message),
	))
}

// Envelope renders f with WrapFault.
func (f *Fault) Envelope() string {
	return WrapFault(f.Code, f.Message)
}
