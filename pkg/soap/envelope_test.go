package soap

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeXML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a&b", "a&amp;b"},
		{"<tag>", "&lt;tag&gt;"},
		{`say "hi"`, "say &quot;hi&quot;"},
		{"it's", "it&apos;s"},
		{"&lt;", "&amp;lt;"},
		{`&<>"'`, "&amp;&lt;&gt;&quot;&apos;"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeXML(tt.in))
		})
	}
}

// Escaped text must decode back to the original through a standard parser.
func TestEscapeXML_RoundTrip(t *testing.T) {
	inputs := []string{
		"alice",
		"O'Brien & Sons <ltd>",
		`"quoted" &amp; already escaped`,
		"]]> <![CDATA[ x ]]>",
		"ünïcødé ✓",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			doc := etree.NewDocument()
			require.NoError(t, doc.ReadFromString(Element("v", in)))
			assert.Equal(t, in, doc.Root().Text())
		})
	}
}

func TestElementHelpers(t *testing.T) {
	assert.Equal(t, "<user:id>42</user:id>", IntElement("user:id", 42))
	assert.Equal(t, "<a>&lt;b&gt;</a>", Element("a", "<b>"))
	assert.Equal(t, "<a><b>1</b><c>2</c></a>", Wrap("a", "<b>1</b>", "<c>2</c>"))
	assert.Equal(t, "<a></a>", Wrap("a"))
}

func TestWrapEnvelope(t *testing.T) {
	out := WrapEnvelope("<user:Thing>x</user:Thing>")

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out))

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "Envelope", root.Tag)
	assert.Equal(t, "soap", root.Space)
	assert.Equal(t, EnvelopeNamespace, root.SelectAttrValue("xmlns:soap", ""))
	assert.Equal(t, ServiceNamespace, root.SelectAttrValue("xmlns:user", ""))

	children := root.ChildElements()
	require.Len(t, children, 2)
	assert.Equal(t, "Header", children[0].Tag)
	assert.Empty(t, children[0].ChildElements())
	assert.Equal(t, "Body", children[1].Tag)

	thing := children[1].ChildElements()
	require.Len(t, thing, 1)
	assert.Equal(t, "Thing", thing[0].Tag)
	assert.Equal(t, "x", thing[0].Text())
}

func TestWrapFault(t *testing.T) {
	out := WrapFault(FaultClient, "User '<script>' already exists")

	assert.Contains(t, out, "<faultcode>soap:Client</faultcode>")
	assert.Contains(t, out, "<faultstring>User &apos;&lt;script&gt;&apos; already exists</faultstring>")

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out))
	fault := findLocal(doc.Root(), "Fault")
	require.NotNil(t, fault)
	assert.Equal(t, "soap", fault.Space)
	assert.Equal(t, "soap:Client", childText(fault, "faultcode"))
	assert.Equal(t, "User '<script>' already exists", childText(fault, "faultstring"))
}

func TestFault(t *testing.T) {
	f := &Fault{Code: FaultServer, Message: "boom"}
	assert.Equal(t, "soap:Server: boom", f.Error())
	assert.Equal(t, WrapFault(FaultServer, "boom"), f.Envelope())

	var nilFault *Fault
	assert.Equal(t, "", nilFault.Error())
}
