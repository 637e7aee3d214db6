package parser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmlstore/backend/internal/models"
)

func TestElements_DocumentOrder(t *testing.T) {
	els, err := Collect(strings.NewReader(`<a x="1"><b y="2"/><b/></a>`))
	require.NoError(t, err)

	assert.Equal(t, []models.Element{
		{Name: "a", Attrs: []models.ElementAttr{{Name: "x", Value: "1"}}},
		{Name: "b", Attrs: []models.ElementAttr{{Name: "y", Value: "2"}}},
		{Name: "b"},
	}, els)
}

func TestElements_IgnoresNonElementTokens(t *testing.T) {
	doc := `<?xml version="1.0"?>
<!-- header -->
<root>
  text
  <?pi data?>
  <child>more text</child>
  <![CDATA[<notatag/>]]>
</root>
`
	els, err := Collect(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, "root", els[0].Name)
	assert.Equal(t, "child", els[1].Name)
}

func TestElements_AttributeOrderPreserved(t *testing.T) {
	els, err := Collect(strings.NewReader(`<item z="3" a="1" m="2"/>`))
	require.NoError(t, err)
	require.Len(t, els, 1)

	var names []string
	for _, a := range els[0].Attrs {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"z", "a", "m"}, names)
}

func TestElements_Namespaces(t *testing.T) {
	doc := `<ns:root xmlns:ns="urn:a" xmlns="urn:default" xml:lang="en"><ns:leaf ns:id="7" plain="p"/></ns:root>`
	els, err := Collect(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, els, 2)

	assert.Equal(t, "root", els[0].Name, "element names use the local part")
	assert.Equal(t, "leaf", els[1].Name)

	assert.Equal(t, []models.ElementAttr{
		{Name: "xmlns:ns", Value: "urn:a"},
		{Name: "xmlns", Value: "urn:default"},
		{Name: "xml:lang", Value: "en"},
	}, els[0].Attrs)
	assert.Equal(t, []models.ElementAttr{
		{Name: "ns:id", Value: "7"},
		{Name: "plain", Value: "p"},
	}, els[1].Attrs)
}

func TestElements_SharedNamespaceKeepsWrittenPrefix(t *testing.T) {
	doc := `<a xmlns:p="urn:same" xmlns:q="urn:same" p:x="1" q:y="2" q:x="3"/>`
	els, err := Collect(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, els, 1)

	assert.Equal(t, []models.ElementAttr{
		{Name: "xmlns:p", Value: "urn:same"},
		{Name: "xmlns:q", Value: "urn:same"},
		{Name: "p:x", Value: "1"},
		{Name: "q:y", Value: "2"},
		{Name: "q:x", Value: "3"},
	}, els[0].Attrs)
}

func TestElements_ByteOrderMark(t *testing.T) {
	els, err := Collect(strings.NewReader("\ufeff<?xml version=\"1.0\"?><a/>"))
	require.NoError(t, err)
	require.Len(t, els, 1)
	assert.Equal(t, "a", els[0].Name)
}

func TestElements_EntityValues(t *testing.T) {
	els, err := Collect(strings.NewReader(`<a title="x &amp; y &lt;z&gt;"/>`))
	require.NoError(t, err)
	require.Len(t, els, 1)
	assert.Equal(t, "x & y <z>", els[0].Attrs[0].Value)
}

func TestElements_Charset(t *testing.T) {
	// "Привет" in windows-1251
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="windows-1251"?><msg text="`)
	buf.Write([]byte{0xCF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2})
	buf.WriteString(`"/>`)

	els, err := Collect(&buf)
	require.NoError(t, err)
	require.Len(t, els, 1)
	assert.Equal(t, "Привет", els[0].Attrs[0].Value)
}

func TestElements_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantCount int
	}{
		{name: "mismatched close tag", doc: `<a><b></a>`, wantCount: 2},
		{name: "unclosed root", doc: `<a><b/>`, wantCount: 2},
		{name: "empty input", doc: ``, wantCount: 0},
		{name: "prolog only", doc: `<?xml version="1.0"?>`, wantCount: 0},
		{name: "plain text", doc: `hello`, wantCount: 0},
		{name: "two roots", doc: `<a/><b/>`, wantCount: 1},
		{name: "text after root", doc: `<a/>trailing`, wantCount: 1},
		{name: "bad attribute syntax", doc: `<a x=1/>`, wantCount: 0},
		{name: "stray close tag", doc: `</a>`, wantCount: 0},
		{name: "duplicate attribute", doc: `<a x="1" x="2"/>`, wantCount: 0},
		{name: "duplicate prefixed attribute", doc: `<r xmlns:p="u"><a p:x="1" p:x="2"/></r>`, wantCount: 1},
		{name: "declaration after root", doc: `<a/><?xml version="1.0"?>`, wantCount: 1},
		{name: "declaration after whitespace", doc: "  <?xml version=\"1.0\"?><a/>", wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			els, err := Collect(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Len(t, els, tt.wantCount)
		})
	}
}

func TestElements_StopsWhenConsumerBreaks(t *testing.T) {
	seen := 0
	for _, err := range Elements(strings.NewReader(`<a><b/><c/><d/></a>`)) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}
