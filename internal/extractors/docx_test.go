package extractors

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// buildTestDOCX assembles a minimal, standards-compliant WordprocessingML
// package: one paragraph made of the given runs, each run's text wrapped
// in xml:space="preserve" so inter-run whitespace survives exactly as
// authored (spec.md §4.4's DOCX whitespace regression).
func buildTestDOCX(t *testing.T, runs []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, content string) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	write("[Content_Types].xml", contentTypesXML)
	write("_rels/.rels", rootRelsXML)

	var runsXML bytes.Buffer
	for _, r := range runs {
		runsXML.WriteString(`<w:r><w:t xml:space="preserve">` + r + `</w:t></w:r>`)
	}
	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p>` + runsXML.String() + `</w:p>
  </w:body>
</w:document>`
	write("word/document.xml", document)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// TestDOCXPreservesInterRunWhitespace is S4: a paragraph built from two
// runs, "Sermocination " and "ypsiliform", must join into
// "Sermocination ypsiliform" with exactly one space — neither dropped
// (no trim) nor doubled (no extra joiner).
func TestDOCXPreservesInterRunWhitespace(t *testing.T) {
	data := buildTestDOCX(t, []string{"Sermocination ", "ypsiliform"})

	d := NewDOCX()
	res, err := d.ExtractBytes(context.Background(), data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "Sermocination ypsiliform")
}

func TestDOCXSingleRunPassesThroughVerbatim(t *testing.T) {
	data := buildTestDOCX(t, []string{"just one run"})
	d := NewDOCX()
	res, err := d.ExtractBytes(context.Background(), data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", nil)
	require.NoError(t, err)
	assert.Equal(t, "just one run", res.Content)
}
