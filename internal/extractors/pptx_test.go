package extractors

import (
	"archive/zip"
	"bytes"
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestPPTX assembles a minimal PPTX zip with one slide per title
// and, when notes is non-empty, a notes slide attached to the last one
// — enough of the OOXML slide schema for PPTX.ExtractBytes (package
// extractors' own parsePPTXSlide/extractPPTXText) to recover titles and
// speaker notes, per spec.md §4.4's PPTX page-marker requirement.
func buildTestPPTX(t *testing.T, titles []string, lastSlideNotes string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	writeSlide := func(name, title string) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		xml := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <cSld>
    <spTree>
      <sp>
        <nvSpPr>
          <cNvPr name="Title 1"/>
          <nvPr><ph type="title"/></nvPr>
        </nvSpPr>
        <txBody>
          <p><r><t>` + title + `</t></r></p>
        </txBody>
      </sp>
    </spTree>
  </cSld>
</sld>`
		_, err = w.Write([]byte(xml))
		require.NoError(t, err)
	}

	for i, title := range titles {
		n := i + 1
		writeSlide(slidePath(n), title)
	}

	if lastSlideNotes != "" {
		w, err := zw.Create(notesPath(len(titles)))
		require.NoError(t, err)
		xml := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<notes xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <a:t>` + lastSlideNotes + `</a:t>
</notes>`
		_, err = w.Write([]byte(xml))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func slidePath(n int) string { return "ppt/slides/slide" + strconv.Itoa(n) + ".xml" }
func notesPath(n int) string { return "ppt/notesSlides/notesSlide" + strconv.Itoa(n) + ".xml" }

// TestPPTXExtractSlidesAndNotes is S5: a two-slide deck with titles
// "Intro"/"Details" and a speaker note on slide 2 produces `# Intro`,
// `# Details`, `### Notes:` followed by the note text; two pages
// numbered 1 and 2.
func TestPPTXExtractSlidesAndNotes(t *testing.T) {
	data := buildTestPPTX(t, []string{"Intro", "Details"}, "remember this")

	p := NewPPTX()
	res, err := p.ExtractBytes(context.Background(), data, "application/vnd.openxmlformats-officedocument.presentationml.presentation", nil)
	require.NoError(t, err)

	assert.Contains(t, res.Content, "# Intro")
	assert.Contains(t, res.Content, "# Details")
	assert.Contains(t, res.Content, "### Notes:")
	assert.Contains(t, res.Content, "remember this")

	require.Len(t, res.Pages, 2)
	assert.Equal(t, 1, res.Pages[0].PageNumber)
	assert.Equal(t, 2, res.Pages[1].PageNumber)
}

func TestPPTXEmptyDeckYieldsNoPages(t *testing.T) {
	data := buildTestPPTX(t, nil, "")
	p := NewPPTX()
	res, err := p.ExtractBytes(context.Background(), data, "application/vnd.openxmlformats-officedocument.presentationml.presentation", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Pages)
	assert.Equal(t, "", res.Content)
}
