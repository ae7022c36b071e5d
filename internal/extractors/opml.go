package extractors

import (
	"context"
	"encoding/xml"
	"strings"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// OPML parses the outline tree and renders it as a nested bullet list,
// one level of two-space indent per nesting depth (spec.md §4.4's OPML
// contract).
type OPML struct {
	*extraction.Base
}

func NewOPML() *OPML {
	return &OPML{
		Base: &extraction.Base{
			MIMETypes: []string{"text/x-opml"},
			Pri:       10,
			Nm:        "opml",
		},
	}
}

type opmlDoc struct {
	Head struct {
		Title string `xml:"title"`
	} `xml:"head"`
	Body struct {
		Outlines []opmlOutline `xml:"outline"`
	} `xml:"body"`
}

type opmlOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr"`
	Outlines []opmlOutline `xml:"outline"`
}

func (o *OPML) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	var doc opmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, kerrors.Parsing("failed to parse OPML document: "+err.Error(), err)
	}

	var sb strings.Builder
	for _, o := range doc.Body.Outlines {
		renderOutline(&sb, o, 0)
	}

	res := result.New(strings.TrimRight(sb.String(), "\n"), mime)
	res.Metadata.Title = doc.Head.Title
	return res, nil
}

func (o *OPML) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, o, path, mime, cfg)
}

func renderOutline(sb *strings.Builder, o opmlOutline, depth int) {
	label := o.Text
	if label == "" {
		label = o.Title
	}
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString("- ")
	sb.WriteString(label)
	sb.WriteString("\n")
	for _, child := range o.Outlines {
		renderOutline(sb, child, depth+1)
	}
}
