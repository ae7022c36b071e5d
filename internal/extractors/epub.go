package extractors

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// EPUB opens the container as a zip, follows the OCF container.xml →
// OPF → spine chain, and concatenates each spine item's XHTML body text
// in reading order (spec.md §4.4's EPUB contract).
type EPUB struct {
	*extraction.Base
}

func NewEPUB() *EPUB {
	return &EPUB{
		Base: &extraction.Base{
			MIMETypes: []string{"application/epub+zip"},
			Pri:       10,
			Nm:        "epub",
		},
	}
}

type ocfContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Metadata struct {
		Title      []string `xml:"title"`
		Creator    []string `xml:"creator"`
		Language   []string `xml:"language"`
		Date       []string `xml:"date"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

func (e *EPUB) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, kerrors.Parsing("failed to open EPUB as zip: "+err.Error(), err)
	}

	containerXML, err := readZipFile(zr, "META-INF/container.xml")
	if err != nil {
		return nil, kerrors.Parsing("EPUB missing META-INF/container.xml", err)
	}
	var container ocfContainer
	if err := xml.Unmarshal(containerXML, &container); err != nil || len(container.Rootfiles) == 0 {
		return nil, kerrors.Parsing("failed to parse EPUB container.xml", err)
	}
	opfPath := container.Rootfiles[0].FullPath

	opfData, err := readZipFile(zr, opfPath)
	if err != nil {
		return nil, kerrors.Parsing("failed to read EPUB OPF package document", err)
	}
	var pkg opfPackage
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return nil, kerrors.Parsing("failed to parse EPUB OPF package document: "+err.Error(), err)
	}

	idToHref := map[string]string{}
	for _, item := range pkg.Manifest.Items {
		idToHref[item.ID] = item.Href
	}
	opfDir := path.Dir(opfPath)

	res := result.New("", mime)
	var content strings.Builder
	for _, ref := range pkg.Spine.ItemRefs {
		href, ok := idToHref[ref.IDRef]
		if !ok {
			continue
		}
		itemPath := path.Join(opfDir, href)
		xhtml, err := readZipFile(zr, itemPath)
		if err != nil {
			continue
		}
		content.WriteString(xhtmlToText(xhtml))
		content.WriteString("\n\n")
	}

	res.Content = strings.TrimRight(content.String(), "\n")
	res.Metadata.Format = result.FormatMetadata{}
	if len(pkg.Metadata.Title) > 0 {
		res.Metadata.Title = pkg.Metadata.Title[0]
	}
	res.Metadata.Authors = pkg.Metadata.Creator
	if len(pkg.Metadata.Language) > 0 {
		res.Metadata.Language = pkg.Metadata.Language[0]
	}
	if len(pkg.Metadata.Date) > 0 {
		res.Metadata.EnsureAdditional()
		res.Metadata.Additional["date"] = pkg.Metadata.Date[0]
	}
	return res, nil
}

func (e *EPUB) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, e, path, mime, cfg)
}

// xhtmlToText walks the parsed tree collecting text nodes, inserting a
// newline after block-level elements (shares html.go's plain-text walk
// shape rather than introducing a second DOM library for EPUB's XHTML).
func xhtmlToText(data []byte) string {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6", "li":
				sb.WriteString("\n")
			}
		}
	}
	walk(doc)
	return sb.String()
}
