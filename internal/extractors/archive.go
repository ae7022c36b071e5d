package extractors

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bodgit/sevenzip"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/mimetype"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// Dispatcher resolves a MIME type to the extractor that should handle
// it. Archive depends on this narrow interface, not the registry type
// itself, so an archive member can be routed back through whatever
// extractor claimed its MIME without an import cycle between
// internal/extractors and internal/registry.
type Dispatcher interface {
	Lookup(mime string) (extraction.Extractor, error)
}

// Archive iterates zip/tar(.gz)/7z entries, recursively dispatching
// each member's bytes to the core extraction entry point for its
// detected MIME type and concatenating the results with an entry-path
// separator header (spec.md §4.4's archive contract).
type Archive struct {
	*extraction.Base
	Dispatcher Dispatcher
}

func NewArchive(d Dispatcher) *Archive {
	return &Archive{
		Base: &extraction.Base{
			MIMETypes: []string{
				"application/zip",
				"application/x-tar",
				"application/gzip",
				"application/x-7z-compressed",
			},
			Pri: 10,
			Nm:  "archive",
		},
		Dispatcher: d,
	}
}

type archiveEntry struct {
	path string
	data []byte
}

func (a *Archive) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	var entries []archiveEntry
	var err error

	switch mime {
	case "application/zip":
		entries, err = readZipEntries(data)
	case "application/x-tar":
		entries, err = readTarEntries(bytes.NewReader(data), false)
	case "application/gzip":
		entries, err = readTarEntries(bytes.NewReader(data), true)
	case "application/x-7z-compressed":
		entries, err = readSevenZipEntries(data)
	default:
		return nil, kerrors.UnsupportedFormat("unrecognized archive MIME type: " + mime)
	}
	if err != nil {
		return nil, err
	}

	res := result.New("", mime)
	var content strings.Builder
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, kerrors.Timeout("archive extraction cancelled")
		default:
		}

		memberMIME, detectErr := mimetype.DetectFromPath(entry.path, false)
		if detectErr != nil {
			memberMIME, detectErr = mimetype.DetectFromBytes(entry.data)
			if detectErr != nil {
				continue
			}
		}
		extractor, lookupErr := a.Dispatcher.Lookup(memberMIME)
		if lookupErr != nil {
			continue
		}
		memberResult, extractErr := extractor.ExtractBytes(ctx, entry.data, memberMIME, cfg)
		if extractErr != nil {
			continue
		}

		fmt.Fprintf(&content, "--- %s ---\n", entry.path)
		content.WriteString(memberResult.Content)
		content.WriteString("\n\n")
		res.Tables = append(res.Tables, memberResult.Tables...)
		res.Images = append(res.Images, memberResult.Images...)
	}

	res.Content = strings.TrimRight(content.String(), "\n")
	return res, nil
}

func (a *Archive) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, a, path, mime, cfg)
}

func readZipEntries(data []byte) ([]archiveEntry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, kerrors.Parsing("failed to open zip archive: "+err.Error(), err)
	}
	var entries []archiveEntry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		entries = append(entries, archiveEntry{path: f.Name, data: b})
	}
	return entries, nil
}

func readTarEntries(r io.Reader, gzipped bool) ([]archiveEntry, error) {
	if gzipped {
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, kerrors.Parsing("failed to open gzip stream: "+err.Error(), err)
		}
		defer gr.Close()
		r = gr
	}
	tr := tar.NewReader(r)
	var entries []archiveEntry
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, kerrors.Parsing("failed to read tar entry: "+err.Error(), err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			continue
		}
		entries = append(entries, archiveEntry{path: hdr.Name, data: b})
	}
	return entries, nil
}

func readSevenZipEntries(data []byte) ([]archiveEntry, error) {
	zr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, kerrors.Parsing("failed to open 7z archive: "+err.Error(), err)
	}
	var entries []archiveEntry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		entries = append(entries, archiveEntry{path: f.Name, data: b})
	}
	return entries, nil
}
