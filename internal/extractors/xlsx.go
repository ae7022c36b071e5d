package extractors

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// XLSX loads a workbook and emits one Markdown table per sheet,
// recording sheet names and count in Metadata.Format (spec.md §4.4's
// ExcelMetadata). OOXML workbooks (.xlsx) are read with excelize;
// legacy BIFF workbooks (.xls) with xlsReader, the one pack-grounded
// library for that binary format. XLSB and ODS have no library
// anywhere in the pack, so they are left unregistered rather than
// silently misreported as one of the two supported formats.
type XLSX struct {
	*extraction.Base
}

func NewXLSX() *XLSX {
	return &XLSX{
		Base: &extraction.Base{
			MIMETypes: []string{
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				"application/vnd.ms-excel",
			},
			Pri: 10,
			Nm:  "xlsx",
		},
	}
}

func (x *XLSX) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	if mime == "application/vnd.ms-excel" {
		return extractLegacyXLS(data)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, kerrors.Parsing("failed to open XLSX workbook: "+err.Error(), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	res := result.New("", mime)

	var content strings.Builder
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		cells := make([][]string, len(rows))
		copy(cells, rows)
		if len(cells) == 0 {
			continue
		}
		t := result.Table{Cells: cells, Markdown: tableMarkdown(cells)}
		res.Tables = append(res.Tables, result.NewHandle(&t))

		content.WriteString(fmt.Sprintf("## %s\n\n", sheet))
		content.WriteString(t.Markdown)
		content.WriteString("\n")
	}

	res.Content = strings.TrimRight(content.String(), "\n")
	res.Metadata.Format = result.FormatMetadata{
		"sheet_names": sheets,
		"sheet_count": len(sheets),
	}
	return res, nil
}

func extractLegacyXLS(data []byte) (*result.ExtractionResult, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, kerrors.Parsing("failed to open legacy XLS workbook: "+err.Error(), err)
	}

	res := result.New("", "application/vnd.ms-excel")
	var content strings.Builder
	var sheetNames []string

	numSheets := wb.GetNumberSheets()
	for i := 0; i < numSheets; i++ {
		sheet, err := wb.GetSheet(i)
		if err != nil {
			continue
		}
		sheetNames = append(sheetNames, sheet.GetName())

		var cells [][]string
		for r := 0; r < sheet.GetNumberRows(); r++ {
			row, err := sheet.GetRow(r)
			if err != nil || row == nil {
				continue
			}
			var line []string
			for _, col := range row.GetCols() {
				line = append(line, col.GetString())
			}
			cells = append(cells, line)
		}
		if len(cells) == 0 {
			continue
		}
		t := result.Table{Cells: cells, Markdown: tableMarkdown(cells)}
		res.Tables = append(res.Tables, result.NewHandle(&t))
		content.WriteString(fmt.Sprintf("## %s\n\n", sheet.GetName()))
		content.WriteString(t.Markdown)
		content.WriteString("\n")
	}

	res.Content = strings.TrimRight(content.String(), "\n")
	res.Metadata.Format = result.FormatMetadata{
		"sheet_names": sheetNames,
		"sheet_count": numSheets,
	}
	return res, nil
}

func (x *XLSX) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, x, path, mime, cfg)
}
