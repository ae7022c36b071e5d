package extractors

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// LegacyDoc parses OLE/CFB compound documents (.doc, .ppt) natively via
// mscfb, reading the format's binary text streams directly rather than
// shelling out to a converter. PPT emits one PageContent per slide.
type LegacyDoc struct {
	*extraction.Base
}

func NewLegacyDoc() *LegacyDoc {
	return &LegacyDoc{
		Base: &extraction.Base{
			MIMETypes: []string{"application/msword", "application/vnd.ms-powerpoint"},
			Pri:       10,
			Nm:        "legacydoc",
		},
	}
}

func (l *LegacyDoc) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, kerrors.Parsing("failed to open OLE compound document: "+err.Error(), err)
	}

	streams := map[string][]byte{}
	for {
		entry, nextErr := doc.Next()
		if nextErr != nil {
			break
		}
		b, err := io.ReadAll(entry)
		if err != nil {
			continue
		}
		streams[entry.Name] = b
	}

	if mime == "application/vnd.ms-powerpoint" {
		return l.extractPPT(streams)
	}
	return l.extractDOC(streams)
}

func (l *LegacyDoc) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, l, path, mime, cfg)
}

func (l *LegacyDoc) extractDOC(streams map[string][]byte) (*result.ExtractionResult, error) {
	wordDoc := streams["WordDocument"]
	if len(wordDoc) == 0 {
		return nil, kerrors.Parsing("no WordDocument stream found in .doc file", nil)
	}
	tableData := streams["1Table"]
	if tableData == nil {
		tableData = streams["0Table"]
	}

	text := extractWordText(wordDoc, tableData)
	res := result.New(strings.TrimSpace(text), "application/msword")
	if props := streams["\x05SummaryInformation"]; len(props) > 0 {
		if title := summaryInfoTitle(props); title != "" {
			res.Metadata.Title = title
		}
	}
	return res, nil
}

func (l *LegacyDoc) extractPPT(streams map[string][]byte) (*result.ExtractionResult, error) {
	pptData := streams["PowerPoint Document"]
	if len(pptData) == 0 {
		return nil, kerrors.Parsing("no PowerPoint Document stream found in .ppt file", nil)
	}

	slides := extractPPTSlideTexts(pptData)
	res := result.New(strings.Join(slides, "\n\n"), "application/vnd.ms-powerpoint")
	res.Pages = make([]result.PageContent, len(slides))
	for i, s := range slides {
		res.Pages[i] = result.PageContent{PageNumber: i + 1, Content: s, IsBlank: s == ""}
	}
	return res, nil
}

// extractWordText walks the CLX piece table in tableData (the caller
// passes 1Table when present, else 0Table; the FIB's table-stream flag
// is not read) to read text runs out of the WordDocument stream, falling back to a printable-byte scan when the
// piece table cannot be parsed (e.g. an unusually old or corrupt file).
func extractWordText(wordDoc, tableData []byte) string {
	if text := extractFromPieceTable(wordDoc, tableData); text != "" {
		return text
	}
	return scanPrintableText(wordDoc)
}

func extractFromPieceTable(wordDoc, tableData []byte) string {
	if len(wordDoc) < 0x01AA || len(tableData) == 0 {
		return ""
	}
	fcClx := binary.LittleEndian.Uint32(wordDoc[0x01A2:0x01A6])
	lcbClx := binary.LittleEndian.Uint32(wordDoc[0x01A6:0x01AA])
	if fcClx == 0 || lcbClx == 0 || int(fcClx+lcbClx) > len(tableData) {
		return ""
	}
	clx := tableData[fcClx : fcClx+lcbClx]

	pos := 0
	for pos < len(clx) && clx[pos] == 0x01 {
		if pos+3 > len(clx) {
			return ""
		}
		cbGrpprl := int(binary.LittleEndian.Uint16(clx[pos+1 : pos+3]))
		pos += 3 + cbGrpprl
	}
	if pos >= len(clx) || clx[pos] != 0x02 {
		return ""
	}
	pos++
	if pos+4 > len(clx) {
		return ""
	}
	lcb := int(binary.LittleEndian.Uint32(clx[pos : pos+4]))
	pos += 4
	if lcb < 12 || pos+lcb > len(clx) {
		return ""
	}
	plcPcd := clx[pos : pos+lcb]

	pcdSize := 8
	n := (lcb - 4) / (4 + pcdSize)
	if n <= 0 {
		return ""
	}
	cpArraySize := (n + 1) * 4

	var sb strings.Builder
	for i := 0; i < n; i++ {
		cpStart := binary.LittleEndian.Uint32(plcPcd[i*4 : i*4+4])
		cpEnd := binary.LittleEndian.Uint32(plcPcd[(i+1)*4 : (i+1)*4+4])
		pcdOffset := cpArraySize + i*pcdSize
		if pcdOffset+8 > len(plcPcd) || cpEnd <= cpStart {
			continue
		}
		fcCompressed := binary.LittleEndian.Uint32(plcPcd[pcdOffset+2 : pcdOffset+6])
		isUnicode := fcCompressed&0x40000000 == 0
		fc := fcCompressed & 0x3FFFFFFF
		charCount := cpEnd - cpStart
		if charCount == 0 || charCount > 1_000_000 {
			continue
		}

		if isUnicode {
			byteLen := charCount * 2
			if int(fc+byteLen) > len(wordDoc) {
				continue
			}
			chunk := wordDoc[fc : fc+byteLen]
			u16s := make([]uint16, charCount)
			for j := uint32(0); j < charCount; j++ {
				u16s[j] = binary.LittleEndian.Uint16(chunk[j*2 : j*2+2])
			}
			writeWordRunes(&sb, utf16.Decode(u16s))
		} else {
			byteOffset := fc / 2
			if int(byteOffset+charCount) > len(wordDoc) {
				continue
			}
			for _, b := range wordDoc[byteOffset : byteOffset+charCount] {
				writeWordRunes(&sb, []rune{rune(b)})
			}
		}
	}
	return sb.String()
}

func writeWordRunes(sb *strings.Builder, runes []rune) {
	for _, r := range runes {
		switch {
		case r == 0x0D || r == 0x0B:
			sb.WriteByte('\n')
		case r == 0x07:
			sb.WriteByte('\t')
		case r >= 0x20 || r == 0x09:
			sb.WriteRune(r)
		}
	}
}

func scanPrintableText(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		if (b >= 0x20 && b < 0x7F) || b == 0x0A || b == 0x0D || b == 0x09 {
			if b == 0x0D {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(b)
			}
		}
	}
	return sb.String()
}

// extractPPTSlideTexts walks PowerPoint's binary record stream
// (recVer/recInstance/recType/recLen headers), collecting
// TextCharsAtom (0x0FA0) and TextBytesAtom (0x0FA8) records and
// splitting on slide-container boundaries (recType 0x0F9F, "Slide").
func extractPPTSlideTexts(data []byte) []string {
	var slides []string
	var current strings.Builder
	pos := 0
	for pos+8 <= len(data) {
		recVerInstance := binary.LittleEndian.Uint16(data[pos : pos+2])
		recType := binary.LittleEndian.Uint16(data[pos+2 : pos+4])
		recLen := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		recVer := recVerInstance & 0x0F
		pos += 8
		if recLen > uint32(len(data)-pos) {
			break
		}

		switch recType {
		case 0x0F9F: // Slide container start
			if current.Len() > 0 {
				slides = append(slides, strings.TrimSpace(current.String()))
				current.Reset()
			}
		case 0x0FA0: // TextCharsAtom (UTF-16LE)
			if recLen >= 2 {
				charCount := recLen / 2
				u16s := make([]uint16, charCount)
				for i := uint32(0); i < charCount; i++ {
					u16s[i] = binary.LittleEndian.Uint16(data[pos+int(i*2) : pos+int(i*2+2)])
				}
				if t := strings.TrimSpace(string(utf16.Decode(u16s))); t != "" {
					current.WriteString(t + "\n")
				}
			}
			pos += int(recLen)
		case 0x0FA8: // TextBytesAtom (ANSI)
			if recLen > 0 {
				if t := strings.TrimSpace(string(data[pos : pos+int(recLen)])); t != "" {
					current.WriteString(t + "\n")
				}
			}
			pos += int(recLen)
		default:
			if recVer != 0x0F { // not a container; skip its payload
				pos += int(recLen)
			}
		}
	}
	if current.Len() > 0 {
		slides = append(slides, strings.TrimSpace(current.String()))
	}
	return slides
}

// summaryInfoTitle reads the PIDSI_TITLE property (id 0x02) out of a
// raw \005SummaryInformation property-set stream, enough of the
// OLE property-set format to recover the document title without a
// dedicated library (spec.md §4.4 asks only for "summary-information
// metadata", not a full property-set reader).
func summaryInfoTitle(data []byte) string {
	if len(data) < 48 {
		return ""
	}
	sectionOffset := binary.LittleEndian.Uint32(data[44:48])
	if int(sectionOffset) >= len(data) {
		return ""
	}
	section := data[sectionOffset:]
	if len(section) < 8 {
		return ""
	}
	propCount := binary.LittleEndian.Uint32(section[4:8])
	for i := uint32(0); i < propCount; i++ {
		entryOff := 8 + i*8
		if int(entryOff+8) > len(section) {
			break
		}
		propID := binary.LittleEndian.Uint32(section[entryOff : entryOff+4])
		if propID != 0x02 {
			continue
		}
		valOff := binary.LittleEndian.Uint32(section[entryOff+4 : entryOff+8])
		if int(valOff) >= len(section) {
			return ""
		}
		val := section[valOff:]
		if len(val) < 8 {
			return ""
		}
		strLen := binary.LittleEndian.Uint32(val[4:8])
		if int(8+strLen) > len(val) {
			return ""
		}
		return strings.TrimRight(string(val[8:8+strLen]), "\x00")
	}
	return ""
}
