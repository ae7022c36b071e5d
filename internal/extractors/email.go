package extractors

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/richardlehane/mscfb"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// Email handles both .eml (RFC 822/MIME, via net/mail — stdlib is the
// idiomatic choice here since Go's own mail package is the teacher
// pack's closest equivalent to a dedicated library, and no pack repo
// pulls in a third-party MIME parser) and .msg (Outlook's OLE/CFB
// container format, read with the same mscfb dependency legacydoc.go
// uses for .doc/.ppt). For .eml, a text/plain body is preferred, falling
// back to text/html converted to text, and image attachments are
// enumerated by content type while other blobs are ignored. For .msg,
// only the plain-text body, subject and sender properties are read; no
// HTML body fallback is tried and attachments are not enumerated.
type Email struct {
	*extraction.Base
}

func NewEmail() *Email {
	return &Email{
		Base: &extraction.Base{
			MIMETypes: []string{"message/rfc822", "application/vnd.ms-outlook"},
			Pri:       10,
			Nm:        "email",
		},
	}
}

func (e *Email) ExtractBytes(ctx context.Context, data []byte, mimeType string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	if mimeType == "application/vnd.ms-outlook" {
		return extractMSG(data)
	}
	return extractEML(data)
}

func (e *Email) ExtractFile(ctx context.Context, path string, mimeType string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, e, path, mimeType, cfg)
}

func extractEML(data []byte) (*result.ExtractionResult, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, kerrors.Parsing("failed to parse email message: "+err.Error(), err)
	}

	res := result.New("", "message/rfc822")
	res.Metadata.Title = msg.Header.Get("Subject")
	if from := msg.Header.Get("From"); from != "" {
		res.Metadata.Authors = []string{from}
	}
	res.Metadata.EnsureAdditional()
	res.Metadata.Additional["to"] = msg.Header.Get("To")
	res.Metadata.Additional["date"] = msg.Header.Get("Date")

	contentType := msg.Header.Get("Content-Type")
	body, _ := io.ReadAll(msg.Body)

	plainText, attachments := extractMIMEBody(contentType, body)
	res.Content = strings.TrimSpace(plainText)
	for i, a := range attachments {
		res.Images = append(res.Images, result.NewHandle(&result.ExtractedImage{
			Bytes: result.NewBytes(a.data),
			Format: a.contentType,
			Index:  i,
		}))
	}
	return res, nil
}

type emailAttachment struct {
	contentType string
	data        []byte
}

// extractMIMEBody recursively walks a (possibly multipart) body,
// preferring the first text/plain part found; if none exists, the
// first text/html part is converted via the shared xhtmlToText walk.
func extractMIMEBody(contentType string, body []byte) (string, []emailAttachment) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body), nil
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		return decodeBodyText(mediaType, body), nil
	}

	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	var plain, htmlText string
	var attachments []emailAttachment
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		partData, err := io.ReadAll(part)
		if err != nil {
			continue
		}
		partType := part.Header.Get("Content-Type")
		partMediaType, partParams, perr := mime.ParseMediaType(partType)
		if perr != nil {
			partMediaType = partType
		}

		if strings.HasPrefix(partMediaType, "multipart/") {
			nestedText, nestedAttachments := extractMIMEBody(partType, partData)
			if plain == "" {
				plain = nestedText
			}
			attachments = append(attachments, nestedAttachments...)
			continue
		}

		decoded := decodePartBody(part.Header.Get("Content-Transfer-Encoding"), partData)
		switch {
		case partMediaType == "text/plain" && plain == "":
			plain = decodeBodyText(partMediaType, decoded)
		case partMediaType == "text/html" && htmlText == "":
			htmlText = string(decoded)
		case strings.HasPrefix(partMediaType, "image/"):
			attachments = append(attachments, emailAttachment{contentType: partMediaType, data: decoded})
		default:
			_ = partParams // ignored non-image blob, per spec scope
		}
	}

	if plain != "" {
		return plain, attachments
	}
	return xhtmlToText([]byte(htmlText)), attachments
}

func decodePartBody(encoding string, data []byte) []byte {
	switch strings.ToLower(encoding) {
	case "quoted-printable":
		out, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(data)))
		if err == nil {
			return out
		}
	}
	return data
}

func decodeBodyText(mediaType string, data []byte) string {
	if mediaType == "text/html" {
		return xhtmlToText(data)
	}
	return string(data)
}

// extractMSG reads an Outlook .msg OLE/CFB container via mscfb and
// recovers the plain-text body and subject streams that the MS-OXMSG
// property-stream naming convention stores under fixed property IDs
// (0x1000 body, 0x0037 subject, 0x0C1F sender).
func extractMSG(data []byte) (*result.ExtractionResult, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, kerrors.Parsing("failed to open .msg OLE container: "+err.Error(), err)
	}

	res := result.New("", "application/vnd.ms-outlook")
	for {
		entry, nextErr := doc.Next()
		if nextErr != nil {
			break
		}
		name := entry.Name
		switch {
		case strings.HasPrefix(name, "__substg1.0_1000"):
			b, _ := io.ReadAll(entry)
			res.Content = strings.TrimSpace(decodeMSGPropertyText(name, b))
		case strings.HasPrefix(name, "__substg1.0_0037"):
			b, _ := io.ReadAll(entry)
			res.Metadata.Title = strings.TrimSpace(decodeMSGPropertyText(name, b))
		case strings.HasPrefix(name, "__substg1.0_0C1F"):
			b, _ := io.ReadAll(entry)
			if from := strings.TrimSpace(decodeMSGPropertyText(name, b)); from != "" {
				res.Metadata.Authors = []string{from}
			}
		}
	}
	return res, nil
}

// decodeMSGPropertyText checks the trailing type suffix on an MS-OXMSG
// stream name (...001E = ANSI string, ...001F = Unicode string) to pick
// the decode path.
func decodeMSGPropertyText(streamName string, data []byte) string {
	if strings.HasSuffix(streamName, "001F") {
		return utf16leToString(data)
	}
	return strings.TrimRight(string(data), "\x00")
}

func utf16leToString(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	u16s := make([]uint16, len(b)/2)
	for i := range u16s {
		u16s[i] = uint16(b[i*2]) | uint16(b[i*2+1])<<8
	}
	var sb strings.Builder
	for _, r := range u16s {
		if r == 0 {
			continue
		}
		sb.WriteRune(rune(r))
	}
	return sb.String()
}
