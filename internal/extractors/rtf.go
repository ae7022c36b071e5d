package extractors

import (
	"context"
	"strconv"
	"strings"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// RTF is a native control-word parser: no RTF library appears anywhere
// in the pack, so this walks the brace-delimited token stream directly
// (spec.md §4.4's RTF contract — paragraph/tab/bullet/quote/dash control
// words, code-page byte escapes, \uN? Unicode escapes with their skip
// count, and image metadata blocks to be skipped rather than emitted).
type RTF struct {
	*extraction.Base
}

func NewRTF() *RTF {
	return &RTF{
		Base: &extraction.Base{
			MIMETypes: []string{"application/rtf"},
			Pri:       10,
			Nm:        "rtf",
		},
	}
}

func (r *RTF) ExtractBytes(ctx context.Context, data []byte, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	text := parseRTF(string(data))
	res := result.New(strings.TrimSpace(text), mime)
	return res, nil
}

func (r *RTF) ExtractFile(ctx context.Context, path string, mime string, cfg *extraction.Config) (*result.ExtractionResult, error) {
	return extraction.DefaultExtractFile(ctx, r, path, mime, cfg)
}

var rtfControlText = map[string]string{
	"par":     "\n",
	"line":    "\n",
	"tab":     "\t",
	"bullet":  "•",
	"lquote":  "‘",
	"rquote":  "’",
	"ldblquote": "“",
	"rdblquote": "”",
	"endash":  "–",
	"emdash":  "—",
}

// skipGroups are control words whose entire brace group is non-textual
// and should be dropped whole (fonts, color tables, stylesheets,
// embedded picture/object binary blobs).
var skipGroups = map[string]bool{
	"fonttbl":   true,
	"colortbl":  true,
	"stylesheet": true,
	"info":      true,
	"pict":      true,
	"object":    true,
	"generator": true,
	"*":         true,
}

func parseRTF(src string) string {
	var out strings.Builder
	depth := 0
	skipDepth := -1
	uSkip := 1
	uSkipRemaining := 0

	i := 0
	for i < len(src) {
		c := src[i]
		switch c {
		case '{':
			depth++
			i++
		case '}':
			if skipDepth != -1 && depth <= skipDepth {
				skipDepth = -1
			}
			depth--
			i++
		case '\\':
			i++
			if i >= len(src) {
				break
			}
			word, arg, consumed := readControlWord(src[i:])
			i += consumed
			if skipDepth != -1 {
				continue
			}
			switch word {
			case "":
				// \'hh is a code-page byte escape; \* marks an ignorable
				// destination group; any other symbol is an escaped
				// literal character, e.g. \\ \{ \}
				if arg == "'" && i+2 <= len(src) {
					if b, err := strconv.ParseUint(src[i:i+2], 16, 8); err == nil {
						i += 2
						if uSkipRemaining > 0 {
							uSkipRemaining--
						} else {
							out.WriteRune(rune(b))
						}
						continue
					}
				}
				if skipGroups[arg] {
					skipDepth = depth
					continue
				}
				if arg != "" {
					out.WriteString(arg)
				}
			case "u":
				n, err := strconv.Atoi(arg)
				if err == nil {
					out.WriteRune(rune(n))
					uSkipRemaining = uSkip
				}
			case "uc":
				n, err := strconv.Atoi(arg)
				if err == nil {
					uSkip = n
				}
			default:
				if skipGroups[word] {
					skipDepth = depth
					continue
				}
				if txt, ok := rtfControlText[word]; ok {
					out.WriteString(txt)
				}
			}
		default:
			if skipDepth == -1 {
				if uSkipRemaining > 0 {
					uSkipRemaining--
				} else if c >= 0x20 {
					out.WriteByte(c)
				}
			}
			i++
		}
	}
	return collapseRTFWhitespace(out.String())
}

// readControlWord parses one control word or control symbol starting
// right after the backslash, returning (word, numericArgOrLiteral, bytesConsumed).
func readControlWord(s string) (word, arg string, consumed int) {
	if len(s) == 0 {
		return "", "", 0
	}
	if !isAlpha(s[0]) {
		// control symbol: \\, \{, \}, \~, \- etc. — literal escape
		return "", string(s[0]), 1
	}
	j := 0
	for j < len(s) && isAlpha(s[j]) {
		j++
	}
	word = s[:j]
	k := j
	neg := false
	if k < len(s) && s[k] == '-' {
		neg = true
		k++
	}
	numStart := k
	for k < len(s) && s[k] >= '0' && s[k] <= '9' {
		k++
	}
	if k > numStart {
		arg = s[numStart:k]
		if neg {
			arg = "-" + arg
		}
	}
	consumed = k
	// a single trailing space is part of the control word delimiter
	if consumed < len(s) && s[consumed] == ' ' {
		consumed++
	}
	return word, arg, consumed
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func collapseRTFWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var kept []string
	for _, line := range lines {
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	return strings.Join(kept, "\n")
}
