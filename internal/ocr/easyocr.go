package ocr

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// EasyOCRClient is the minimal gRPC surface the easyocr sidecar
// exposes; generated stubs would normally fill this role, but no
// proto definition ships with this engine, so the call shape is
// expressed directly against grpc.ClientConn.Invoke, mirroring how the
// teacher's MageAgentClient calls out to an external OCR/vision
// service over a narrow request/response contract.
type EasyOCRClient interface {
	Recognize(ctx context.Context, req *EasyOCRRequest, reply *EasyOCRReply) error
}

type EasyOCRRequest struct {
	Image    []byte
	Language string
}

type EasyOCRReply struct {
	Text       string
	Confidence float64
	Words      []struct {
		Text       string
		Confidence float64
		X, Y, W, H float64
	}
}

type grpcEasyOCRClient struct{ conn *grpc.ClientConn }

func (c *grpcEasyOCRClient) Recognize(ctx context.Context, req *EasyOCRRequest, reply *EasyOCRReply) error {
	return c.conn.Invoke(ctx, "/easyocr.EasyOCR/Recognize", req, reply)
}

// EasyOCR delegates recognition to an out-of-process sidecar over
// gRPC — the "custom" backend type (spec.md §4.2's OCR registry keys
// both "builtin" and "custom" backends by name), useful when a
// deployment wants EasyOCR's language coverage without linking its
// Python runtime into this process.
type EasyOCR struct {
	address   string
	languages map[string]bool
	conn      *grpc.ClientConn
	client    EasyOCRClient
}

// NewEasyOCR configures the sidecar address and the set of languages
// it was started with (EasyOCR's language models are selected at
// sidecar startup, not per request).
func NewEasyOCR(address string, languages []string) *EasyOCR {
	langs := make(map[string]bool, len(languages))
	for _, l := range languages {
		langs[l] = true
	}
	return &EasyOCR{address: address, languages: langs}
}

func (e *EasyOCR) Name() string                      { return "easyocr" }
func (e *EasyOCR) BackendType() string                { return "custom" }
func (e *EasyOCR) SupportsLanguage(code string) bool { return e.languages[code] }

func (e *EasyOCR) Initialize(ctx context.Context) error {
	conn, err := grpc.NewClient(e.address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return kerrors.MissingDependency("easyocr sidecar at " + e.address)
	}
	e.conn = conn
	e.client = &grpcEasyOCRClient{conn: conn}
	return nil
}

func (e *EasyOCR) Shutdown(ctx context.Context) error {
	if e.conn != nil {
		return e.conn.Close()
	}
	return nil
}

func (e *EasyOCR) Recognize(ctx context.Context, image []byte, lang string) (*Page, error) {
	if e.client == nil {
		return nil, kerrors.MissingDependency("easyocr sidecar not initialized")
	}
	var reply EasyOCRReply
	if err := e.client.Recognize(ctx, &EasyOCRRequest{Image: image, Language: lang}, &reply); err != nil {
		return nil, kerrors.OCR("easyocr sidecar call failed: "+err.Error(), err)
	}

	words := make([]Word, 0, len(reply.Words))
	for _, w := range reply.Words {
		words = append(words, Word{
			Text:       w.Text,
			Confidence: w.Confidence,
			BBox:       bboxFromWH(w.X, w.Y, w.W, w.H),
		})
	}
	return &Page{Text: reply.Text, Confidence: reply.Confidence, Words: words}, nil
}

func bboxFromWH(x, y, w, h float64) result.BBox {
	return result.BBox{X: x, Y: y, Width: w, Height: h}
}
