package ocr

import (
	"bytes"
	"context"
	stdimage "image"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/adverant/kreuzberg-go/internal/kerrors"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// PaddleOCR runs a detection model followed by a recognition model,
// both loaded as ONNX graphs via onnxruntime_go. Unlike Tesseract
// (a fresh gosseract client per call), ONNX sessions and their input/
// output tensors are expensive to construct, so they are built once in
// Initialize and reused across Recognize calls.
type PaddleOCR struct {
	detModelPath string
	recModelPath string
	charset      []rune

	mu        sync.Mutex
	detInput  *ort.Tensor[float32]
	detOutput *ort.Tensor[float32]
	det       *ort.AdvancedSession
	recInput  *ort.Tensor[float32]
	recOutput *ort.Tensor[float32]
	rec       *ort.AdvancedSession
}

const (
	detSize = 960
	recW    = 320
	recH    = 48
)

// NewPaddleOCR configures model paths; sessions are lazily built by
// Initialize so construction never touches the filesystem or loads a
// model before the backend is actually registered for use.
func NewPaddleOCR(detModelPath, recModelPath string, charset []rune) *PaddleOCR {
	return &PaddleOCR{detModelPath: detModelPath, recModelPath: recModelPath, charset: charset}
}

func (p *PaddleOCR) Name() string                      { return "paddleocr" }
func (p *PaddleOCR) BackendType() string                { return "builtin" }
func (p *PaddleOCR) SupportsLanguage(code string) bool { return true } // model-selected at construction, not per call

func (p *PaddleOCR) Initialize(ctx context.Context) error {
	if err := ort.InitializeEnvironment(); err != nil {
		return kerrors.MissingDependency("onnxruntime shared library")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	p.detInput, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, detSize, detSize))
	if err != nil {
		return kerrors.MissingDependency("PaddleOCR detection input tensor: " + err.Error())
	}
	p.detOutput, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1, detSize, detSize))
	if err != nil {
		return kerrors.MissingDependency("PaddleOCR detection output tensor: " + err.Error())
	}
	p.det, err = ort.NewAdvancedSession(p.detModelPath, []string{"x"}, []string{"save_infer_model/scale_0.tmp_1"},
		[]ort.Value{p.detInput}, []ort.Value{p.detOutput}, nil)
	if err != nil {
		return kerrors.MissingDependency("PaddleOCR detection model: " + err.Error())
	}

	p.recInput, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, recH, recW))
	if err != nil {
		return kerrors.MissingDependency("PaddleOCR recognition input tensor: " + err.Error())
	}
	steps := recW / 4
	p.recOutput, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(steps), int64(len(p.charset)+1)))
	if err != nil {
		return kerrors.MissingDependency("PaddleOCR recognition output tensor: " + err.Error())
	}
	p.rec, err = ort.NewAdvancedSession(p.recModelPath, []string{"x"}, []string{"save_infer_model/scale_0.tmp_1"},
		[]ort.Value{p.recInput}, []ort.Value{p.recOutput}, nil)
	if err != nil {
		return kerrors.MissingDependency("PaddleOCR recognition model: " + err.Error())
	}
	return nil
}

func (p *PaddleOCR) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range []interface{ Destroy() }{p.det, p.rec, p.detInput, p.detOutput, p.recInput, p.recOutput} {
		if d != nil {
			d.Destroy()
		}
	}
	return ort.DestroyEnvironment()
}

// Recognize runs detection to find text-line boxes, then recognition
// over each box, decoding the recognition model's CTC output greedily
// (collapse repeats, drop the blank index) into text.
func (p *PaddleOCR) Recognize(ctx context.Context, imageBytes []byte, lang string) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.det == nil || p.rec == nil {
		return nil, kerrors.MissingDependency("PaddleOCR sessions not initialized")
	}

	img, _, err := stdimage.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, kerrors.ImageProcessing("failed to decode image for PaddleOCR: " + err.Error())
	}

	fillCHW(p.detInput.GetData(), img, detSize, detSize)
	if err := p.det.Run(); err != nil {
		return nil, kerrors.OCR("PaddleOCR detection inference failed: "+err.Error(), err)
	}
	boxes := thresholdToBoxes(p.detOutput.GetData(), detSize, detSize, img.Bounds().Dx(), img.Bounds().Dy())

	var words []Word
	var fullText string
	for _, box := range boxes {
		line := cropBox(img, box)
		fillCHW(p.recInput.GetData(), line, recW, recH)
		if err := p.rec.Run(); err != nil {
			continue
		}
		text, conf := ctcGreedyDecode(p.recOutput.GetData(), p.charset)
		if text == "" {
			continue
		}
		words = append(words, Word{Text: text, Confidence: conf, BBox: box})
		if fullText != "" {
			fullText += "\n"
		}
		fullText += text
	}

	return &Page{Text: fullText, Confidence: estimateConfidence(fullText, words), Words: words}, nil
}

// fillCHW resamples img to w×h and writes it into dst in
// channel-height-width order with ImageNet-style normalization, the
// input layout PP-OCR's exported models expect.
func fillCHW(dst []float32, img stdimage.Image, w, h int) {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	plane := w * h
	for y := 0; y < h; y++ {
		sy := b.Min.Y + y*sh/h
		for x := 0; x < w; x++ {
			sx := b.Min.X + x*sw/w
			r, g, bl, _ := img.At(sx, sy).RGBA()
			idx := y*w + x
			dst[idx] = (float32(r>>8)/255 - 0.5) / 0.5
			dst[plane+idx] = (float32(g>>8)/255 - 0.5) / 0.5
			dst[2*plane+idx] = (float32(bl>>8)/255 - 0.5) / 0.5
		}
	}
}

// thresholdToBoxes binarizes the detection model's per-pixel
// probability map and groups foreground runs into line-level bounding
// boxes scaled back to the original image's coordinate space.
func thresholdToBoxes(probMap []float32, mapW, mapH, origW, origH int) []result.BBox {
	const threshold = 0.3
	visited := make([]bool, len(probMap))
	var boxes []result.BBox

	var flood func(x, y int) (minX, minY, maxX, maxY int)
	flood = func(sx, sy int) (int, int, int, int) {
		stack := [][2]int{{sx, sy}}
		minX, minY, maxX, maxY := sx, sy, sx, sy
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := p[0], p[1]
			if x < 0 || x >= mapW || y < 0 || y >= mapH {
				continue
			}
			idx := y*mapW + x
			if visited[idx] || probMap[idx] < threshold {
				continue
			}
			visited[idx] = true
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
			stack = append(stack, [2]int{x + 1, y}, [2]int{x - 1, y}, [2]int{x, y + 1}, [2]int{x, y - 1})
		}
		return minX, minY, maxX, maxY
	}

	for y := 0; y < mapH; y++ {
		for x := 0; x < mapW; x++ {
			idx := y*mapW + x
			if visited[idx] || probMap[idx] < threshold {
				continue
			}
			minX, minY, maxX, maxY := flood(x, y)
			if (maxX-minX) < 2 || (maxY-minY) < 2 {
				continue
			}
			sx := float64(origW) / float64(mapW)
			sy := float64(origH) / float64(mapH)
			boxes = append(boxes, result.BBox{
				X: float64(minX) * sx, Y: float64(minY) * sy,
				Width: float64(maxX-minX) * sx, Height: float64(maxY-minY) * sy,
			})
		}
	}
	return boxes
}

func cropBox(img stdimage.Image, box result.BBox) stdimage.Image {
	r := stdimage.Rect(int(box.X), int(box.Y), int(box.X+box.Width), int(box.Y+box.Height))
	r = r.Intersect(img.Bounds())
	if sub, ok := img.(interface {
		SubImage(r stdimage.Rectangle) stdimage.Image
	}); ok {
		return sub.SubImage(r)
	}
	return img
}

// ctcGreedyDecode collapses repeated classes and drops the blank
// index (0), the standard CTC decode for PP-OCR's recognition head.
func ctcGreedyDecode(logits []float32, charset []rune) (string, float64) {
	if len(charset) == 0 {
		return "", 0
	}
	classes := len(charset) + 1
	steps := len(logits) / classes
	if steps == 0 {
		return "", 0
	}

	var sb []rune
	var confSum float64
	var confCount int
	prev := -1
	for t := 0; t < steps; t++ {
		row := logits[t*classes : (t+1)*classes]
		best, bestIdx := float32(-1), 0
		for i, v := range row {
			if v > best {
				best, bestIdx = v, i
			}
		}
		if bestIdx != 0 && bestIdx != prev {
			sb = append(sb, charset[bestIdx-1])
			confSum += float64(best)
			confCount++
		}
		prev = bestIdx
	}
	if confCount == 0 {
		return "", 0
	}
	return string(sb), confSum / float64(confCount)
}
