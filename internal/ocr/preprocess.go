package ocr

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/adverant/kreuzberg-go/internal/kerrors"
)

// floorDPI is the minimum DPI preprocessing will target even under a
// tight memory budget (spec.md §4.5: "enforces a 72 DPI floor").
const floorDPI = 72

// targetDPI is the resolution OCR engines are tuned for under a
// generous memory budget.
const targetDPI = 300

// SelectDPI picks a DPI between floorDPI and targetDPI so that
// rendering pageWidthIn × pageHeightIn inches stays within
// maxPixelBudget total pixels, preserving aspect ratio.
func SelectDPI(pageWidthIn, pageHeightIn float64, maxPixelBudget int) int {
	if pageWidthIn <= 0 || pageHeightIn <= 0 || maxPixelBudget <= 0 {
		return targetDPI
	}
	dpi := targetDPI
	for dpi > floorDPI {
		pixels := pageWidthIn * float64(dpi) * pageHeightIn * float64(dpi)
		if int(pixels) <= maxPixelBudget {
			break
		}
		dpi -= 10
	}
	if dpi < floorDPI {
		dpi = floorDPI
	}
	return dpi
}

// Resize scales img to (w, h), preserving aspect ratio is the caller's
// responsibility (callers compute w/h from the source ratio). Uses
// Catmull-Rom for both directions: x/image/draw ships no Lanczos
// kernel (only NearestNeighbor/ApproxBiLinear/BiLinear/CatmullRom),
// and CatmullRom is its sharpest available resampler for both
// upscaling small scans and downscaling oversized renders.
func Resize(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}

// minUsefulDimension below which an image is upscaled before OCR —
// small scans of dense text lose recognizable glyph shape otherwise.
const minUsefulDimension = 1000

// Preprocess decodes data, resizing with Resize when either dimension
// is below minUsefulDimension, and re-encodes as PNG. Returns data
// unchanged (still valid PNG/JPEG bytes) when no resize is needed.
func Preprocess(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, kerrors.ImageProcessing("failed to decode image for OCR preprocessing: " + err.Error())
	}

	b := img.Bounds()
	if b.Dx() >= minUsefulDimension && b.Dy() >= minUsefulDimension {
		return data, nil
	}

	scale := float64(minUsefulDimension) / float64(min(b.Dx(), b.Dy()))
	dst := Resize(img, int(float64(b.Dx())*scale), int(float64(b.Dy())*scale))

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return nil, kerrors.ImageProcessing("failed to re-encode preprocessed image: " + err.Error())
	}
	return out.Bytes(), nil
}

// ToGray applies a simple grayscale conversion, which several OCR
// backends recognize more reliably than full color on scanned text.
func ToGray(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, kerrors.ImageProcessing("failed to decode image for grayscale conversion: " + err.Error())
	}
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, img.Bounds(), img, img.Bounds().Min, draw.Src)

	var out bytes.Buffer
	if err := png.Encode(&out, gray); err != nil {
		return nil, kerrors.ImageProcessing("failed to re-encode grayscale image: " + err.Error())
	}
	return out.Bytes(), nil
}
