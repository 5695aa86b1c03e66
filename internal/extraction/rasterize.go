package extraction

import (
	"bytes"
	"image/jpeg"
	"log/slog"

	"github.com/gen2brain/go-fitz"
)

const (
	// DefaultScale is the rendering scale factor applied when the
	// caller does not specify one. 1.0 corresponds to 72 DPI.
	DefaultScale = 2.0

	jpegQuality = 90
)

// Rasterizer renders PDF pages to JPEG images.
type Rasterizer interface {
	// RenderPage renders the 1-indexed page of the document at the
	// given scale. ok is false when the document cannot be parsed
	// (corrupt/encrypted) or the page is beyond the page count;
	// callers must treat that as "absent", not as a retryable error.
	RenderPage(document []byte, page int, scale float64) (data []byte, ok bool)

	// PageCount returns the number of pages in the document, or 0 on
	// any parse failure. 0 means "unknown/failed", never "empty".
	PageCount(document []byte) int
}

// FitzRasterizer implements Rasterizer with MuPDF via go-fitz.
type FitzRasterizer struct{}

// NewFitzRasterizer creates a FitzRasterizer.
func NewFitzRasterizer() *FitzRasterizer {
	return &FitzRasterizer{}
}

// RenderPage renders one page to a JPEG at the requested scale.
func (f *FitzRasterizer) RenderPage(document []byte, page int, scale float64) ([]byte, bool) {
	if page < 1 {
		return nil, false
	}
	if scale <= 0 {
		scale = DefaultScale
	}

	doc, err := fitz.NewFromMemory(document)
	if err != nil {
		slog.Warn("Failed to open PDF for rendering", "error", err)
		return nil, false
	}
	defer doc.Close()

	if page > doc.NumPage() {
		return nil, false
	}

	// go-fitz pages are 0-indexed; scale 1.0 corresponds to 72 DPI.
	img, err := doc.ImageDPI(page-1, 72*scale)
	if err != nil {
		slog.Warn("Failed to render PDF page", "page", page, "error", err)
		return nil, false
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		slog.Warn("Failed to encode rendered page", "page", page, "error", err)
		return nil, false
	}

	return buf.Bytes(), true
}

// PageCount reports the document's page count, 0 on parse failure.
func (f *FitzRasterizer) PageCount(document []byte) int {
	doc, err := fitz.NewFromMemory(document)
	if err != nil {
		return 0
	}
	defer doc.Close()
	return doc.NumPage()
}
