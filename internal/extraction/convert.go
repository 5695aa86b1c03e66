package extraction

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"strings"

	"github.com/gen2brain/heic"
)

// isPDF reports whether the MIME type denotes a PDF document.
func isPDF(contentType string) bool {
	return strings.ToLower(strings.TrimSpace(contentType)) == "application/pdf"
}

// isHEICData checks the ftyp box brands HEIC/HEIF files start with.
// Phones frequently upload HEIC with a generic or wrong MIME type, so
// the bytes are authoritative.
func isHEICData(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
}

func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// prepareImage normalizes a non-PDF upload for the extractor. JPEG and
// PNG bytes pass through untouched; HEIC/HEIF (common on iPhones) and
// GIF are decoded and re-encoded as JPEG. Anything undecodable fails
// with ErrUnsupportedFileType.
func prepareImage(data []byte, contentType string) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	if isHEICData(data) || isHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC image: %w", err)
		}
		return encodeJPEG(img)
	}

	switch mimeType {
	case "image/jpeg", "image/png":
		// Formats the extractor accepts as-is; verify they decode so
		// garbage bytes fail here instead of upstream.
		if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFileType, err)
		}
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFileType, err)
	}
	return encodeJPEG(img)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
