package extraction

import "errors"

var (
	// ErrRenderFailed means the PDF could not be rasterized at all,
	// usually because the file is corrupted or password-protected.
	ErrRenderFailed = errors.New("could not render document; the file may be corrupted or password-protected")

	// ErrExtractorUnavailable means the upstream vision service
	// returned a non-success status or timed out.
	ErrExtractorUnavailable = errors.New("extraction service unavailable")

	// ErrMalformedResponse means the upstream reply could not be
	// parsed as the expected JSON shape.
	ErrMalformedResponse = errors.New("malformed response from extraction service")

	// ErrUnsupportedFileType means the input is neither an
	// allow-listed image format nor a PDF.
	ErrUnsupportedFileType = errors.New("unsupported file type; upload a JPEG, PNG, GIF, HEIC image or a PDF")
)
