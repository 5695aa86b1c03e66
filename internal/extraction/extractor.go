package extraction

import "context"

// Extractor sends one or two receipt images to a vision-capable model
// and returns the parsed extraction. Implementations must fail with
// ErrExtractorUnavailable on upstream HTTP failures or timeouts and
// with ErrMalformedResponse when the reply cannot be parsed; they never
// retry internally, retry policy belongs to the orchestrator.
type Extractor interface {
	// Extract accepts exactly one or exactly two JPEG/PNG images.
	Extract(ctx context.Context, images [][]byte, variant PromptVariant) (*Result, error)

	// Close releases any resources held by the extractor.
	Close() error
}
