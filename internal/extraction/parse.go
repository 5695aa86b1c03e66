package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseExtractionJSON parses a model reply into a Result. The reply may
// be wrapped in a markdown code fence; the wrapper is stripped and the
// remainder is parsed strictly. Any parse failure is reported as
// ErrMalformedResponse, no speculative recovery is attempted.
func parseExtractionJSON(text string) (*Result, error) {
	text = strings.TrimSpace(text)

	// Remove opening markdown code fences
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("%w: no JSON object found in reply", ErrMalformedResponse)
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("%w: unbalanced JSON object in reply", ErrMalformedResponse)
	}

	text = text[startIdx : endIdx+1]

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	normalizeResult(&result)
	return &result, nil
}

// normalizeResult enforces the field invariants the rest of the
// pipeline relies on: confidences clamped to [0,1], absent values
// carrying confidence 0, and a non-nil line item slice.
func normalizeResult(r *Result) {
	normalizeText(&r.Vendor)
	normalizeText(&r.Date)
	normalizeText(&r.PaymentMethod)
	normalizeAmount(&r.Total)
	normalizeAmount(&r.Subtotal)
	normalizeAmount(&r.Tax)

	if r.LineItems == nil {
		r.LineItems = []LineItem{}
	}
	r.RawText = strings.TrimSpace(r.RawText)
}

func normalizeText(f *TextField) {
	if f.Value != nil {
		trimmed := strings.TrimSpace(*f.Value)
		if trimmed == "" {
			f.Value = nil
		} else {
			f.Value = &trimmed
		}
	}
	if f.Value == nil {
		f.Confidence = 0
		return
	}
	f.Confidence = clampConfidence(f.Confidence)
}

func normalizeAmount(f *AmountField) {
	if f.Value == nil {
		f.Confidence = 0
		return
	}
	f.Confidence = clampConfidence(f.Confidence)
}

func clampConfidence(c float64) float64 {
	if c != c || c < 0 { // NaN or negative
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
