package extraction

// usableTotalConfidence is the threshold below which an extracted total
// is considered a guess and escalation to multi-page extraction is
// warranted.
const usableTotalConfidence = 0.5

// totalUsable reports whether the extraction's total amount is good
// enough to stop at. It is false when the total value is absent or its
// confidence is strictly below the threshold. This single predicate is
// the sole trigger for multi-page escalation; no other field's
// confidence affects the decision.
func totalUsable(r *Result) bool {
	if r == nil || r.Total.Value == nil {
		return false
	}
	return r.Total.Confidence >= usableTotalConfidence
}
