package extraction

// PromptVariant selects which extraction prompt is sent with the
// image(s).
type PromptVariant int

const (
	// SinglePagePrompt asks the model to read one receipt image.
	SinglePagePrompt PromptVariant = iota
	// MultiPagePrompt asks the model to correlate fields across two
	// pages of the same receipt.
	MultiPagePrompt
)

func (v PromptVariant) String() string {
	if v == MultiPagePrompt {
		return "multi-page"
	}
	return "single-page"
}

// promptText returns the instruction text for a variant.
func promptText(v PromptVariant) string {
	if v == MultiPagePrompt {
		return multiPagePrompt
	}
	return singlePagePrompt
}

// extractionRules is the shared tail of both prompts: the output schema
// and the confidence contract the caller relies on.
const extractionRules = `Return ONLY valid JSON in this exact format:
{
  "vendor": {"value": "Store Name", "confidence": 0.0},
  "date": {"value": "MM/DD/YYYY", "confidence": 0.0},
  "total": {"value": 0.00, "confidence": 0.0},
  "subtotal": {"value": 0.00, "confidence": 0.0},
  "tax": {"value": 0.00, "confidence": 0.0},
  "paymentMethod": {"value": "VISA ending 1234", "confidence": 0.0},
  "lineItems": [{"description": "item", "amount": 0.00, "quantity": 1}],
  "rawText": "full text transcript of the receipt"
}

Confidence scoring rules:
- 1.0: the value is printed clearly and unambiguously
- 0.8-0.9: minor ambiguity (slight blur, unusual layout)
- 0.5-0.7: partially obscured or inferred from context
- below 0.5: low-confidence guess
- If a field does not appear on the receipt at all, set its value to null and its confidence to 0

Field rules:
- If the date format is ambiguous, prefer MM/DD/YYYY and cap the date confidence at 0.7
- If multiple candidate totals appear, prefer the largest and note the ambiguity with a lower confidence
- The total must always be the tax-inclusive final total, never the subtotal
- Amounts must be numbers (not strings), in dollars and cents
- rawText must contain every line of text you can read, in order
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// singlePagePrompt is sent with exactly one receipt image.
const singlePagePrompt = `You are analyzing a receipt or invoice. Carefully read all text in the image and extract the vendor name, transaction date, final total, subtotal, tax, payment method, and every line item.

` + extractionRules

// multiPagePrompt is sent with two page images of the same document.
const multiPagePrompt = `You are analyzing a receipt or invoice that spans two pages, provided as two images of the same document. Correlate information across both pages: the total may appear on a different page than the line items, and vendor details may only appear on the first page. Extract the vendor name, transaction date, final total, subtotal, tax, payment method, and every line item from both pages combined.

` + extractionRules
