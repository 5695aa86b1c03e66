package extraction

// TextField is a single extracted text attribute paired with the model's
// confidence in it. A nil Value means the attribute was absent from the
// source; confidence is still reported (0 when absent).
type TextField struct {
	Value      *string `json:"value"`
	Confidence float64 `json:"confidence"`
}

// AmountField is a single extracted monetary attribute paired with the
// model's confidence in it. A nil Value means the attribute was absent.
type AmountField struct {
	Value      *float64 `json:"value"`
	Confidence float64  `json:"confidence"`
}

// LineItem is one purchased item from the receipt. Line items are an
// ordered sequence with no uniqueness constraint.
type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Quantity    float64 `json:"quantity"`
}

// Result is the structured output of one extraction attempt: the named
// fields, the line items, and the full raw text transcript of the
// receipt. A Result is produced fresh per scan and never persisted by
// the pipeline.
type Result struct {
	Vendor        TextField   `json:"vendor"`
	Date          TextField   `json:"date"`
	Total         AmountField `json:"total"`
	Subtotal      AmountField `json:"subtotal"`
	Tax           AmountField `json:"tax"`
	PaymentMethod TextField   `json:"paymentMethod"`
	LineItems     []LineItem  `json:"lineItems"`
	RawText       string      `json:"rawText"`
}
