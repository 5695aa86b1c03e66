package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseExtractionJSON", func() {
	var (
		jsonInput string
		result    *Result
		err       error
	)

	JustBeforeEach(func() {
		result, err = parseExtractionJSON(jsonInput)
	})

	When("parsing a complete valid reply", func() {
		BeforeEach(func() {
			jsonInput = `{
				"vendor": {"value": "CVS Pharmacy", "confidence": 1.0},
				"date": {"value": "01/15/2024", "confidence": 0.9},
				"total": {"value": 45.99, "confidence": 0.95},
				"subtotal": {"value": 42.50, "confidence": 0.9},
				"tax": {"value": 3.49, "confidence": 0.9},
				"paymentMethod": {"value": "VISA ending 4242", "confidence": 0.8},
				"lineItems": [
					{"description": "Vitamins", "amount": 22.50, "quantity": 1},
					{"description": "Bandages", "amount": 20.00, "quantity": 2}
				],
				"rawText": "CVS Pharmacy\n01/15/2024\nTOTAL 45.99"
			}`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse the vendor", func() {
			Expect(*result.Vendor.Value).To(Equal("CVS Pharmacy"))
			Expect(result.Vendor.Confidence).To(Equal(1.0))
		})

		It("should parse the total", func() {
			Expect(*result.Total.Value).To(Equal(45.99))
			Expect(result.Total.Confidence).To(Equal(0.95))
		})

		It("should keep line items in order", func() {
			Expect(result.LineItems).To(HaveLen(2))
			Expect(result.LineItems[0].Description).To(Equal("Vitamins"))
			Expect(result.LineItems[1].Quantity).To(Equal(2.0))
		})

		It("should keep the raw text transcript", func() {
			Expect(result.RawText).To(ContainSubstring("TOTAL 45.99"))
		})
	})

	When("the reply is wrapped in a markdown code fence", func() {
		BeforeEach(func() {
			jsonInput = "```json\n{\"total\": {\"value\": 10.50, \"confidence\": 0.8}}\n```"
		})

		It("should strip the fence and parse", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(*result.Total.Value).To(Equal(10.50))
		})
	})

	When("the reply has prose around the JSON object", func() {
		BeforeEach(func() {
			jsonInput = "Here is the extraction:\n{\"total\": {\"value\": 9.99, \"confidence\": 0.7}}\nLet me know if you need more."
		})

		It("should extract the JSON object", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(*result.Total.Value).To(Equal(9.99))
		})
	})

	When("a field value is null", func() {
		BeforeEach(func() {
			jsonInput = `{"total": {"value": null, "confidence": 0.6}, "vendor": {"value": "Store", "confidence": 0.9}}`
		})

		It("should report the value as absent with confidence 0", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total.Value).To(BeNil())
			Expect(result.Total.Confidence).To(BeZero())
		})
	})

	When("a text value is whitespace only", func() {
		BeforeEach(func() {
			jsonInput = `{"vendor": {"value": "   ", "confidence": 0.9}}`
		})

		It("should treat it as absent", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Vendor.Value).To(BeNil())
			Expect(result.Vendor.Confidence).To(BeZero())
		})
	})

	When("a confidence is out of range", func() {
		BeforeEach(func() {
			jsonInput = `{"total": {"value": 5.00, "confidence": 1.7}, "vendor": {"value": "Store", "confidence": -0.2}}`
		})

		It("should clamp confidences to [0,1]", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total.Confidence).To(Equal(1.0))
			Expect(result.Vendor.Confidence).To(BeZero())
		})
	})

	When("line items are omitted", func() {
		BeforeEach(func() {
			jsonInput = `{"total": {"value": 5.00, "confidence": 0.9}}`
		})

		It("should return an empty, non-nil sequence", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.LineItems).NotTo(BeNil())
			Expect(result.LineItems).To(BeEmpty())
		})
	})

	When("the reply contains no JSON object", func() {
		BeforeEach(func() {
			jsonInput = "I could not read the receipt."
		})

		It("should fail with ErrMalformedResponse", func() {
			Expect(err).To(MatchError(ErrMalformedResponse))
		})
	})

	When("the JSON shape is wrong", func() {
		BeforeEach(func() {
			jsonInput = `{"total": "45.99"}`
		})

		It("should fail with ErrMalformedResponse", func() {
			Expect(err).To(MatchError(ErrMalformedResponse))
		})
	})
})
