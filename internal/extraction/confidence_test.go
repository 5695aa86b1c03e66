package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("totalUsable", func() {
	total := func(value float64, confidence float64) *Result {
		v := value
		return &Result{Total: AmountField{Value: &v, Confidence: confidence}}
	}

	It("accepts a confident total", func() {
		Expect(totalUsable(total(45.99, 0.95))).To(BeTrue())
	})

	It("accepts a total at exactly the threshold", func() {
		Expect(totalUsable(total(45.99, 0.5))).To(BeTrue())
	})

	It("rejects a total strictly below the threshold", func() {
		Expect(totalUsable(total(45.99, 0.49))).To(BeFalse())
	})

	It("rejects an absent total regardless of confidence", func() {
		Expect(totalUsable(&Result{Total: AmountField{Confidence: 0.9}})).To(BeFalse())
	})

	It("rejects a nil result", func() {
		Expect(totalUsable(nil)).To(BeFalse())
	})

	It("ignores other fields' confidence", func() {
		r := total(45.99, 0.9)
		r.Vendor = TextField{Confidence: 0}
		r.Date = TextField{Confidence: 0}
		Expect(totalUsable(r)).To(BeTrue())
	})
})
