package extraction

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func encodeTest(encode func(*bytes.Buffer, image.Image) error) []byte {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	Expect(encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("prepareImage", func() {
	When("given JPEG bytes", func() {
		It("passes them through untouched", func() {
			data := encodeTest(func(buf *bytes.Buffer, img image.Image) error {
				return jpeg.Encode(buf, img, nil)
			})
			out, err := prepareImage(data, "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(data))
		})
	})

	When("given PNG bytes", func() {
		It("passes them through untouched", func() {
			data := encodeTest(func(buf *bytes.Buffer, img image.Image) error {
				return png.Encode(buf, img)
			})
			out, err := prepareImage(data, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(data))
		})
	})

	When("given GIF bytes", func() {
		It("re-encodes to JPEG", func() {
			data := encodeTest(func(buf *bytes.Buffer, img image.Image) error {
				return gif.Encode(buf, img, nil)
			})
			out, err := prepareImage(data, "image/gif")
			Expect(err).NotTo(HaveOccurred())

			_, format, err := image.Decode(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("jpeg"))
		})
	})

	When("the declared type does not match the bytes", func() {
		It("still decodes by content", func() {
			data := encodeTest(func(buf *bytes.Buffer, img image.Image) error {
				return png.Encode(buf, img)
			})
			out, err := prepareImage(data, "application/octet-stream")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).NotTo(BeEmpty())
		})
	})

	When("given undecodable bytes", func() {
		It("fails with ErrUnsupportedFileType", func() {
			_, err := prepareImage([]byte("not an image at all"), "image/jpeg")
			Expect(err).To(MatchError(ErrUnsupportedFileType))
		})
	})
})

var _ = Describe("isHEICData", func() {
	It("recognizes the heic ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
		data = append(data, make([]byte, 16)...)
		Expect(isHEICData(data)).To(BeTrue())
	})

	It("rejects short data", func() {
		Expect(isHEICData([]byte("ftyp"))).To(BeFalse())
	})

	It("rejects other containers", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypmp42")...)
		data = append(data, make([]byte, 16)...)
		Expect(isHEICData(data)).To(BeFalse())
	})
})

var _ = Describe("FitzRasterizer", func() {
	var rasterizer *FitzRasterizer

	BeforeEach(func() {
		rasterizer = NewFitzRasterizer()
	})

	When("the document is not a PDF", func() {
		garbage := []byte("definitely not a pdf")

		It("reports the page as absent rather than erroring", func() {
			_, ok := rasterizer.RenderPage(garbage, 1, DefaultScale)
			Expect(ok).To(BeFalse())
		})

		It("reports a page count of 0", func() {
			Expect(rasterizer.PageCount(garbage)).To(BeZero())
		})
	})

	When("the page number is invalid", func() {
		It("reports absent for page 0", func() {
			_, ok := rasterizer.RenderPage([]byte("%PDF-1.4"), 0, DefaultScale)
			Expect(ok).To(BeFalse())
		})
	})
})
