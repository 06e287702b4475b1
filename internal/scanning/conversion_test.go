package scanning

import (
	"bytes"
	"image"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("prepareFrame", func() {
	var (
		frame       []byte
		contentType string
		prepared    []byte
		converted   bool
		err         error
	)

	JustBeforeEach(func() {
		prepared, _, converted, err = prepareFrame(frame, contentType)
	})

	When("the frame is already PNG", func() {
		BeforeEach(func() {
			frame = encodePNG()
			contentType = "image/png"
		})

		It("should pass it through unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(converted).To(BeFalse())
			Expect(prepared).To(Equal(frame))
		})
	})

	When("the frame is a decodable image in another format", func() {
		BeforeEach(func() {
			frame = encodePNG()
			contentType = "image/jpeg" // content type lies, sniffing still decodes it
		})

		It("should convert it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(converted).To(BeTrue())
			Expect(prepared).NotTo(BeEmpty())
		})
	})

	When("the frame bytes are not a decodable image", func() {
		BeforeEach(func() {
			frame = []byte("not an image at all")
			contentType = "image/jpeg"
		})

		It("returns ErrBadFrame", func() {
			Expect(err).To(MatchError(ErrBadFrame))
		})
	})

	When("a HEIC content type carries undecodable bytes", func() {
		BeforeEach(func() {
			frame = []byte("not heic data")
			contentType = "image/heic"
		})

		It("returns ErrBadFrame", func() {
			Expect(err).To(MatchError(ErrBadFrame))
		})
	})
})

// encodePNG builds a minimal valid PNG frame
func encodePNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}
