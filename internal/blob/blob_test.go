package blob

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

func TestBlob(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Blob Suite")
}

var _ = Describe("HTTPFetcher", func() {
	var (
		upstream *ghttp.Server
		fetcher  *HTTPFetcher
	)

	BeforeEach(func() {
		upstream = ghttp.NewServer()
		host, err := url.Parse(upstream.URL())
		Expect(err).NotTo(HaveOccurred())
		fetcher = NewHTTPFetcher([]string{host.Hostname()})
	})

	AfterEach(func() {
		upstream.Close()
	})

	Describe("HostAllowed", func() {
		BeforeEach(func() {
			fetcher = NewHTTPFetcher([]string{"*.blob.example.com", "uploads.wayve.app"})
		})

		It("matches wildcard patterns", func() {
			Expect(fetcher.HostAllowed("tenant1.blob.example.com")).To(BeTrue())
		})

		It("matches exact hosts case-insensitively", func() {
			Expect(fetcher.HostAllowed("Uploads.Wayve.App")).To(BeTrue())
		})

		It("rejects unknown hosts", func() {
			Expect(fetcher.HostAllowed("evil.example.net")).To(BeFalse())
		})

		It("does not match across subdomain levels", func() {
			Expect(fetcher.HostAllowed("a.b.blob.example.com")).To(BeFalse())
		})
	})

	Describe("Fetch", func() {
		When("the blob exists", func() {
			BeforeEach(func() {
				upstream.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("GET", "/receipt.pdf"),
					ghttp.RespondWith(http.StatusOK, "%PDF-1.4 data", http.Header{"Content-Type": []string{"application/pdf"}}),
				))
			})

			It("returns the data and content type", func() {
				data, contentType, err := fetcher.Fetch(context.Background(), upstream.URL()+"/receipt.pdf")
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal([]byte("%PDF-1.4 data")))
				Expect(contentType).To(Equal("application/pdf"))
			})
		})

		When("the host is not allow-listed", func() {
			It("fails with ErrHostNotAllowed before any request", func() {
				_, _, err := fetcher.Fetch(context.Background(), "https://evil.example.net/receipt.pdf")
				Expect(err).To(MatchError(ErrHostNotAllowed))
				Expect(upstream.ReceivedRequests()).To(BeEmpty())
			})
		})

		When("the scheme is not http(s)", func() {
			It("fails", func() {
				_, _, err := fetcher.Fetch(context.Background(), "file:///etc/passwd")
				Expect(err).To(HaveOccurred())
			})
		})

		When("the upstream returns a non-200", func() {
			BeforeEach(func() {
				upstream.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, "gone"))
			})

			It("fails", func() {
				_, _, err := fetcher.Fetch(context.Background(), upstream.URL()+"/missing.pdf")
				Expect(err).To(HaveOccurred())
			})
		})
	})
})

var _ = Describe("LocalStore", func() {
	var (
		tmpDir string
		store  Store
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		store, err = NewLocalStore(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Put", func() {
		It("saves the file and returns its path", func() {
			path, err := store.Put("page1.jpg", []byte("jpeg bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal("page1.jpg"))
			Expect(filepath.Join(tmpDir, "page1.jpg")).To(BeAnExistingFile())
		})
	})

	Describe("Get", func() {
		It("round-trips saved data", func() {
			path, err := store.Put("page1.jpg", []byte("jpeg bytes"))
			Expect(err).NotTo(HaveOccurred())

			data, err := store.Get(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("jpeg bytes")))
		})

		It("fails for a missing path", func() {
			_, err := store.Get("nope.jpg")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("removes the file", func() {
			path, err := store.Put("page1.jpg", []byte("jpeg bytes"))
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Delete(path)).To(Succeed())
			Expect(filepath.Join(tmpDir, "page1.jpg")).NotTo(BeAnExistingFile())
		})

		It("fails for a missing path", func() {
			Expect(store.Delete("nope.jpg")).NotTo(Succeed())
		})
	})
})
