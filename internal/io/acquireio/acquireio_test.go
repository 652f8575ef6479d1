package acquireio_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/gnames/epidump/internal/ent/acquire"
	"github.com/gnames/epidump/internal/ent/kv"
	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/internal/io/acquireio"
	"github.com/gnames/epidump/internal/io/kvio"
	"github.com/gnames/epidump/pkg/config"
)

func zipped(files map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for k, v := range files {
		w, err := zw.Create(k)
		Expect(err).ToNot(HaveOccurred())
		_, err = w.Write([]byte(v))
		Expect(err).ToNot(HaveOccurred())
	}
	Expect(zw.Close()).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Acquireio", func() {
	Describe("Files", func() {
		It("finds delimited files recursively in order", func() {
			dir := filepath.Join("testdata", "owner", "slug")
			files, err := acquireio.Files(dir)
			Expect(err).ToNot(HaveOccurred())
			Expect(files).To(Equal([]string{
				filepath.Join(dir, "b.csv"),
				filepath.Join(dir, "nested", "a.TSV"),
			}))
		})

		It("returns nothing for a directory without CSV files", func() {
			files, err := acquireio.Files(filepath.Join("testdata", "owner", "empty"))
			Expect(err).ToNot(HaveOccurred())
			Expect(files).To(BeEmpty())
		})
	})

	Describe("local source", func() {
		var acq acquire.Acquirer

		BeforeEach(func() {
			var err error
			cfg := config.New(
				config.OptSource("local"),
				config.OptLocalDir("testdata"),
			)
			acq, err = acquireio.New(cfg, nil, retry.New(1, 0, 1))
			Expect(err).ToNot(HaveOccurred())
		})

		It("finds an extracted dataset", func() {
			ds, err := acq.Acquire("owner/slug")
			Expect(err).ToNot(HaveOccurred())
			Expect(ds.Dir).To(Equal(filepath.Join("testdata", "owner", "slug")))
			Expect(ds.Ref).To(Equal("owner/slug"))
		})

		It("reports a missing dataset", func() {
			_, err := acq.Acquire("owner/missing")
			Expect(errors.Is(err, acquire.ErrNotFound)).To(BeTrue())
		})
	})

	It("does not know unknown sources", func() {
		_, err := acquireio.New(config.New(config.OptSource("ftp")), nil, retry.New(1, 0, 1))
		Expect(err).To(HaveOccurred())
	})

	Describe("kaggle source", func() {
		var (
			cacheDir string
			store    kv.KeyVal
			srv      *httptest.Server
			calls    atomic.Int32
			failures atomic.Int32
			etags    []string
			auth     []string
			archive  []byte
		)

		BeforeEach(func() {
			var err error
			calls.Store(0)
			failures.Store(0)
			etags = nil
			auth = nil
			archive = zipped(map[string]string{
				"b.csv":       "country,date,cases\nItaly,2020-01-01,1\n",
				"data/a.csv":  "country,date,cases\nSpain,2020-01-01,2\n",
				"data/c.json": "{}",
			})

			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				user, _, _ := r.BasicAuth()
				auth = append(auth, user)
				etags = append(etags, r.Header.Get("If-None-Match"))
				if failures.Load() > 0 {
					failures.Add(-1)
					w.Header().Set("Retry-After", "0")
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				if r.URL.Path != "/api/v1/datasets/download/owner/slug" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				if r.Header.Get("If-None-Match") == `"v1"` {
					w.WriteHeader(http.StatusNotModified)
					return
				}
				w.Header().Set("ETag", `"v1"`)
				w.Header().Set("Content-Type", "application/zip")
				_, _ = w.Write(archive)
			}))

			cacheDir, err = os.MkdirTemp("", "epidump-cache")
			Expect(err).ToNot(HaveOccurred())
			store, err = kvio.New(filepath.Join(cacheDir, "kv"))
			Expect(err).ToNot(HaveOccurred())
			Expect(store.Open()).To(Succeed())
		})

		AfterEach(func() {
			srv.Close()
			Expect(store.Close()).To(Succeed())
			Expect(os.RemoveAll(cacheDir)).To(Succeed())
		})

		newAcquirer := func() acquire.Acquirer {
			cfg := config.New(
				config.OptSource("kaggle"),
				config.OptKaggleURL(srv.URL),
				config.OptKaggleUser("user"),
				config.OptKaggleKey("key"),
				config.OptCacheDir(cacheDir),
			)
			acq, err := acquireio.New(cfg, store, retry.New(3, 0, 1))
			Expect(err).ToNot(HaveOccurred())
			return acq
		}

		It("downloads and extracts a dataset", func() {
			ds, err := newAcquirer().Acquire("owner/slug")
			Expect(err).ToNot(HaveOccurred())
			Expect(ds.URL).To(Equal(srv.URL + "/datasets/owner/slug"))
			Expect(auth).To(Equal([]string{"user"}))

			files, err := acquireio.Files(ds.Dir)
			Expect(err).ToNot(HaveOccurred())
			Expect(files).To(Equal([]string{
				filepath.Join(ds.Dir, "b.csv"),
				filepath.Join(ds.Dir, "data", "a.csv"),
			}))
		})

		It("does not download an unchanged dataset again", func() {
			acq := newAcquirer()
			ds1, err := acq.Acquire("owner/slug")
			Expect(err).ToNot(HaveOccurred())
			ds2, err := acq.Acquire("owner/slug")
			Expect(err).ToNot(HaveOccurred())
			Expect(ds2.Dir).To(Equal(ds1.Dir))
			Expect(calls.Load()).To(Equal(int32(2)))
			Expect(etags).To(Equal([]string{"", `"v1"`}))

			files, err := acquireio.Files(ds2.Dir)
			Expect(err).ToNot(HaveOccurred())
			Expect(files).To(HaveLen(2))
		})

		It("downloads again if extracted files are gone", func() {
			acq := newAcquirer()
			ds, err := acq.Acquire("owner/slug")
			Expect(err).ToNot(HaveOccurred())
			Expect(os.RemoveAll(ds.Dir)).To(Succeed())

			_, err = acq.Acquire("owner/slug")
			Expect(err).ToNot(HaveOccurred())
			Expect(etags).To(Equal([]string{"", ""}))
		})

		It("retries server errors", func() {
			failures.Store(2)
			_, err := newAcquirer().Acquire("owner/slug")
			Expect(err).ToNot(HaveOccurred())
			Expect(calls.Load()).To(Equal(int32(3)))
		})

		It("does not retry a missing dataset", func() {
			_, err := newAcquirer().Acquire("owner/missing")
			Expect(errors.Is(err, acquire.ErrNotFound)).To(BeTrue())
			Expect(calls.Load()).To(Equal(int32(1)))
		})
	})
})
