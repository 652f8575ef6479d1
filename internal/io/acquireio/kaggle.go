package acquireio

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/epidump/internal/ent/acquire"
	"github.com/gnames/epidump/internal/ent/kv"
	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/pkg/config"
	"github.com/gnames/gnsys"
)

// maxRetryAfter caps the wait requested by the server.
const maxRetryAfter = time.Minute

type kaggle struct {
	cached
	baseURL string
	user    string
	key     string
	dir     string
	client  *http.Client
	policy  retry.Policy
}

func newKaggle(cfg config.Config, store kv.KeyVal, p retry.Policy) *kaggle {
	return &kaggle{
		cached:  cached{store: store},
		baseURL: strings.TrimRight(cfg.KaggleURL, "/"),
		user:    cfg.KaggleUser,
		key:     cfg.KaggleKey,
		dir:     cfg.DownloadDir,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		policy:  p,
	}
}

// Acquire downloads and extracts a Kaggle dataset. A dataset that did not
// change since the last download is not downloaded again.
func (k *kaggle) Acquire(ref string) (acquire.Dataset, error) {
	res := acquire.Dataset{
		Ref: ref,
		Dir: datasetDir(k.dir, ref),
		URL: k.baseURL + "/datasets/" + ref,
	}

	prev := k.get(ref)
	if !dirExists(res.Dir) {
		prev = entry{}
	}

	err := retry.Run(k.policy, "download", func() error {
		return k.download(ref, res.Dir, prev)
	})
	if err != nil {
		slog.Error("Cannot download dataset", "ref", ref, "error", err)
		return res, err
	}
	return res, nil
}

func (k *kaggle) download(ref, dir string, prev entry) error {
	url := k.baseURL + "/api/v1/datasets/download/" + ref
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	if k.user != "" && k.key != "" {
		req.SetBasicAuth(k.user, k.key)
	}
	if prev.ETag != "" {
		req.Header.Set("If-None-Match", prev.ETag)
	}
	if prev.LastModified != "" {
		req.Header.Set("If-Modified-Since", prev.LastModified)
	}

	slog.Info("Downloading dataset", "ref", ref)
	resp, err := k.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusNotModified:
		slog.Info("Dataset did not change, using cached copy", "ref", ref)
		return nil
	case code == http.StatusNotFound:
		return retry.Permanent(fmt.Errorf("%w: %s", acquire.ErrNotFound, ref))
	case code == http.StatusTooManyRequests || code >= 500:
		if d := retryAfter(resp.Header.Get("Retry-After")); d > 0 {
			slog.Info("Server asked to wait", "ref", ref, "wait", d)
			time.Sleep(d)
		}
		return fmt.Errorf("download of %s failed: %s", ref, resp.Status)
	case code != http.StatusOK:
		return retry.Permanent(fmt.Errorf("download of %s failed: %s", ref, resp.Status))
	}

	if err = gnsys.MakeDir(k.dir); err != nil {
		return retry.Permanent(err)
	}
	tmp, err := os.CreateTemp(k.dir, "download-*.zip")
	if err != nil {
		return retry.Permanent(err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, resp.Body)
	if cErr := tmp.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return err
	}
	slog.Info("Downloaded dataset", "ref", ref, "size", humanize.Bytes(uint64(size)))

	if err = unzip(tmp.Name(), dir); err != nil {
		return retry.Permanent(err)
	}

	k.set(ref, entry{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Fetched:      time.Now(),
	})
	return nil
}

// retryAfter understands both seconds and HTTP date forms.
func retryAfter(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	var res time.Duration
	if secs, err := strconv.Atoi(s); err == nil {
		res = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(s); err == nil {
		res = time.Until(t)
	}
	return min(max(res, 0), maxRetryAfter)
}
