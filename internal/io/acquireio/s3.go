package acquireio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gnames/epidump/internal/ent/acquire"
	"github.com/gnames/epidump/internal/ent/kv"
	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/gnames/epidump/pkg/config"
	"github.com/gnames/gnsys"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type s3 struct {
	cached
	client  *minio.Client
	bucket  string
	dir     string
	timeout time.Duration
	policy  retry.Policy
}

func newS3(cfg config.Config, store kv.KeyVal, p retry.Policy) (*s3, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3SSL,
	})
	if err != nil {
		slog.Error("Cannot create S3 client", "endpoint", cfg.S3Endpoint, "error", err)
		return nil, err
	}
	res := s3{
		cached:  cached{store: store},
		client:  client,
		bucket:  cfg.S3Bucket,
		dir:     cfg.DownloadDir,
		timeout: cfg.HTTPTimeout,
		policy:  p,
	}
	return &res, nil
}

// Acquire gets <ref>.zip from the bucket and extracts it. The archive is
// not fetched again if its ETag did not change.
func (s *s3) Acquire(ref string) (acquire.Dataset, error) {
	key := ref + ".zip"
	res := acquire.Dataset{
		Ref: ref,
		Dir: datasetDir(s.dir, ref),
		URL: fmt.Sprintf("s3://%s/%s", s.bucket, key),
	}

	err := retry.Run(s.policy, "download", func() error {
		return s.fetch(ref, key, res.Dir)
	})
	if err != nil {
		slog.Error("Cannot get dataset from S3", "ref", ref, "error", err)
		return res, err
	}
	return res, nil
}

func (s *s3) fetch(ref, key, dir string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return s3Error(ref, err)
	}
	if prev := s.get(ref); prev.ETag == info.ETag && dirExists(dir) {
		slog.Info("Dataset did not change, using cached copy", "ref", ref)
		return nil
	}

	if err = gnsys.MakeDir(s.dir); err != nil {
		return retry.Permanent(err)
	}
	tmp, err := os.CreateTemp(s.dir, "download-*.zip")
	if err != nil {
		return retry.Permanent(err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	slog.Info("Downloading dataset", "ref", ref, "bucket", s.bucket)
	err = s.client.FGetObject(ctx, s.bucket, key, tmp.Name(), minio.GetObjectOptions{})
	if err != nil {
		return s3Error(ref, err)
	}

	if err = unzip(tmp.Name(), dir); err != nil {
		return retry.Permanent(err)
	}
	s.set(ref, entry{
		ETag:         info.ETag,
		LastModified: info.LastModified.UTC().Format(time.RFC1123),
		Fetched:      time.Now(),
	})
	return nil
}

func s3Error(ref string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return retry.Permanent(fmt.Errorf("%w: %s", acquire.ErrNotFound, ref))
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return retry.Permanent(err)
	}
	return err
}
