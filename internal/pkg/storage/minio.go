package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options is minio gateway config
type Options struct {
	URL       string
	User      string
	Key       string
	Bucket    string
	SSL       bool
	PublicURL string
}

// Filer is the durable video storage gateway over minio
type Filer struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewFiler creates minio gateway instance
func NewFiler(ctx context.Context, opts Options) (*Filer, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("no storage URL")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("no bucket")
	}
	cl, err := minio.New(opts.URL, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Key, ""),
		Secure: opts.SSL,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	res := &Filer{client: cl, bucket: opts.Bucket, publicURL: strings.TrimSuffix(opts.PublicURL, "/")}
	if res.publicURL == "" {
		res.publicURL = cl.EndpointURL().String()
	}
	if err := res.makeBucket(ctx); err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("url", opts.URL).Str("bucket", opts.Bucket).Msg("cfg: minio")
	return res, nil
}

func (f *Filer) makeBucket(ctx context.Context) error {
	exists, err := f.client.BucketExists(ctx, f.bucket)
	if err != nil {
		return fmt.Errorf("can't check bucket '%s': %w", f.bucket, err)
	}
	if !exists {
		if err := f.client.MakeBucket(ctx, f.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("can't create bucket '%s': %w", f.bucket, err)
		}
		goapp.Log.Info().Str("bucket", f.bucket).Msg("bucket created")
	}
	return nil
}

// SaveFile puts bytes to durable storage, returns streaming URL of the object
func (f *Filer) SaveFile(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := f.client.PutObject(ctx, f.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("can't save '%s': %w", name, err)
	}
	return fmt.Sprintf("%s/%s/%s", f.publicURL, f.bucket, name), nil
}

// LoadFile retrieves stored object by key
func (f *Filer) LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	obj, err := f.client.GetObject(ctx, f.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("can't load '%s': %w", name, err)
	}
	// GetObject is lazy, make sure the object exists
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("can't load '%s': %w", name, err)
	}
	return obj, nil
}

// Delete removes one object, missing object is not an error
func (f *Filer) Delete(ctx context.Context, name string) error {
	if err := f.client.RemoveObject(ctx, f.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("can't delete '%s': %w", name, err)
	}
	return nil
}

// DeletePrefix removes all objects under a key prefix, returns removed count
func (f *Filer) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("no prefix")
	}
	res := 0
	for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return res, fmt.Errorf("can't list '%s': %w", prefix, obj.Err)
		}
		if err := f.Delete(ctx, obj.Key); err != nil {
			return res, err
		}
		res++
	}
	goapp.Log.Info().Str("prefix", prefix).Int("count", res).Msg("deleted objects")
	return res, nil
}

// Live returns no error if storage is reachable and the bucket exists
func (f *Filer) Live(ctx context.Context) error {
	exists, err := f.client.BucketExists(ctx, f.bucket)
	if err != nil {
		return fmt.Errorf("can't reach storage: %w", err)
	}
	if !exists {
		return fmt.Errorf("no bucket '%s'", f.bucket)
	}
	return nil
}
