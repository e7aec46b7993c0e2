package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Fetcher loads source documents and signatures from GCS or over HTTP.
type Fetcher struct {
	Storage  *storage.Client
	HTTP     *http.Client
	Timeout  time.Duration
	MaxBytes int64
	Retry    RetryPolicy
}

// NewFetcher returns a Fetcher with an instrumented HTTP client.
func NewFetcher(storageClient *storage.Client, timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		Storage:  storageClient,
		HTTP:     &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Timeout:  timeout,
		MaxBytes: maxBytes,
		Retry:    DefaultRetryPolicy(),
	}
}

// Fetch reads uri, which is gs://bucket/object or an http(s) URL.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	var data []byte
	var op func(ctx context.Context) error

	switch {
	case strings.HasPrefix(uri, "gs://"):
		bucket, object, err := ParseGCSUri(uri)
		if err != nil {
			return nil, err
		}
		if f.Storage == nil {
			return nil, fmt.Errorf("cannot fetch %s: no storage client", uri)
		}
		op = func(ctx context.Context) error {
			var err error
			data, err = f.fetchGCS(ctx, bucket, object)
			return err
		}
	case strings.HasPrefix(uri, "https://"), strings.HasPrefix(uri, "http://"):
		op = func(ctx context.Context) error {
			var err error
			data, err = f.fetchHTTP(ctx, uri)
			return err
		}
	default:
		return nil, fmt.Errorf("unsupported source uri %q", uri)
	}

	if err := Retry(ctx, f.Retry, "fetch "+uri, op); err != nil {
		return nil, err
	}
	return data, nil
}

func (f *Fetcher) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.Timeout)
}

func (f *Fetcher) fetchGCS(ctx context.Context, bucket, object string) ([]byte, error) {
	ctx, cancel := f.attemptContext(ctx)
	defer cancel()
	data, err := ReadObject(ctx, f.Storage.Bucket(bucket), object, f.MaxBytes)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, ErrTooLarge) {
		return nil, Permanent(err)
	}
	return data, err
}

func (f *Fetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := f.attemptContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Permanent(err)
	}
	client := f.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, err
		}
		return nil, Permanent(err)
	}
	data, err := readCapped(resp.Body, f.MaxBytes)
	if errors.Is(err, ErrTooLarge) {
		return nil, Permanent(err)
	}
	return data, err
}
