package gcp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testFetcher() *Fetcher {
	f := NewFetcher(nil, time.Second, 16)
	f.Retry = fastPolicy(3)
	return f
}

func TestFetch_HTTPRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	data, err := testFetcher().Fetch(context.Background(), srv.URL+"/doc.pdf")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Errorf("unexpected body %q", data)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", calls.Load())
	}
}

func TestFetch_HTTPClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := testFetcher().Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected an error for 404")
	}
	if calls.Load() != 1 {
		t.Errorf("expected no retries, got %d requests", calls.Load())
	}
}

func TestFetch_SizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 17)))
	}))
	defer srv.Close()

	if _, err := testFetcher().Fetch(context.Background(), srv.URL); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestFetch_UnsupportedSources(t *testing.T) {
	f := testFetcher()
	for _, uri := range []string{"ftp://host/file.pdf", "file.pdf", "gs://bucket/object"} {
		if _, err := f.Fetch(context.Background(), uri); err == nil {
			t.Errorf("expected an error for %q", uri)
		}
	}
}
