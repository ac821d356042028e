package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestNewHTTPClient tests client construction with and without a proxy.
func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("direct client has cookie jar", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Jar == nil {
			t.Error("expected cookie jar")
		}
		if client.CheckRedirect == nil {
			t.Error("expected redirect policy")
		}
	})

	t.Run("valid proxy address", func(t *testing.T) {
		t.Parallel()

		if _, err := NewHTTPClient("127.0.0.1:9050"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("invalid proxy addresses", func(t *testing.T) {
		t.Parallel()

		for _, addr := range []string{"localhost", ":9050", "localhost:0", "localhost:70000", "localhost:abc"} {
			if _, err := NewHTTPClient(addr); !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("%q: expected ErrInvalidProxyAddress, got %v", addr, err)
			}
		}
	})

	t.Run("stops redirect loops", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, r.URL.Path, http.StatusFound)
		}))
		defer server.Close()

		client, err := NewHTTPClient("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		f := New(append(noWait(), WithClient(client))...)
		_, err = f.Fetch(context.Background(), server.URL+"/loop")

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T (%v)", err, err)
		}
	})

	t.Run("follows a short redirect chain", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html><title>new</title></html>`)) //nolint:errcheck
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		client, err := NewHTTPClient("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		f := New(append(noWait(), WithClient(client))...)
		page, err := f.Fetch(context.Background(), server.URL+"/old")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.URL != server.URL+"/old" {
			t.Errorf("expected requested URL to be kept, got %q", page.URL)
		}
		if page.FinalURL != server.URL+"/new" {
			t.Errorf("expected final URL %q, got %q", server.URL+"/new", page.FinalURL)
		}
	})
}
