package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/completed.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", got)
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`["a","b"]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret", nil)
	doc, err := c.Get(context.Background(), "completed.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(doc.Content) != `["a","b"]` {
		t.Errorf("unexpected content: %s", doc.Content)
	}
	if doc.Version != `"v1"` {
		t.Errorf("unexpected version: %s", doc.Version)
	}
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", nil)
	_, err := c.Get(context.Background(), "completed.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", nil)
	_, err := c.Get(context.Background(), "completed.json")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		t.Errorf("server error must not map to a sentinel: %v", err)
	}
}

func TestPutIfMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if got := r.Header.Get("If-Match"); got != `"v1"` {
			t.Errorf("expected If-Match v1, got %q", got)
		}
		if r.Header.Get("If-None-Match") != "" {
			t.Error("If-None-Match must not be set for updates")
		}
		w.Header().Set("ETag", `"v2"`)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", nil)
	version, err := c.Put(context.Background(), "completed.json", []byte(`["a"]`), `"v1"`)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if version != `"v2"` {
		t.Errorf("expected new version v2, got %s", version)
	}
}

func TestPutCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("If-None-Match"); got != "*" {
			t.Errorf("expected If-None-Match: *, got %q", got)
		}
		if r.Header.Get("If-Match") != "" {
			t.Error("If-Match must not be set on create")
		}
		w.Header().Set("ETag", `"v1"`)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", nil)
	version, err := c.Put(context.Background(), "completed.json", []byte(`[]`), "")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if version != `"v1"` {
		t.Errorf("expected version v1, got %s", version)
	}
}

func TestPutConflict(t *testing.T) {
	for _, status := range []int{http.StatusPreconditionFailed, http.StatusConflict} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		c := NewHTTPClient(srv.URL, "", nil)
		_, err := c.Put(context.Background(), "completed.json", []byte(`[]`), `"stale"`)
		if !errors.Is(err, ErrConflict) {
			t.Errorf("status %d: expected ErrConflict, got %v", status, err)
		}
		srv.Close()
	}
}

func TestBaseURLNormalization(t *testing.T) {
	c := NewHTTPClient("https://store.example.com/files/", "", nil)
	if got := c.url("completed.json"); got != "https://store.example.com/files/completed.json" {
		t.Errorf("unexpected url: %s", got)
	}
}
