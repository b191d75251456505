package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rpattn/salespipe/internal/domain"
)

const productJSON = `{
	"id": 1,
	"title": "Fjallraven Backpack",
	"price": 109.95,
	"category": "men's clothing",
	"description": "Your perfect pack for everyday use",
	"rating": {"rate": 3.9, "count": 120}
}`

func TestClientProduct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(productJSON))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	meta, err := client.Product(context.Background(), "1")
	if err != nil {
		t.Fatalf("product returned error: %v", err)
	}

	if meta.CatalogID != "1" {
		t.Fatalf("expected catalog id 1, got %s", meta.CatalogID)
	}
	if meta.Title != "Fjallraven Backpack" || meta.Category != "men's clothing" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.ListPrice != 109.95 || meta.Rating != 3.9 {
		t.Fatalf("unexpected numbers: %+v", meta)
	}
}

func TestClientProductNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Product(context.Background(), "999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ClassifyFailure(err) != domain.LookupNotFound {
		t.Fatalf("expected LOOKUP_NOT_FOUND classification, got %s", ClassifyFailure(err))
	}
}

func TestClientProductServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Product(context.Background(), "1")
	if err == nil {
		t.Fatalf("expected error on 500")
	}
	if ClassifyFailure(err) != domain.LookupError {
		t.Fatalf("expected LOOKUP_ERROR classification, got %s", ClassifyFailure(err))
	}
}

func TestClientProductTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTimeout(20*time.Millisecond))
	_, err := client.Product(context.Background(), "1")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if ClassifyFailure(err) != domain.LookupTimeout {
		t.Fatalf("expected LOOKUP_TIMEOUT classification, got %v", err)
	}
}

func TestClientEmptyProductID(t *testing.T) {
	client := NewClient("http://unused.invalid")
	_, err := client.Product(context.Background(), "  ")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty id, got %v", err)
	}
}

func TestClientTruncatesDescription(t *testing.T) {
	long := strings.Repeat("x", 500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 2, "title": "t", "price": 1, "category": "c", "description": "` + long + `"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	meta, err := client.Product(context.Background(), "2")
	if err != nil {
		t.Fatalf("product returned error: %v", err)
	}
	if len(meta.Description) != 203 {
		t.Fatalf("expected truncated description, got %d chars", len(meta.Description))
	}
	if !strings.HasSuffix(meta.Description, "...") {
		t.Fatalf("expected ellipsis suffix")
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	// 199 ASCII bytes followed by a 3-byte rune: the cut at byte 200 lands
	// mid-rune and must back up to the boundary.
	s := strings.Repeat("a", 199) + "€" + strings.Repeat("b", 50)

	got := truncate(s, 200)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated description is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "a...") {
		t.Fatalf("expected cut before the split rune, got %q", got[190:])
	}
	if len(got) > 203 {
		t.Fatalf("truncated string too long: %d bytes", len(got))
	}

	short := "café"
	if truncate(short, 200) != short {
		t.Fatalf("short strings must pass through unchanged")
	}
}

func TestCachedLookupCollapsesRepeatLookups(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(productJSON))
	}))
	defer server.Close()

	cached := NewCachedLookup(NewClient(server.URL))
	for i := 0; i < 5; i++ {
		meta, err := cached.Product(context.Background(), "1")
		if err != nil {
			t.Fatalf("lookup %d returned error: %v", i, err)
		}
		if meta.CatalogID != "1" {
			t.Fatalf("unexpected metadata on lookup %d: %+v", i, meta)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 upstream call, got %d", got)
	}
}

func TestCachedLookupCachesFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	cached := NewCachedLookup(NewClient(server.URL))
	for i := 0; i < 3; i++ {
		if _, err := cached.Product(context.Background(), "404"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("lookup %d: expected ErrNotFound, got %v", i, err)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 upstream call, got %d", got)
	}
}
