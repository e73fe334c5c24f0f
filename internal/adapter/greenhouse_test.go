package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amishk599/jobscout/internal/model"
)

func TestGreenhouseFetch_Success(t *testing.T) {
	payload := `{
		"jobs": [
			{
				"id": 12345,
				"title": "Junior Software Engineer",
				"location": {"name": "San Francisco, CA"},
				"absolute_url": "https://boards.greenhouse.io/acme/jobs/12345",
				"content": "&lt;p&gt;Write Go.&lt;/p&gt;"
			},
			{
				"id": 67890,
				"title": "Backend Engineer",
				"location": {"name": "Remote, US"},
				"absolute_url": "https://boards.greenhouse.io/acme/jobs/67890",
				"content": ""
			}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/boards/acme/jobs" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("content") != "true" {
			t.Errorf("expected content=true, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	a := newTestAdapter(srv, "acme")

	records, err := a.Fetch(context.Background(), model.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	r := records[0]
	if r.Get("id") != "12345" {
		t.Errorf("expected id 12345, got %s", r.Get("id"))
	}
	if r.Get(model.FieldTitle) != "Junior Software Engineer" {
		t.Errorf("unexpected title %q", r.Get(model.FieldTitle))
	}
	if r.Get(model.FieldLink) != "https://boards.greenhouse.io/acme/jobs/12345" {
		t.Errorf("unexpected link %q", r.Get(model.FieldLink))
	}
	if r.Get(model.FieldLocation) != "San Francisco, CA" {
		t.Errorf("unexpected location %q", r.Get(model.FieldLocation))
	}
	if r.Get(model.FieldDescription) != "&lt;p&gt;Write Go.&lt;/p&gt;" {
		t.Errorf("description should be passed through raw, got %q", r.Get(model.FieldDescription))
	}
	if a.Name() != "acme-greenhouse" {
		t.Errorf("Name() = %q", a.Name())
	}
}

func TestGreenhouseFetch_FiltersLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jobs": [
			{"id": 1, "title": "A", "location": {"name": "Tel Aviv, Israel"}, "absolute_url": "https://x.io/1"},
			{"id": 2, "title": "B", "location": {"name": "Berlin, Germany"}, "absolute_url": "https://x.io/2"}
		]}`))
	}))
	defer srv.Close()

	records, err := newTestAdapter(srv, "acme").Fetch(context.Background(), model.Query{Location: "israel"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Get("id") != "1" {
		t.Fatalf("expected only the Israel posting, got %v", records)
	}
}

func TestGreenhouseFetch_EmptyBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jobs": []}`))
	}))
	defer srv.Close()

	records, err := newTestAdapter(srv, "empty-co").Fetch(context.Background(), model.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected 0 records, got %d", len(records))
	}
}

func TestGreenhouseFetch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not valid json`))
	}))
	defer srv.Close()

	if _, err := newTestAdapter(srv, "bad-co").Fetch(context.Background(), model.Query{}); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestGreenhouseFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestAdapter(srv, "fail-co").Fetch(context.Background(), model.Query{})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected HTTPError 500, got %v", err)
	}
}

// --- helpers ---

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// newTestAdapter creates a GreenhouseAdapter whose requests are rewritten to
// hit the test server.
func newTestAdapter(srv *httptest.Server, token string) *GreenhouseAdapter {
	a := NewGreenhouseAdapter(token+"-greenhouse", token, srv.Client())
	a.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			req.URL.Scheme = "http"
			req.URL.Host = srv.Listener.Addr().String()
			return http.DefaultTransport.RoundTrip(req)
		}),
	}
	return a
}
