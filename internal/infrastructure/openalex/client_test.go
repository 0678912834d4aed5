package openalex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"RefScreener/internal/source"
)

func TestWorkByDOI(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/works/doi:") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("mailto") != "team@example.org" {
			t.Errorf("mailto missing from query")
		}
		_, _ = w.Write([]byte(`{
			"id": "https://openalex.org/W1",
			"doi": "https://doi.org/10.1000/focal",
			"title": "Focal work",
			"publication_year": 2021,
			"is_retracted": true,
			"referenced_works": ["https://openalex.org/W2", "https://openalex.org/W3"]
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "team@example.org", server.Client(), nil)
	work, err := c.WorkByDOI(context.Background(), "10.1000/focal")
	if err != nil {
		t.Fatalf("WorkByDOI error: %v", err)
	}

	if work.ID != "https://openalex.org/W1" || work.Title != "Focal work" {
		t.Fatalf("unexpected work: %+v", work)
	}
	if !work.Retracted || work.Year != 2021 {
		t.Fatalf("flags not decoded: %+v", work)
	}
	if len(work.ReferencedWorkIDs) != 2 {
		t.Fatalf("references not decoded: %+v", work.ReferencedWorkIDs)
	}
}

func TestWorksByIDsBatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("filter")
		if !strings.Contains(filter, "openalex_id:") || !strings.Contains(filter, "|") {
			t.Errorf("unexpected filter %q", filter)
		}
		_, _ = w.Write([]byte(`{"results": [
			{"id": "https://openalex.org/W2", "doi": "https://doi.org/10.1000/two", "title": "Two", "publication_year": 2010},
			{"id": "https://openalex.org/W3", "title": "Three, no DOI"}
		]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", server.Client(), nil)
	works, err := c.WorksByIDs(context.Background(), []string{"https://openalex.org/W2", "https://openalex.org/W3"})
	if err != nil {
		t.Fatalf("WorksByIDs error: %v", err)
	}
	if len(works) != 2 {
		t.Fatalf("expected 2 works, got %d", len(works))
	}
	if works[1].DOI != "" {
		t.Fatalf("DOI-less work should keep empty DOI: %+v", works[1])
	}
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, source.ErrNotFound},
		{http.StatusTooManyRequests, source.ErrRateLimited},
		{http.StatusInternalServerError, source.ErrUnavailable},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.code)
		}))

		c := NewClient(server.URL, "", server.Client(), nil)
		_, err := c.WorkByDOI(context.Background(), "10.1000/x")
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d classified as %v, want %v", tc.code, err, tc.want)
		}
		server.Close()
	}
}

func TestMalformedPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": `))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", server.Client(), nil)
	_, err := c.WorkByDOI(context.Background(), "10.1000/x")
	if !errors.Is(err, source.ErrMalformed) {
		t.Fatalf("expected malformed classification, got %v", err)
	}
}
