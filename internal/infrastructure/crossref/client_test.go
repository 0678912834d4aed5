package crossref

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"RefScreener/internal/domain"
	"RefScreener/internal/source"
)

func serveMessage(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"message": %s}`, body)
	}))
}

func TestCheckRetraction(t *testing.T) {
	t.Parallel()

	server := serveMessage(t, `{"updated-by": [{"type": "retraction", "label": "Retraction"}]}`)
	defer server.Close()

	c := NewClient(server.URL, "", server.Client(), nil)
	verdict, err := c.Check(context.Background(), "10.1000/x")
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if verdict.Status != domain.StatusRetracted {
		t.Fatalf("expected retracted, got %v", verdict.Status)
	}
	if verdict.Source != domain.SourceRegistrar {
		t.Fatalf("wrong source: %v", verdict.Source)
	}
	if !strings.Contains(verdict.Evidence, "retraction") {
		t.Fatalf("evidence missing signal: %s", verdict.Evidence)
	}
}

func TestCheckMapsSignalFamilies(t *testing.T) {
	t.Parallel()

	cases := []struct {
		body string
		want domain.Status
	}{
		{`{"updated-by": [{"type": "expression_of_concern"}]}`, domain.StatusExpressionOfConcern},
		{`{"updated-by": [{"type": "withdrawal"}]}`, domain.StatusWithdrawn},
		{`{"updated-by": [{"type": "correction"}]}`, domain.StatusCorrected},
		{`{"updated-by": [{"type": "erratum"}]}`, domain.StatusCorrected},
		{`{"relation": {"is-retracted-by": []}}`, domain.StatusRetracted},
		{`{"updated-by": [{"type": "new_edition"}]}`, domain.StatusOK},
		{`{}`, domain.StatusOK},
	}

	for _, tc := range cases {
		server := serveMessage(t, tc.body)
		c := NewClient(server.URL, "", server.Client(), nil)
		verdict, err := c.Check(context.Background(), "10.1000/x")
		if err != nil {
			t.Fatalf("Check error for %s: %v", tc.body, err)
		}
		if verdict.Status != tc.want {
			t.Fatalf("body %s: got %v, want %v", tc.body, verdict.Status, tc.want)
		}
		server.Close()
	}
}

func TestCheckStrongestSignalWins(t *testing.T) {
	t.Parallel()

	server := serveMessage(t, `{"updated-by": [{"type": "correction"}, {"type": "retraction"}]}`)
	defer server.Close()

	c := NewClient(server.URL, "", server.Client(), nil)
	verdict, err := c.Check(context.Background(), "10.1000/x")
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if verdict.Status != domain.StatusRetracted {
		t.Fatalf("expected retracted to dominate correction, got %v", verdict.Status)
	}
}

func TestCheckErrorTaxonomy(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", server.Client(), nil)
	_, err := c.Check(context.Background(), "10.1000/x")
	if !errors.Is(err, source.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error must carry the status code: %v", err)
	}
}
