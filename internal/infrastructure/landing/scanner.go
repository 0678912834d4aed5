// Package landing scans the publisher landing page behind a DOI for
// retraction banners. Publishers conventionally prefix titles of retracted
// articles, so this is a useful supplementary signal when the structured
// feeds lag.
package landing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"RefScreener/internal/domain"
	"RefScreener/internal/ports"
	"RefScreener/internal/source"
)

const maxBodyBytes = 2 << 20

// Scanner resolves the DOI through the resolver host and inspects the page
// title and headings.
type Scanner struct {
	resolverURL string
	client      *http.Client
	logger      *slog.Logger
}

var _ ports.SourceAdapter = (*Scanner)(nil)

// NewScanner wires an HTTP client; the client must follow redirects, since
// the resolver always redirects to the publisher.
func NewScanner(resolverURL string, client *http.Client, logger *slog.Logger) *Scanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		resolverURL: strings.TrimSuffix(resolverURL, "/"),
		client:      client,
		logger:      logger,
	}
}

// Source identifies this adapter in the fixed merge order. It is the weakest
// source and merges last.
func (s *Scanner) Source() domain.Source {
	return domain.SourceLanding
}

// Check fetches the landing page and matches banner phrases in the title and
// top-level headings.
func (s *Scanner) Check(ctx context.Context, doi string) (domain.SourceVerdict, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.resolverURL+"/"+doi, nil)
	if err != nil {
		return domain.SourceVerdict{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "RefScreener/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.SourceVerdict{}, fmt.Errorf("%v: %w", err, source.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.SourceVerdict{}, source.FromHTTPStatus(resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.SourceVerdict{}, fmt.Errorf("parse page: %w", source.ErrMalformed)
	}

	status, banner := matchBanner(pageHeadline(doc))
	verdict := domain.SourceVerdict{Source: s.Source(), Status: status}
	if banner != "" {
		verdict.Evidence = "page banner: " + banner
	}
	return verdict, nil
}

func pageHeadline(doc *goquery.Document) string {
	parts := []string{strings.TrimSpace(doc.Find("title").First().Text())}
	doc.Find("h1, h2").Each(func(i int, sel *goquery.Selection) {
		parts = append(parts, strings.TrimSpace(sel.Text()))
	})
	return strings.Join(parts, " | ")
}

func matchBanner(headline string) (domain.Status, string) {
	upper := strings.ToUpper(headline)
	switch {
	case strings.Contains(upper, "RETRACTED ARTICLE"),
		strings.Contains(upper, "RETRACTED:"),
		strings.Contains(upper, "RETRACTION:"):
		return domain.StatusRetracted, "RETRACTED"
	case strings.Contains(upper, "EXPRESSION OF CONCERN"):
		return domain.StatusExpressionOfConcern, "EXPRESSION OF CONCERN"
	case strings.Contains(upper, "WITHDRAWN"):
		return domain.StatusWithdrawn, "WITHDRAWN"
	}
	return domain.StatusOK, ""
}
