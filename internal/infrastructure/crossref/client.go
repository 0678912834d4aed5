// Package crossref reads retraction and correction signals from a registrar
// update feed.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"RefScreener/internal/domain"
	"RefScreener/internal/merge"
	"RefScreener/internal/ports"
	"RefScreener/internal/source"
)

// Client checks one DOI against the registrar's update and relation records.
type Client struct {
	baseURL string
	mailto  string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.SourceAdapter = (*Client)(nil)

// NewClient wires an HTTP client against a Crossref-compatible base URL.
func NewClient(baseURL, mailto string, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		mailto:  mailto,
		client:  client,
		logger:  logger,
	}
}

// Source identifies this adapter in the fixed merge order.
func (c *Client) Source() domain.Source {
	return domain.SourceRegistrar
}

type message struct {
	UpdatedBy []updateRecord             `json:"updated-by"`
	UpdateTo  []updateRecord             `json:"update-to"`
	Relation  map[string]json.RawMessage `json:"relation"`
}

type updateRecord struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

// Check fetches the work record and maps its update signals to a status.
// Update types are free text; matching is by substring.
func (c *Client) Check(ctx context.Context, doi string) (domain.SourceVerdict, error) {
	endpoint := fmt.Sprintf("%s/works/%s", c.baseURL, url.PathEscape(doi))
	if c.mailto != "" {
		endpoint += "?mailto=" + url.QueryEscape(c.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.SourceVerdict{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "RefScreener/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.SourceVerdict{}, fmt.Errorf("%v: %w", err, source.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.SourceVerdict{}, source.FromHTTPStatus(resp.StatusCode)
	}

	var payload struct {
		Message message `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.SourceVerdict{}, fmt.Errorf("decode response: %w", source.ErrMalformed)
	}

	status, matched := classify(signals(payload.Message))
	verdict := domain.SourceVerdict{Source: c.Source(), Status: status}
	if len(matched) > 0 {
		verdict.Evidence = "update signals: " + strings.Join(matched, ", ")
	}
	return verdict, nil
}

// signals flattens update records and relation keys into matchable strings.
func signals(m message) []string {
	var out []string
	for _, u := range m.UpdatedBy {
		if u.Type != "" {
			out = append(out, u.Type)
		} else if u.Label != "" {
			out = append(out, u.Label)
		}
	}
	for _, u := range m.UpdateTo {
		if u.Type != "" {
			out = append(out, u.Type)
		} else if u.Label != "" {
			out = append(out, u.Label)
		}
	}
	for key := range m.Relation {
		out = append(out, key)
	}
	return out
}

func classify(raw []string) (domain.Status, []string) {
	status := domain.StatusOK
	var matched []string
	for _, s := range raw {
		lower := strings.ToLower(s)
		var mapped domain.Status
		switch {
		case strings.Contains(lower, "retract"):
			mapped = domain.StatusRetracted
		case strings.Contains(lower, "expression"):
			mapped = domain.StatusExpressionOfConcern
		case strings.Contains(lower, "withdraw"):
			mapped = domain.StatusWithdrawn
		case strings.Contains(lower, "correction"), strings.Contains(lower, "erratum"):
			mapped = domain.StatusCorrected
		default:
			continue
		}
		matched = append(matched, s)
		status = merge.Stronger(status, mapped)
	}
	return status, matched
}
