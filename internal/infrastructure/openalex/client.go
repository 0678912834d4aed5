// Package openalex implements the work metadata provider against an
// OpenAlex-compatible API.
package openalex

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
	"RefScreener/internal/ports"
	"RefScreener/internal/source"
)

const selectFields = "id,doi,title,publication_year,is_retracted,referenced_works"

// Client fetches work snapshots, individually and in batches, limited to the
// fields classification needs.
type Client struct {
	baseURL string
	mailto  string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.WorkProvider = (*Client)(nil)

// NewClient wires an HTTP client; mailto joins the polite pool when set.
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

type workPayload struct {
	ID              string   `json:"id"`
	DOI             string   `json:"doi"`
	Title           string   `json:"title"`
	Year            int      `json:"publication_year"`
	IsRetracted     bool     `json:"is_retracted"`
	ReferencedWorks []string `json:"referenced_works"`
}

func (p workPayload) toDomain() domain.Work {
	return domain.Work{
		ID:                p.ID,
		DOI:               p.DOI,
		Title:             p.Title,
		Year:              p.Year,
		Retracted:         p.IsRetracted,
		ReferencedWorkIDs: p.ReferencedWorks,
	}
}

// WorkByDOI fetches the focal work snapshot.
func (c *Client) WorkByDOI(ctx context.Context, doi string) (domain.Work, error) {
	endpoint := fmt.Sprintf("%s/works/doi:%s?%s", c.baseURL, url.PathEscape(doi), c.query(nil))

	var payload workPayload
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return domain.Work{}, fmt.Errorf("work %s: %w", doi, err)
	}
	return payload.toDomain(), nil
}

// WorksByIDs fetches metadata for one batch of reference ids. The response
// may omit, reorder or duplicate entries; re-association is the caller's job.
func (c *Client) WorksByIDs(ctx context.Context, ids []string) ([]domain.Work, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	extra := url.Values{}
	extra.Set("filter", "openalex_id:"+strings.Join(ids, "|"))
	extra.Set("per-page", fmt.Sprintf("%d", len(ids)))
	endpoint := fmt.Sprintf("%s/works?%s", c.baseURL, c.query(extra))

	var payload struct {
		Results []workPayload `json:"results"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("works batch of %d: %w", len(ids), err)
	}

	works := make([]domain.Work, 0, len(payload.Results))
	for _, item := range payload.Results {
		works = append(works, item.toDomain())
	}
	return works, nil
}

func (c *Client) query(extra url.Values) string {
	values := url.Values{}
	if extra != nil {
		values = extra
	}
	values.Set("select", selectFields)
	if c.mailto != "" {
		values.Set("mailto", c.mailto)
	}
	return values.Encode()
}

func (c *Client) get(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "RefScreener/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%v: %w", err, source.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return source.FromHTTPStatus(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", source.ErrMalformed)
	}
	return nil
}
