// Package pubmed maps publication-type records onto statuses, keyed by an
// external record id resolved from the DOI.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"RefScreener/internal/domain"
	"RefScreener/internal/merge"
	"RefScreener/internal/ports"
	"RefScreener/internal/source"
)

// Record ids never change once assigned, so resolved ids are memoized and
// repeat DOIs across rows skip one round trip.
const (
	cacheTTL     = 12 * time.Hour
	cacheCleanup = time.Hour
)

// Client resolves a DOI to a record id, then reads its publication types.
type Client struct {
	baseURL string
	client  *http.Client
	ids     *gocache.Cache
	logger  *slog.Logger
}

var _ ports.SourceAdapter = (*Client)(nil)

// NewClient wires an HTTP client against an E-utilities-compatible base URL.
func NewClient(baseURL string, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		ids:     gocache.New(cacheTTL, cacheCleanup),
		logger:  logger,
	}
}

// Source identifies this adapter in the fixed merge order.
func (c *Client) Source() domain.Source {
	return domain.SourceRecordType
}

// Check resolves the record id and classifies its publication types. A DOI
// with no record is not a signal: the verdict is ok with no evidence.
func (c *Client) Check(ctx context.Context, doi string) (domain.SourceVerdict, error) {
	id, err := c.resolveRecordID(ctx, doi)
	if err != nil {
		return domain.SourceVerdict{}, err
	}
	if id == "" {
		return domain.SourceVerdict{Source: c.Source(), Status: domain.StatusOK}, nil
	}

	types, err := c.publicationTypes(ctx, id)
	if err != nil {
		return domain.SourceVerdict{}, err
	}

	status, matched := classify(types)
	verdict := domain.SourceVerdict{Source: c.Source(), Status: status}
	if len(matched) > 0 {
		verdict.Evidence = "publication types: " + strings.Join(matched, ", ")
	}
	return verdict, nil
}

func (c *Client) resolveRecordID(ctx context.Context, doi string) (string, error) {
	if cached, ok := c.ids.Get(doi); ok {
		return cached.(string), nil
	}

	values := url.Values{}
	values.Set("db", "pubmed")
	values.Set("term", doi+"[doi]")
	values.Set("retmode", "json")
	endpoint := fmt.Sprintf("%s/esearch.fcgi?%s", c.baseURL, values.Encode())

	var payload struct {
		Result struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return "", fmt.Errorf("resolve record id: %w", err)
	}

	id := ""
	if len(payload.Result.IDList) > 0 {
		id = payload.Result.IDList[0]
	}
	c.ids.Set(doi, id, gocache.DefaultExpiration)
	return id, nil
}

func (c *Client) publicationTypes(ctx context.Context, id string) ([]string, error) {
	values := url.Values{}
	values.Set("db", "pubmed")
	values.Set("id", id)
	values.Set("retmode", "json")
	endpoint := fmt.Sprintf("%s/esummary.fcgi?%s", c.baseURL, values.Encode())

	// The result object mixes a "uids" list with per-id entries, so only the
	// requested id's entry is decoded.
	var payload struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("record %s summary: %w", id, err)
	}

	raw, ok := payload.Result[id]
	if !ok {
		return nil, fmt.Errorf("record %s missing from summary: %w", id, source.ErrMalformed)
	}

	var entry struct {
		PubType []string `json:"pubtype"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("record %s entry: %w", id, source.ErrMalformed)
	}
	return entry.PubType, nil
}

func (c *Client) get(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "RefScreener/1.0")

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

func classify(types []string) (domain.Status, []string) {
	status := domain.StatusOK
	var matched []string
	for _, s := range types {
		lower := strings.ToLower(s)
		var mapped domain.Status
		switch {
		case strings.Contains(lower, "retracted publication"),
			strings.Contains(lower, "retraction of publication"):
			mapped = domain.StatusRetracted
		case strings.Contains(lower, "expression of concern"):
			mapped = domain.StatusExpressionOfConcern
		case strings.Contains(lower, "erratum"),
			strings.Contains(lower, "corrigendum"),
			strings.Contains(lower, "correction"):
			mapped = domain.StatusCorrected
		default:
			continue
		}
		matched = append(matched, s)
		status = merge.Stronger(status, mapped)
	}
	return status, matched
}
