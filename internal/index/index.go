// Package index loads a bulk retraction dataset into a lookup set.
package index

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"RefScreener/internal/doi"
)

// State tracks the load lifecycle. It exists for observability, not control
// flow: lookups against a non-ready index simply miss.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "idle"
}

const maxBodyBytes = 64 << 20

// Index is an explicitly constructed, injected cache of known-retracted DOIs.
// Load runs at most once per job lifetime; afterwards the set is read-only.
type Index struct {
	url    string
	client *http.Client
	logger *slog.Logger

	mu     sync.RWMutex
	state  State
	reason string
	dois   map[string]struct{}
}

// New wires an HTTP client; a nil client gets a sane default timeout.
func New(url string, client *http.Client, logger *slog.Logger) *Index {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		url:    url,
		client: client,
		logger: logger,
		dois:   map[string]struct{}{},
	}
}

// Load fetches and parses the dataset. Fail-soft: any transport or parse
// failure leaves an empty set and a failed state; absence of the index
// degrades accuracy but never aborts a job. Repeated calls are no-ops.
func (x *Index) Load(ctx context.Context) {
	x.mu.Lock()
	if x.state != StateIdle {
		x.mu.Unlock()
		return
	}
	x.state = StateLoading
	x.mu.Unlock()

	dois, err := x.fetch(ctx)

	x.mu.Lock()
	defer x.mu.Unlock()
	if err != nil {
		x.state = StateFailed
		x.reason = err.Error()
		x.logger.Warn("retraction index unavailable, continuing without it", "error", err)
		return
	}
	x.dois = dois
	x.state = StateReady
	x.logger.Info("retraction index loaded", "dois", len(dois))
}

// State returns the lifecycle state and, when failed, the reason.
func (x *Index) State() (State, string) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.state, x.reason
}

// Contains reports membership of a normalized DOI. Always false before the
// index is ready.
func (x *Index) Contains(d string) bool {
	norm := doi.Normalize(d)
	if norm == "" {
		return false
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.dois[norm]
	return ok
}

func (x *Index) fetch(ctx context.Context) (map[string]struct{}, error) {
	if x.url == "" {
		return nil, fmt.Errorf("no index url configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, x.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "RefScreener/1.0")

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	return Parse(string(body))
}

// Parse accepts either a delimited table (DOI column located by a header
// token containing "doi", case-insensitively) or a flat one-DOI-per-line
// list. Quoted fields with embedded commas and doubled-quote escapes parse
// per RFC 4180; a naive split on commas would corrupt them.
func Parse(text string) (map[string]struct{}, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return map[string]struct{}{}, nil
	}

	firstLine := trimmed
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		firstLine = trimmed[:i]
	}

	if strings.Contains(firstLine, ",") {
		return parseDelimited(trimmed)
	}
	return parseFlat(trimmed), nil
}

func parseDelimited(text string) (map[string]struct{}, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.Contains(strings.ToLower(name), "doi") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no DOI column in header %v", header)
	}

	dois := map[string]struct{}{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if col >= len(record) {
			continue
		}
		if norm := doi.Normalize(record[col]); norm != "" {
			dois[norm] = struct{}{}
		}
	}

	return dois, nil
}

func parseFlat(text string) map[string]struct{} {
	dois := map[string]struct{}{}
	for _, line := range strings.Split(text, "\n") {
		if norm := doi.Normalize(line); norm != "" {
			dois[norm] = struct{}{}
		}
	}
	return dois
}
