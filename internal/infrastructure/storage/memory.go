package storage

import (
	"context"
	"strings"
	"sync"

	"RefScreener/internal/domain"
	"RefScreener/internal/ports"
)

// MemoryStore is an in-process JobStore for one-off screenings and tests.
type MemoryStore struct {
	mu    sync.Mutex
	order []string
	rows  map[string]domain.JobRow
}

var _ ports.JobStore = (*MemoryStore)(nil)

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[string]domain.JobRow{}}
}

// Seed adds pending rows, preserving insertion order and skipping duplicates.
// Non-DOI values are kept verbatim and surface as error rows when screened.
func (s *MemoryStore) Seed(dois []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, raw := range dois {
		norm := rowKey(raw)
		if norm == "" {
			continue
		}
		if _, exists := s.rows[norm]; exists {
			continue
		}
		s.rows[norm] = domain.JobRow{DOI: norm}
		s.order = append(s.order, norm)
		added++
	}
	return added
}

// ListPending returns up to limit rows with empty status, in row order.
func (s *MemoryStore) ListPending(ctx context.Context, limit int) ([]domain.JobRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.JobRow
	for _, d := range s.order {
		if len(out) >= limit {
			break
		}
		row := s.rows[d]
		if row.Pending() {
			out = append(out, row)
		}
	}
	return out, nil
}

// Commit writes the result back to the row.
func (s *MemoryStore) Commit(ctx context.Context, d string, result domain.RowResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := rowKey(d)
	row, exists := s.rows[norm]
	if !exists {
		row = domain.JobRow{DOI: norm}
		s.order = append(s.order, norm)
	}
	row.Status = string(result.Status)
	row.Reason = result.Reason
	row.RefsEvaluated = result.RefsEvaluated
	row.RetractedDOIs = append([]string(nil), result.RetractedDOIs...)
	s.rows[norm] = row
	return nil
}

// Rows returns every row in row order.
func (s *MemoryStore) Rows() []domain.JobRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.JobRow, 0, len(s.order))
	for _, d := range s.order {
		out = append(out, s.rows[d])
	}
	return out
}

// String summarizes the store state for logs.
func (s *MemoryStore) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for _, d := range s.order {
		row := s.rows[d]
		b.WriteString(d)
		b.WriteString("=")
		b.WriteString(row.Status)
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String())
}
