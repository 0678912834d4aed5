// Package source defines the adapter error taxonomy and a named registry of
// source adapters.
package source

import (
	"errors"
	"fmt"
	"net/http"

	"RefScreener/internal/ports"
)

// Sentinel failures an adapter or provider may classify its errors into.
// Anything else crossing the boundary is a bug.
var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
	ErrUnavailable = errors.New("unavailable")
	ErrMalformed   = errors.New("malformed response")
)

// Retryable reports whether an error is worth retrying. NotFound and
// Malformed are terminal: retrying will not conjure a record or fix a shape
// mismatch.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformed) {
		return false
	}
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}

// FromHTTPStatus classifies a non-2xx response code into the taxonomy. The
// code stays in the message so exhausted retries report it.
func FromHTTPStatus(code int) error {
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("http %d: %w", code, ErrNotFound)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("http %d: %w", code, ErrRateLimited)
	default:
		return fmt.Errorf("http %d: %w", code, ErrUnavailable)
	}
}

// Registry keeps a mapping from source names to adapter implementations.
type Registry struct {
	adapters map[string]ports.SourceAdapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: map[string]ports.SourceAdapter{}}
}

// Register adds or replaces an adapter implementation.
func (r *Registry) Register(adapter ports.SourceAdapter) {
	if r.adapters == nil {
		r.adapters = map[string]ports.SourceAdapter{}
	}
	r.adapters[adapter.Source().String()] = adapter
}

// Resolve returns an adapter by source name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.SourceAdapter, error) {
	if adapter, ok := r.adapters[name]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("source adapter %s is not registered", name)
}

// All returns every registered adapter in fixed source order.
func (r *Registry) All() []ports.SourceAdapter {
	out := make([]ports.SourceAdapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Source() < out[j-1].Source(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
