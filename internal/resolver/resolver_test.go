package resolver

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"RefScreener/internal/backoff"
	"RefScreener/internal/domain"
	"RefScreener/internal/ports"
	"RefScreener/internal/report"
	"RefScreener/internal/source"
)

type fakeProvider struct {
	work       domain.Work
	workErr    error
	workCalls  int
	batchCalls int
	batch      func(call int, ids []string) ([]domain.Work, error)
}

func (f *fakeProvider) WorkByDOI(ctx context.Context, doi string) (domain.Work, error) {
	f.workCalls++
	if f.workErr != nil {
		return domain.Work{}, f.workErr
	}
	return f.work, nil
}

func (f *fakeProvider) WorksByIDs(ctx context.Context, ids []string) ([]domain.Work, error) {
	f.batchCalls++
	if f.batch == nil {
		return nil, nil
	}
	return f.batch(f.batchCalls, ids)
}

type fakeIndex struct{ dois map[string]bool }

func (f *fakeIndex) Contains(doi string) bool { return f.dois[doi] }

type fakeAdapter struct {
	src     domain.Source
	verdict domain.SourceVerdict
	err     error
	calls   int
}

func (f *fakeAdapter) Source() domain.Source { return f.src }

func (f *fakeAdapter) Check(ctx context.Context, doi string) (domain.SourceVerdict, error) {
	f.calls++
	if f.err != nil {
		return domain.SourceVerdict{}, f.err
	}
	v := f.verdict
	v.Source = f.src
	return v, nil
}

func adapterSlice(adapters ...ports.SourceAdapter) []ports.SourceAdapter {
	return adapters
}

func fastRetry() backoff.Policy {
	return backoff.Policy{BaseDelay: time.Millisecond, MaxAttempts: 2, Multiplier: 2.0}
}

func refIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("W%d", i+1)
	}
	return ids
}

func refWork(id string) domain.Work {
	return domain.Work{ID: id, DOI: "10.1000/" + strings.ToLower(id), Title: "Work " + id, Year: 2020}
}

func TestScreenShortCircuitOnIndexHit(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	idx := &fakeIndex{dois: map[string]bool{"10.1000/focal": true}}

	r := New(provider, idx, nil, Options{ShortCircuitRetracted: true, Retry: fastRetry()}, nil)
	out := r.Screen(context.Background(), "https://doi.org/10.1000/FOCAL")

	if out.Result.Status != domain.RowRetracted {
		t.Fatalf("expected retracted, got %s", out.Result.Status)
	}
	if out.Result.RefsEvaluated != 0 {
		t.Fatalf("short circuit must evaluate zero references, got %d", out.Result.RefsEvaluated)
	}
	if !strings.Contains(out.Result.Reason, "references not evaluated") {
		t.Fatalf("reason must state the short circuit: %s", out.Result.Reason)
	}
	if provider.workCalls != 0 {
		t.Fatalf("provider must not be called on short circuit")
	}
}

func TestScreenShortCircuitPolicyOff(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{work: domain.Work{ID: "W0", DOI: "10.1000/focal"}}
	idx := &fakeIndex{dois: map[string]bool{"10.1000/focal": true}}

	r := New(provider, idx, nil, Options{ShortCircuitRetracted: false, Retry: fastRetry()}, nil)
	out := r.Screen(context.Background(), "10.1000/focal")

	if provider.workCalls != 1 {
		t.Fatalf("policy off must still fetch the work")
	}
	if out.Result.Status != domain.RowNoReferences {
		t.Fatalf("expected no_references, got %s", out.Result.Status)
	}
}

func TestScreenNoReferences(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{work: domain.Work{ID: "W0", DOI: "10.1000/focal"}}
	r := New(provider, &fakeIndex{}, nil, Options{Retry: fastRetry()}, nil)

	out := r.Screen(context.Background(), "10.1000/focal")
	if out.Result.Status != domain.RowNoReferences {
		t.Fatalf("expected no_references, got %s", out.Result.Status)
	}

	// Self-reported retraction dominates the empty reference list.
	provider.work.Retracted = true
	out = r.Screen(context.Background(), "10.1000/focal")
	if out.Result.Status != domain.RowRetracted {
		t.Fatalf("self flag must dominate, got %s", out.Result.Status)
	}
}

func TestScreenUnparseableDOI(t *testing.T) {
	t.Parallel()

	r := New(&fakeProvider{}, &fakeIndex{}, nil, Options{Retry: fastRetry()}, nil)
	out := r.Screen(context.Background(), "not a doi")
	if out.Result.Status != domain.RowError {
		t.Fatalf("expected ERROR, got %s", out.Result.Status)
	}
}

func TestScreenRateLimitedWorkFetch(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{workErr: fmt.Errorf("provider returned 429: %w", source.ErrRateLimited)}
	r := New(provider, &fakeIndex{}, nil, Options{Retry: fastRetry()}, nil)

	out := r.Screen(context.Background(), "10.1000/focal")
	if out.Result.Status != domain.RowError {
		t.Fatalf("expected ERROR, got %s", out.Result.Status)
	}
	if !strings.Contains(out.Result.Reason, "429") {
		t.Fatalf("reason must carry the last failure: %s", out.Result.Reason)
	}
	if provider.workCalls != 3 {
		t.Fatalf("expected 1 initial + 2 retries = 3 calls, got %d", provider.workCalls)
	}
}

func TestResolveReferencesBatchingAndFaultIsolation(t *testing.T) {
	t.Parallel()

	const total, batchSize = 97, 40

	provider := &fakeProvider{
		work: domain.Work{ID: "W0", DOI: "10.1000/focal", ReferencedWorkIDs: refIDs(total)},
		batch: func(call int, ids []string) ([]domain.Work, error) {
			if call == 2 {
				return nil, fmt.Errorf("gateway timeout: %w", source.ErrMalformed)
			}
			works := make([]domain.Work, 0, len(ids))
			// Return entries in reverse order to force re-association.
			for i := len(ids) - 1; i >= 0; i-- {
				works = append(works, refWork(ids[i]))
			}
			return works, nil
		},
	}

	r := New(provider, &fakeIndex{}, nil, Options{BatchSize: batchSize, Retry: fastRetry()}, nil)
	out := r.Screen(context.Background(), "10.1000/focal")

	if len(out.References) != total {
		t.Fatalf("expected %d references, got %d", total, len(out.References))
	}
	if provider.batchCalls != 3 {
		t.Fatalf("expected 3 batch calls for 97/40, got %d", provider.batchCalls)
	}

	seen := map[int]bool{}
	for i, ref := range out.References {
		if ref.Index != i+1 {
			t.Fatalf("index gap or disorder at position %d: got %d", i, ref.Index)
		}
		if seen[ref.Index] {
			t.Fatalf("duplicate index %d", ref.Index)
		}
		seen[ref.Index] = true
	}

	// The failed batch covers indices 41..80.
	for i := 40; i < 80; i++ {
		if out.References[i].Status != domain.StatusUnknown {
			t.Fatalf("reference %d should be unknown, got %v", i+1, out.References[i].Status)
		}
		if !strings.Contains(out.References[i].Evidence, "batch lookup failed") {
			t.Fatalf("reference %d missing failure evidence: %s", i+1, out.References[i].Evidence)
		}
	}
	if out.References[0].Status != domain.StatusOK {
		t.Fatalf("reference 1 should be ok, got %v", out.References[0].Status)
	}
	if out.References[96].Status != domain.StatusOK {
		t.Fatalf("reference 97 should be ok, got %v", out.References[96].Status)
	}
	if out.Result.RefsEvaluated != total {
		t.Fatalf("refsEvaluated = %d, want %d", out.Result.RefsEvaluated, total)
	}
}

func TestResolveReferencesOmittedAndDuplicated(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		work: domain.Work{ID: "W0", DOI: "10.1000/focal", ReferencedWorkIDs: []string{"W1", "W2", "W3"}},
		batch: func(call int, ids []string) ([]domain.Work, error) {
			// W2 omitted, W1 duplicated.
			return []domain.Work{refWork("W1"), refWork("W1"), refWork("W3")}, nil
		},
	}

	r := New(provider, &fakeIndex{}, nil, Options{Retry: fastRetry()}, nil)
	out := r.Screen(context.Background(), "10.1000/focal")

	if len(out.References) != 3 {
		t.Fatalf("expected 3 references, got %d", len(out.References))
	}
	missing := out.References[1]
	if missing.Status != domain.StatusUnknown || missing.ID != "W2" {
		t.Fatalf("omitted id must surface as unknown with the id: %+v", missing)
	}
	if !strings.Contains(missing.Evidence, "not returned by provider") {
		t.Fatalf("missing evidence note: %s", missing.Evidence)
	}
}

func TestClassifyNoDOISkipsAdapters(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{src: domain.SourceRegistrar}
	provider := &fakeProvider{
		work: domain.Work{ID: "W0", DOI: "10.1000/focal", ReferencedWorkIDs: []string{"W1"}},
		batch: func(call int, ids []string) ([]domain.Work, error) {
			return []domain.Work{{ID: "W1", Title: "No DOI work"}}, nil
		},
	}

	r := New(provider, &fakeIndex{}, adapterSlice(adapter), Options{Retry: fastRetry()}, nil)
	out := r.Screen(context.Background(), "10.1000/focal")

	if out.References[0].Status != domain.StatusNoDOI {
		t.Fatalf("expected no_doi, got %v", out.References[0].Status)
	}
	if adapter.calls != 0 {
		t.Fatalf("adapters must not be queried for DOI-less references")
	}
}

func TestClassifyMergesIndexSelfAndAdapters(t *testing.T) {
	t.Parallel()

	registrar := &fakeAdapter{
		src:     domain.SourceRegistrar,
		verdict: domain.SourceVerdict{Status: domain.StatusCorrected, Evidence: "correction notice"},
	}
	recordType := &fakeAdapter{
		src: domain.SourceRecordType,
		err: fmt.Errorf("service down: %w", source.ErrUnavailable),
	}

	provider := &fakeProvider{
		work: domain.Work{ID: "W0", DOI: "10.1000/focal", ReferencedWorkIDs: []string{"W1"}},
		batch: func(call int, ids []string) ([]domain.Work, error) {
			w := refWork("W1")
			w.Retracted = true
			return []domain.Work{w}, nil
		},
	}

	r := New(provider, &fakeIndex{dois: map[string]bool{"10.1000/w1": true}},
		adapterSlice(registrar, recordType), Options{Retry: fastRetry()}, nil)
	out := r.Screen(context.Background(), "10.1000/focal")

	ref := out.References[0]
	if ref.Status != domain.StatusRetracted {
		t.Fatalf("expected retracted, got %v", ref.Status)
	}

	// Evidence must follow fixed source order: index, self-flag, registrar,
	// record-type.
	wantOrder := []string{"retraction-index", "self-reported", "registrar-feed", "record-type-feed"}
	last := -1
	for _, name := range wantOrder {
		pos := strings.Index(ref.Evidence, name)
		if pos < 0 {
			t.Fatalf("evidence missing %s: %s", name, ref.Evidence)
		}
		if pos < last {
			t.Fatalf("evidence out of fixed order: %s", ref.Evidence)
		}
		last = pos
	}

	if len(out.Result.RetractedDOIs) != 1 || out.Result.RetractedDOIs[0] != "10.1000/w1" {
		t.Fatalf("retracted DOI list wrong: %v", out.Result.RetractedDOIs)
	}
}

// A work citing three references: one clean, one listed in the bulk index,
// one without a DOI. The counts and the exported rows follow end to end.
func TestScreenThreeReferenceScenario(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		work: domain.Work{ID: "W0", DOI: "10.1000/focal", ReferencedWorkIDs: []string{"W1", "W2", "W3"}},
		batch: func(call int, ids []string) ([]domain.Work, error) {
			return []domain.Work{
				refWork("W1"),
				refWork("W2"),
				{ID: "W3", Title: "Untracked thesis"},
			}, nil
		},
	}
	idx := &fakeIndex{dois: map[string]bool{"10.1000/w2": true}}

	r := New(provider, idx, nil, Options{ShortCircuitRetracted: true, Retry: fastRetry()}, nil)
	out := r.Screen(context.Background(), "10.1000/focal")

	if out.Result.Status != domain.RowOK {
		t.Fatalf("expected ok row, got %s (%s)", out.Result.Status, out.Result.Reason)
	}
	if len(out.Result.RetractedDOIs) != 1 || out.Result.RetractedDOIs[0] != "10.1000/w2" {
		t.Fatalf("retracted DOI list wrong: %v", out.Result.RetractedDOIs)
	}

	summary := report.Aggregate(out.References)
	if summary.Total != 3 {
		t.Fatalf("total = %d, want 3", summary.Total)
	}
	for status, want := range map[domain.Status]int{
		domain.StatusRetracted: 1,
		domain.StatusNoDOI:     1,
		domain.StatusOK:        1,
	} {
		if summary.Counts[status] != want {
			t.Fatalf("count[%s] = %d, want %d", status, summary.Counts[status], want)
		}
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, out.References); err != nil {
		t.Fatalf("WriteCSV error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 data rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "retracted") || !strings.Contains(lines[1], "10.1000/w2") {
		t.Fatalf("first data row must be the retracted reference: %s", lines[1])
	}
	if !strings.Contains(lines[2], "no_doi") {
		t.Fatalf("second data row must be the DOI-less reference: %s", lines[2])
	}
}
