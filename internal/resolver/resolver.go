// Package resolver expands a focal work's reference list into individually
// classified entries via batched provider lookups.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"RefScreener/internal/backoff"
	"RefScreener/internal/doi"
	"RefScreener/internal/domain"
	"RefScreener/internal/merge"
	"RefScreener/internal/ports"
)

const defaultBatchSize = 40

// Options tune the resolver independently of any provider.
type Options struct {
	// BatchSize is the number of reference ids per metadata request.
	BatchSize int
	// ShortCircuitRetracted skips reference evaluation entirely when the
	// focal DOI itself sits in the bulk retraction index.
	ShortCircuitRetracted bool
	// Retry applies to every provider call.
	Retry backoff.Policy
}

// Resolver screens one focal DOI at a time.
type Resolver struct {
	works    ports.WorkProvider
	index    ports.BulkIndex
	adapters []ports.SourceAdapter
	opts     Options
	logger   *slog.Logger
}

var _ ports.Screener = (*Resolver)(nil)

// New wires the work provider, the bulk index and the source adapters.
func New(works ports.WorkProvider, index ports.BulkIndex, adapters []ports.SourceAdapter, opts Options, logger *slog.Logger) *Resolver {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Retry.MaxAttempts == 0 && opts.Retry.BaseDelay == 0 {
		opts.Retry = backoff.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		works:    works,
		index:    index,
		adapters: adapters,
		opts:     opts,
		logger:   logger,
	}
}

// Screen classifies the focal DOI and every reference it cites. Failures are
// captured as statuses and evidence, never returned: one bad reference or one
// bad focal work must not abort a batch.
func (r *Resolver) Screen(ctx context.Context, focalDOI string) domain.ScreenResult {
	focal := doi.Normalize(focalDOI)
	if focal == "" {
		return domain.ScreenResult{Result: domain.RowResult{
			Status: domain.RowError,
			Reason: fmt.Sprintf("not a DOI: %q", focalDOI),
		}}
	}

	if r.opts.ShortCircuitRetracted && r.index != nil && r.index.Contains(focal) {
		return domain.ScreenResult{Result: domain.RowResult{
			Status:        domain.RowRetracted,
			Reason:        "focal DOI listed in bulk retraction index; references not evaluated",
			RetractedDOIs: []string{focal},
		}}
	}

	var work domain.Work
	err := r.opts.Retry.Do(ctx, func() error {
		var ferr error
		work, ferr = r.works.WorkByDOI(ctx, focal)
		return ferr
	})
	if err != nil {
		return domain.ScreenResult{Result: domain.RowResult{
			Status: domain.RowError,
			Reason: fmt.Sprintf("fetch work %s: %v", focal, err),
		}}
	}

	if len(work.ReferencedWorkIDs) == 0 {
		result := domain.RowResult{Status: domain.RowNoReferences, Reason: "work lists no references"}
		if work.Retracted {
			result = domain.RowResult{
				Status:        domain.RowRetracted,
				Reason:        "work is self-reported retracted",
				RetractedDOIs: []string{focal},
			}
		}
		return domain.ScreenResult{Work: work, Result: result}
	}

	refs := r.resolveReferences(ctx, work.ReferencedWorkIDs)

	var retracted []string
	for _, ref := range refs {
		if ref.Status == domain.StatusRetracted && ref.DOI != "" {
			retracted = append(retracted, ref.DOI)
		}
	}

	result := domain.RowResult{
		Status:        domain.RowOK,
		Reason:        fmt.Sprintf("%d references evaluated, %d retracted", len(refs), len(retracted)),
		RefsEvaluated: len(refs),
		RetractedDOIs: retracted,
	}
	if work.Retracted {
		result.Status = domain.RowRetracted
		result.Reason = "work is self-reported retracted; " + result.Reason
		result.RetractedDOIs = append([]string{focal}, retracted...)
	}

	return domain.ScreenResult{Work: work, Result: result, References: refs}
}

// resolveReferences turns the ordered id list into exactly len(ids)
// References with contiguous indices 1..N. Batched responses may omit,
// reorder or duplicate entries; each item is re-associated to its requested
// id, and ids without an item are emitted as unknown rather than dropped. A
// whole-batch failure marks only that batch unknown; later batches still run.
func (r *Resolver) resolveReferences(ctx context.Context, ids []string) []domain.Reference {
	refs := make([]domain.Reference, len(ids))
	resolved := make([]*domain.Work, len(ids))

	for start := 0; start < len(ids); start += r.opts.BatchSize {
		end := start + r.opts.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		var works []domain.Work
		err := r.opts.Retry.Do(ctx, func() error {
			var berr error
			works, berr = r.works.WorksByIDs(ctx, chunk)
			return berr
		})
		if err != nil {
			r.logger.Warn("reference batch failed", "from", start+1, "to", end, "error", err)
			for j, id := range chunk {
				refs[start+j] = domain.Reference{
					Index:    start + j + 1,
					ID:       id,
					Status:   domain.StatusUnknown,
					Evidence: fmt.Sprintf("batch lookup failed: %v", err),
				}
			}
			continue
		}

		byID := make(map[string]domain.Work, len(works))
		for _, w := range works {
			if _, seen := byID[w.ID]; !seen {
				byID[w.ID] = w
			}
		}

		for j, id := range chunk {
			w, ok := byID[id]
			if !ok {
				refs[start+j] = domain.Reference{
					Index:    start + j + 1,
					ID:       id,
					Status:   domain.StatusUnknown,
					Evidence: "not returned by provider",
				}
				continue
			}
			item := w
			resolved[start+j] = &item
			refs[start+j] = domain.Reference{
				Index: start + j + 1,
				ID:    id,
				DOI:   doi.Normalize(w.DOI),
				Title: w.Title,
				Year:  w.Year,
			}
		}
	}

	for i := range refs {
		if resolved[i] == nil {
			continue
		}
		refs[i].Status, refs[i].Evidence = r.classify(ctx, refs[i].DOI, *resolved[i])
	}

	return refs
}

// classify merges the index membership, the self-reported flag and every
// adapter verdict for one reference. References without a DOI never reach a
// provider: they are terminal no_doi.
func (r *Resolver) classify(ctx context.Context, d string, work domain.Work) (domain.Status, string) {
	if d == "" {
		return domain.StatusNoDOI, merge.NoDOIEvidence
	}

	var verdicts []domain.SourceVerdict
	if r.index != nil && r.index.Contains(d) {
		verdicts = append(verdicts, domain.SourceVerdict{
			Source:   domain.SourceIndex,
			Status:   domain.StatusRetracted,
			Evidence: "listed in bulk retraction index",
		})
	}
	if work.Retracted {
		verdicts = append(verdicts, domain.SourceVerdict{
			Source:   domain.SourceSelfFlag,
			Status:   domain.StatusRetracted,
			Evidence: "metadata provider flags the work as retracted",
		})
	}

	// Adapters have no data dependency on each other; fan out and combine
	// only after all have settled. Results land in fixed slots so the merge
	// sees the same input under any completion order.
	fanned := make([]domain.SourceVerdict, len(r.adapters))
	g, gctx := errgroup.WithContext(ctx)
	for i, adapter := range r.adapters {
		i, adapter := i, adapter
		g.Go(func() error {
			var v domain.SourceVerdict
			err := r.opts.Retry.Do(gctx, func() error {
				var cerr error
				v, cerr = adapter.Check(gctx, d)
				return cerr
			})
			if err != nil {
				v = domain.SourceVerdict{
					Source:   adapter.Source(),
					Status:   domain.StatusUnknown,
					Evidence: err.Error(),
				}
			}
			fanned[i] = v
			return nil
		})
	}
	_ = g.Wait()
	verdicts = append(verdicts, fanned...)

	return merge.Merge(verdicts)
}
