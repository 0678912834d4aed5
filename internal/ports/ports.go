package ports

import (
	"context"
	"time"

	"RefScreener/internal/domain"
)

// WorkProvider resolves work metadata, individually and in batches. Batched
// responses may omit, reorder or duplicate entries relative to the request.
type WorkProvider interface {
	WorkByDOI(ctx context.Context, doi string) (domain.Work, error)
	WorksByIDs(ctx context.Context, ids []string) ([]domain.Work, error)
}

// SourceAdapter is one provider's capability to judge a single DOI. Failures
// are classified into the sentinel taxonomy in internal/source; nothing else
// escapes the adapter boundary.
type SourceAdapter interface {
	Source() domain.Source
	Check(ctx context.Context, doi string) (domain.SourceVerdict, error)
}

// BulkIndex is the read side of the bulk retraction index after loading.
type BulkIndex interface {
	Contains(doi string) bool
}

// Screener classifies one focal DOI into a row result plus its references.
// Failures are captured as data, never returned.
type Screener interface {
	Screen(ctx context.Context, focalDOI string) domain.ScreenResult
}

// JobStore is the caller-owned row set. The engine's only contract is
// read-pending / write-result: a row with non-empty status is processed and
// must never be selected again.
type JobStore interface {
	ListPending(ctx context.Context, limit int) ([]domain.JobRow, error)
	Commit(ctx context.Context, doi string, result domain.RowResult) error
}

// Scheduler controls when batch runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
