package domain

// Work is an immutable metadata snapshot fetched from the work provider.
// It is never cached beyond the job step that fetched it.
type Work struct {
	ID                string
	DOI               string
	Title             string
	Year              int
	Retracted         bool
	ReferencedWorkIDs []string
}

// Reference is one classified citation of a focal work. Index preserves the
// citation-list position (1..N) regardless of provider batching order.
type Reference struct {
	Index    int
	ID       string
	DOI      string
	Title    string
	Year     int
	Status   Status
	Evidence string
}

// RowStatus is the terminal outcome of screening one focal DOI.
type RowStatus string

const (
	RowOK           RowStatus = "ok"
	RowRetracted    RowStatus = "retracted"
	RowNoReferences RowStatus = "no_references"
	RowError        RowStatus = "ERROR"
)

// RowResult is what the runner commits back to a job row.
type RowResult struct {
	Status        RowStatus
	Reason        string
	RefsEvaluated int
	RetractedDOIs []string
}

// JobRow mirrors one row of the caller-owned store. A row is pending iff
// Status is empty; a non-empty Status means already processed.
type JobRow struct {
	DOI           string
	Status        string
	Reason        string
	RefsEvaluated int
	RetractedDOIs []string
}

// Pending reports whether the row still needs processing.
func (r JobRow) Pending() bool {
	return r.Status == ""
}

// ScreenResult bundles everything the screening of one focal DOI produced.
type ScreenResult struct {
	Work       Work
	Result     RowResult
	References []Reference
}
