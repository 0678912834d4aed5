// Package merge combines per-source verdicts into one severity-ranked status
// with deterministic evidence text.
package merge

import (
	"sort"
	"strings"

	"RefScreener/internal/domain"
)

// NoDOIEvidence is the fixed note attached to references that carry no DOI.
// Such references bypass the merger entirely: providers require a DOI.
const NoDOIEvidence = "reference has no DOI; providers not queried"

// tieRank breaks severity ties deterministically:
// retracted > expression_of_concern > withdrawn > corrected.
func tieRank(s domain.Status) int {
	switch s {
	case domain.StatusRetracted:
		return 4
	case domain.StatusExpressionOfConcern:
		return 3
	case domain.StatusWithdrawn:
		return 2
	case domain.StatusCorrected:
		return 1
	case domain.StatusOK, domain.StatusUnknown, domain.StatusNoDOI:
		return 0
	}
	return 0
}

// Stronger picks the status that wins a pairwise merge. Severity decides;
// ties fall to tieRank; a full tie keeps the first argument, which is the
// earlier source in the fixed order. Adapters reuse it to fold multiple
// signals from one provider into a single verdict.
func Stronger(a, b domain.Status) domain.Status {
	if b.Severity() > a.Severity() {
		return b
	}
	if b.Severity() == a.Severity() && tieRank(b) > tieRank(a) {
		return b
	}
	return a
}

// Merge folds verdicts into a single status and evidence string. Verdicts are
// ordered by source before merging, so the result is identical under any
// concurrency schedule of the adapters. The merged severity is never lower
// than the maximum input severity.
func Merge(verdicts []domain.SourceVerdict) (domain.Status, string) {
	ordered := make([]domain.SourceVerdict, len(verdicts))
	copy(ordered, verdicts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Source < ordered[j].Source
	})

	status := domain.StatusOK
	var notes []string
	for _, v := range ordered {
		status = Stronger(status, v.Status)
		if v.Status != domain.StatusOK && v.Evidence != "" {
			notes = append(notes, v.Source.String()+": "+v.Evidence)
		}
	}

	return status, strings.Join(notes, "; ")
}
