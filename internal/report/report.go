// Package report aggregates classified references and exports them as
// deterministic tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"RefScreener/internal/doi"
	"RefScreener/internal/domain"
)

// Header is the export table header. Field order is part of the contract.
var Header = []string{"index", "status", "year", "title", "doi_or_id", "citation", "notes"}

// Summary counts references by status. Recomputed per analysis, never
// persisted on its own.
type Summary struct {
	Total  int
	Counts map[domain.Status]int
}

// Aggregate tallies the reference list.
func Aggregate(refs []domain.Reference) Summary {
	s := Summary{Total: len(refs), Counts: map[domain.Status]int{}}
	for _, ref := range refs {
		s.Counts[ref.Status]++
	}
	return s
}

// Interesting returns every non-ok reference sorted by descending severity,
// ties broken by ascending original index. This exact order is load-bearing
// for presentation and export.
func Interesting(refs []domain.Reference) []domain.Reference {
	var out []domain.Reference
	for _, ref := range refs {
		if ref.Status != domain.StatusOK {
			out = append(out, ref)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Status.Severity() != out[j].Status.Severity() {
			return out[i].Status.Severity() > out[j].Status.Severity()
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// WriteCSV emits the header plus one row per interesting reference, with
// RFC 4180 quoting.
func WriteCSV(w io.Writer, refs []domain.Reference) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, ref := range Interesting(refs) {
		if err := writer.Write(record(ref)); err != nil {
			return fmt.Errorf("write reference %d: %w", ref.Index, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FileName derives a stable export file name from the focal DOI.
func FileName(focalDOI, ext string) string {
	return doi.SafeFileName(focalDOI) + "." + ext
}

func record(ref domain.Reference) []string {
	return []string{
		strconv.Itoa(ref.Index),
		ref.Status.String(),
		yearString(ref.Year),
		ref.Title,
		doiOrID(ref),
		citation(ref),
		ref.Evidence,
	}
}

func doiOrID(ref domain.Reference) string {
	if ref.DOI != "" {
		return ref.DOI
	}
	return ref.ID
}

func citation(ref domain.Reference) string {
	if ref.Title == "" {
		return ""
	}
	if ref.Year > 0 {
		return fmt.Sprintf("%s (%d)", ref.Title, ref.Year)
	}
	return ref.Title
}

func yearString(year int) string {
	if year <= 0 {
		return ""
	}
	return strconv.Itoa(year)
}
