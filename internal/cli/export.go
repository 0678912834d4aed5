package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all job rows to a CSV file",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "job_rows.csv", "output file")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	application, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	rows, err := application.Store().Rows(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOut, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"doi", "status", "reason", "refs_evaluated", "retracted_dois"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.DOI,
			row.Status,
			row.Reason,
			strconv.Itoa(row.RefsEvaluated),
			strings.Join(row.RetractedDOIs, "|"),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	fmt.Printf("wrote %d rows to %s\n", len(rows), exportOut)
	return nil
}
