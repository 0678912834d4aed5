package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"RefScreener/internal/domain"
	"RefScreener/internal/report"
)

var (
	screenOutDir string
	screenXLSX   bool
)

var screenCmd = &cobra.Command{
	Use:   "screen <doi>",
	Short: "Screen a single DOI and write a reference report",
	Args:  cobra.ExactArgs(1),
	RunE:  runScreen,
}

func init() {
	screenCmd.Flags().StringVarP(&screenOutDir, "out", "o", ".", "directory for report files")
	screenCmd.Flags().BoolVar(&screenXLSX, "xlsx", false, "also write an XLSX workbook")
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	application, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	application.EnsureIndex(ctx)
	res := application.Screener().Screen(ctx, args[0])

	fmt.Printf("status: %s\n", res.Result.Status)
	fmt.Printf("reason: %s\n", res.Result.Reason)
	if res.Work.Title != "" {
		fmt.Printf("title:  %s\n", res.Work.Title)
	}

	summary := report.Aggregate(res.References)
	if summary.Total > 0 {
		fmt.Printf("references: %d\n", summary.Total)
		for _, ref := range report.Interesting(res.References) {
			fmt.Printf("  [%d] %-22s %s\n", ref.Index, ref.Status, doiOrTitle(ref))
		}
	}

	if res.Result.Status == domain.RowError {
		return nil
	}
	return writeReports(args[0], res.References)
}

func doiOrTitle(ref domain.Reference) string {
	if ref.DOI != "" {
		return ref.DOI
	}
	if ref.Title != "" {
		return ref.Title
	}
	return ref.ID
}

func writeReports(focalDOI string, refs []domain.Reference) error {
	csvPath := filepath.Join(screenOutDir, report.FileName(focalDOI, "csv"))
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", csvPath, err)
	}
	if err := report.WriteCSV(f, refs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Println("wrote", csvPath)

	if !screenXLSX {
		return nil
	}

	xlsxPath := filepath.Join(screenOutDir, report.FileName(focalDOI, "xlsx"))
	x, err := os.Create(xlsxPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", xlsxPath, err)
	}
	if err := report.WriteXLSX(x, refs); err != nil {
		x.Close()
		return err
	}
	if err := x.Close(); err != nil {
		return err
	}
	fmt.Println("wrote", xlsxPath)
	return nil
}
