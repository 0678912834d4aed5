package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"RefScreener/internal/doi"
)

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Seed job rows from a file of DOIs, one per line",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dois, err := readDOIFile(args[0])
	if err != nil {
		return err
	}
	if len(dois) == 0 {
		return fmt.Errorf("%s contains no DOIs", args[0])
	}

	application, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	added, err := application.Store().Seed(ctx, dois)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d of %d DOIs (%d already present)\n", added, len(dois), len(dois)-added)
	return nil
}

// readDOIFile reads one DOI per line, skipping blanks and # comments.
// Lines that fail normalization are kept verbatim so processing can record
// them as errors instead of silently dropping them.
func readDOIFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	seen := map[string]struct{}{}
	var dois []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key := doi.Normalize(line)
		if key == "" {
			key = line
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dois = append(dois, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return dois, nil
}
