package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"RefScreener/internal/app"
	"RefScreener/internal/infrastructure/scheduler"
	"RefScreener/pkg/logger"
)

var (
	batchAll  bool
	batchCron string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process pending job rows",
	Long: `batch processes pending job rows within the configured time budget and
commits each result as it completes. Re-running resumes where the previous
invocation stopped. With --all it sweeps until no pending rows remain; with
--cron it stays resident and sweeps on the configured schedule.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().BoolVar(&batchAll, "all", false, "sweep until no pending rows remain")
	batchCmd.Flags().StringVar(&batchCron, "cron", "", "run resident, sweeping on this cron expression")
	batchCmd.Flags().Lookup("cron").NoOptDefVal = "config"
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	application, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	application.EnsureIndex(ctx)

	if batchCron != "" {
		return runScheduled(ctx, application)
	}

	var n int
	if batchAll {
		n, err = application.Runner().ProcessAll(ctx)
	} else {
		n, err = application.Runner().ProcessBatch(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Printf("processed %d rows\n", n)
	return nil
}

func runScheduled(ctx context.Context, application *app.Application) error {
	spec := batchCron
	if spec == "config" {
		spec = application.Config().Scheduler.CronExpression
	}
	sched := scheduler.NewCronScheduler(spec, logger.New("cron"))

	err := sched.Start(ctx, func(fired time.Time) {
		n, err := application.Runner().ProcessBatch(ctx)
		if err != nil {
			application.Logger().Error("scheduled batch failed", "error", err)
			return
		}
		application.Logger().Info("scheduled batch complete", "rows", n, "fired_at", fired)
	})
	if err != nil {
		return err
	}
	application.Logger().Info("scheduler running", "cron", spec)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}
