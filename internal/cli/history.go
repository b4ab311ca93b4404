package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Cyclone/internal/repo"
)

// NewHistoryCmd создаёт команду history.
func NewHistoryCmd(appFn func() *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history JOB",
		Short: "Show recent cycle runs of a job recorded with run --record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFn()
			ctx := cmd.Context()

			db, err := repo.NewPool(ctx, app.Env.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()

			runs, err := repo.NewCycleRunRepo(db).ListRecent(ctx, args[0], limit)
			if err != nil {
				return err
			}

			headers := []string{"STARTED", "CYCLE", "INDEX", "STATUS", "PROCESSED", "EXPECTED", "DURATION", "ERROR"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.StartedAt.Format(time.RFC3339),
					r.Cycle,
					strconv.Itoa(r.Index),
					string(r.Status),
					strconv.FormatInt(r.Processed, 10),
					strconv.FormatInt(r.Expected, 10),
					r.Duration().Round(time.Millisecond).String(),
					r.Error,
				}
			}

			return app.Out.Print(headers, rows, runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")
	return cmd
}
