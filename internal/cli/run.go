package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Cyclone/internal/config"
	"github.com/shaiso/Cyclone/internal/controller"
	"github.com/shaiso/Cyclone/internal/pool"
	"github.com/shaiso/Cyclone/internal/repo"
	"github.com/shaiso/Cyclone/internal/scheduler"
	"github.com/shaiso/Cyclone/internal/telemetry"
)

// runOptions — флаги команды run.
type runOptions struct {
	cycle       int
	cron        string
	timezone    string
	immediately bool
	record      bool
	workers     int
	timeout     time.Duration
}

// NewRunCmd создаёт команду run.
func NewRunCmd(appFn func() *App) *cobra.Command {
	opts := runOptions{cycle: -1}

	cmd := &cobra.Command{
		Use:   "run JOB.yaml",
		Short: "Run the cycles of a job file",
		Long: `Run executes the cycles of a job file in declaration order.

With --cron the job is re-run on a schedule; the job file is re-read before
every run, and a tick that falls on a running job is skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFn()
			ctx := cmd.Context()

			if opts.cron != "" {
				if err := scheduler.ValidateCronExpr(opts.cron); err != nil {
					return err
				}
			}

			var recorder controller.Recorder
			if opts.record {
				db, err := repo.NewPool(ctx, app.Env.DatabaseURL)
				if err != nil {
					return fmt.Errorf("connect to database: %w", err)
				}
				defer db.Close()
				if err := repo.EnsureSchema(ctx, db); err != nil {
					return err
				}
				recorder = repo.NewCycleRunRepo(db)
			}

			runOnce := func(ctx context.Context) error {
				return runJob(ctx, app, args[0], opts, recorder)
			}

			if opts.cron == "" {
				return runOnce(ctx)
			}

			sched := scheduler.New(scheduler.Config{
				CronExpr:       opts.cron,
				Timezone:       opts.timezone,
				Job:            runOnce,
				RunImmediately: opts.immediately,
				Logger:         app.Logger,
			})
			app.Out.Successf("Scheduled %s with %q", args[0], opts.cron)
			return sched.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&opts.cycle, "cycle", -1, "Run only the cycle with this index (0-based)")
	cmd.Flags().StringVar(&opts.cron, "cron", "", "Re-run on a cron schedule (e.g. \"0 3 * * *\" or \"@every 6h\")")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "UTC", "Timezone of the cron schedule")
	cmd.Flags().BoolVar(&opts.immediately, "now", false, "With --cron, run once immediately")
	cmd.Flags().BoolVar(&opts.record, "record", false, "Store cycle history in Postgres (DB_URL)")
	cmd.Flags().IntVar(&opts.workers, "remote-workers", 0, "Partitions per dataset for amqp:// endpoints")
	cmd.Flags().DurationVar(&opts.timeout, "remote-timeout", 0, "Give up on remote workers after this long (0 = wait forever)")

	return cmd
}

// runJob загружает задание, выполняет его и печатает отчёт.
func runJob(ctx context.Context, app *App, path string, opts runOptions, recorder controller.Recorder) error {
	job, err := config.Load(path)
	if err != nil {
		return err
	}

	logger := app.Logger
	level := telemetry.ParseLevel(app.Env.LogLevel)
	if job.LogLevel != "" {
		level = telemetry.ParseLevel(job.LogLevel)
		logger = telemetry.NewLogger(app.LogOutput, level)
	}

	if opts.cycle >= 0 {
		if opts.cycle >= len(job.Cycles) {
			return fmt.Errorf("cycle index %d out of range: job has %d cycles", opts.cycle, len(job.Cycles))
		}
		job.Cycles = job.Cycles[opts.cycle : opts.cycle+1]
	}

	ctrl := controller.New(controller.Config{
		Job:    job,
		Cycles: app.Cycles,
		Engine: newMergeEngine(logger),
		Pools: pool.NewOpener(pool.OpenerConfig{
			Cycles:        app.Cycles,
			LogLevel:      level,
			DatabaseURL:   app.Env.DatabaseURL,
			RemoteWorkers: opts.workers,
			RemoteTimeout: opts.timeout,
			Logger:        logger,
		}),
		Recorder: recorder,
		Logger:   logger,
	})
	if err := ctrl.Initialize(); err != nil {
		return err
	}

	reports, execErr := ctrl.ExecuteAll(ctx)
	printErr := printReports(app.Out, reports)

	return errors.Join(execErr, printErr, ctrl.Close())
}

// reportView — отчёт цикла в виде, пригодном для JSON.
type reportView struct {
	Cycle     string        `json:"cycle"`
	Index     int           `json:"index"`
	Status    string        `json:"status"`
	Processed int64         `json:"processed"`
	Skipped   int64         `json:"skipped"`
	Expected  int64         `json:"expected"`
	Missing   int64         `json:"missing"`
	RateHz    float64       `json:"rate_hz"`
	Error     string        `json:"error,omitempty"`
	Datasets  []datasetView `json:"datasets"`
}

type datasetView struct {
	Dataset   string `json:"dataset"`
	Status    string `json:"status"`
	Output    string `json:"output,omitempty"`
	Processed int64  `json:"processed"`
	Skipped   int64  `json:"skipped"`
	Missing   int64  `json:"missing"`
	Error     string `json:"error,omitempty"`
}

func viewReports(reports []*controller.CycleReport) []reportView {
	views := make([]reportView, 0, len(reports))
	for _, r := range reports {
		v := reportView{
			Cycle:     r.Run.Cycle,
			Index:     r.Run.Index,
			Status:    string(r.Run.Status),
			Processed: r.Run.Processed,
			Skipped:   r.Run.Skipped,
			Expected:  r.Run.Expected,
			RateHz:    r.Run.Rate(),
			Error:     r.Run.Error,
			Datasets:  make([]datasetView, 0, len(r.Datasets)),
		}
		for _, d := range r.Datasets {
			dv := datasetView{
				Dataset:   d.Dataset,
				Status:    string(d.Status),
				Output:    d.Output,
				Processed: d.Processed,
				Skipped:   d.Skipped,
				Missing:   d.Missing,
			}
			if d.Err != nil {
				dv.Error = d.Err.Error()
			}
			v.Missing += d.Missing
			v.Datasets = append(v.Datasets, dv)
		}
		views = append(views, v)
	}
	return views
}

func printReports(out *Output, reports []*controller.CycleReport) error {
	views := viewReports(reports)

	headers := []string{"CYCLE", "DATASET", "STATUS", "PROCESSED", "SKIPPED", "MISSING", "OUTPUT"}
	var rows [][]string
	for _, v := range views {
		rows = append(rows, []string{
			v.Cycle, "", v.Status,
			strconv.FormatInt(v.Processed, 10),
			strconv.FormatInt(v.Skipped, 10),
			strconv.FormatInt(v.Missing, 10),
			"",
		})
		for _, d := range v.Datasets {
			rows = append(rows, []string{
				"", d.Dataset, d.Status,
				strconv.FormatInt(d.Processed, 10),
				strconv.FormatInt(d.Skipped, 10),
				strconv.FormatInt(d.Missing, 10),
				d.Output,
			})
		}
	}

	return out.Print(headers, rows, views)
}
