package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/Cyclone/internal/output"
)

// NewMergeCmd создаёт команду merge.
func NewMergeCmd(appFn func() *App) *cobra.Command {
	var out string
	var appendMode bool
	var chunk int

	cmd := &cobra.Command{
		Use:   "merge -o OUT IN...",
		Short: "Merge output files of separate runs into one",
		Long: `Merge walks every input file depth-first and folds it into OUT:
streams are appended, objects of the same name are merged, and
namespaces are created as needed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFn()

			m := output.NewFileMerger(output.MergerConfig{
				Engine:    newMergeEngine(app.Logger),
				Logger:    app.Logger,
				ChunkSize: chunk,
			})
			for _, in := range args {
				if err := m.AddInput(in); err != nil {
					return err
				}
			}

			mode := output.MergeOverwrite
			if appendMode {
				mode = output.MergeAppend
			}
			if err := m.SetOutput(out, mode); err != nil {
				return err
			}

			stats, err := m.Merge()
			if err != nil {
				return err
			}

			headers := []string{"INPUTS", "STREAMS", "RECORDS", "OBJECTS", "DUPLICATES"}
			rows := [][]string{{
				strconv.Itoa(stats.Inputs),
				strconv.Itoa(stats.Streams),
				strconv.FormatInt(stats.Records, 10),
				strconv.Itoa(stats.Objects),
				strconv.Itoa(stats.Duplicates),
			}}
			if err := app.Out.Print(headers, rows, stats); err != nil {
				return err
			}
			app.Out.Successf("Merged %d files into %s", stats.Inputs, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (required)")
	cmd.Flags().BoolVar(&appendMode, "append", false, "Append to an existing output file instead of recreating it")
	cmd.Flags().IntVar(&chunk, "chunk", 0, "Records per write when copying streams")
	cmd.MarkFlagRequired("output")

	return cmd
}
