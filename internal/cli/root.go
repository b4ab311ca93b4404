package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/Cyclone/internal/config"
	"github.com/shaiso/Cyclone/internal/cycle"
	"github.com/shaiso/Cyclone/internal/telemetry"
)

// NewRootCmd собирает корневую команду cyclone.
// App создаётся лениво, после разбора флагов.
func NewRootCmd(version string, cycles *cycle.Registry) *cobra.Command {
	var jsonOutput bool
	var app *App

	rootCmd := &cobra.Command{
		Use:           "cyclone",
		Short:         "Cyclone — cycle-based event processing",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	appFn := func() *App {
		if app != nil {
			return app
		}
		env := config.FromEnv()
		errW := rootCmd.ErrOrStderr()
		app = &App{
			Env:       env,
			Out:       NewOutputTo(jsonOutput, rootCmd.OutOrStdout(), errW),
			Logger:    telemetry.NewLogger(errW, telemetry.ParseLevel(env.LogLevel)),
			LogOutput: errW,
			Cycles:    cycles,
		}
		return app
	}

	rootCmd.AddCommand(
		NewRunCmd(appFn),
		NewMergeCmd(appFn),
		NewLsCmd(appFn),
		NewHistoryCmd(appFn),
	)
	return rootCmd
}
