package main

import (
	"github.com/picloud/picloud"
	"github.com/picloud/picloud/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [stream]",
	Short: "Rebuild the persisted counter of a stream",
	Long: `Loads the snapshot of a stream (the store name by default), folds the
journal signals saved after it through the root reducer and prints the
resulting count. Nothing is modified. Needs Redis or a data path configured,
since the memory backends do not outlive the process.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		stream := cfg.Name
		if len(args) == 1 {
			stream = args[0]
		}

		state, signals, err := picloud.Inspect(cmd.Context(), cfg, stream)
		if err != nil {
			return err
		}

		return render(cmd, tui.Report("Replay",
			tui.Field{Name: "stream", Value: stream},
			tui.Field{Name: "signals", Value: signals},
			tui.Field{Name: "callsInProgress", Value: state.CallsInProgress()},
			tui.Field{Name: "loading", Value: state.Loading()},
		))
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
