package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"octpack/internal/logs"
	"octpack/internal/services"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		follow bool
		lines  int
		runID  string
		setID  string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the octpack run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogFile()
			if path == "" {
				return services.Wrap(services.ErrConfiguration, "logs", "open", "logging.log_dir is not set", nil)
			}
			if lines < 0 {
				return services.Wrap(services.ErrValidation, "logs", "flags", "--lines must be zero or positive", nil)
			}

			filter := logs.Filter{RunID: runID, SetID: setID}
			var (
				initial []string
				offset  int64
			)
			if lines == 0 {
				initial, offset, err = logs.ReadFrom(path, 0, filter)
			} else {
				initial, offset, err = logs.Last(path, lines, filter)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range initial {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			runCtx := ctx.runContext(cmd)
			err = logs.Follow(runCtx, path, offset, 500*time.Millisecond, filter, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines from this run id")
	cmd.Flags().StringVar(&setID, "set", "", "Only show lines for this set id")
	return cmd
}
