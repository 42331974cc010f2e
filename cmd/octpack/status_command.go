package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"octpack/internal/preflight"
)

type statusPayload struct {
	ConfigPath   string             `json:"config_path"`
	ConfigExists bool               `json:"config_exists"`
	Checks       []preflight.Result `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Run readiness checks and show cache state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := ctx.runContext(cmd)
			checks := preflight.RunAll(runCtx, cfg)
			checks = append(checks, preflight.CheckRepository(cfg), preflight.CheckCatalogCache(runCtx, cfg))

			payload := statusPayload{ConfigPath: ctx.configPath, ConfigExists: ctx.configExists, Checks: checks}
			if jsonOutput {
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s (exists: %s)\n", payload.ConfigPath, yesNo(payload.ConfigExists))
			rows := make([][]string, 0, len(checks))
			for _, check := range checks {
				state := "ok"
				if !check.Passed {
					state = "FAIL"
				}
				rows = append(rows, []string{check.Name, state, check.Detail})
			}
			fmt.Fprintln(out, renderTable([]column{{header: "Check"}, {header: "State"}, {header: "Detail"}}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
