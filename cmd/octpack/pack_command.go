package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"octpack/internal/logging"
	"octpack/internal/notifications"
	"octpack/internal/pipeline"
	"octpack/internal/preflight"
	"octpack/internal/services"
)

type packFailure struct {
	SetID   string `json:"set_id"`
	SetName string `json:"set_name"`
	Error   string `json:"error"`
}

type packPayload struct {
	Packed []pipeline.Result `json:"packed"`
	Failed []packFailure     `json:"failed,omitempty"`
}

func newPackCommand(ctx *commandContext) *cobra.Command {
	var (
		setIDs        []string
		all           bool
		noSync        bool
		jsonOutput    bool
		skipPreflight bool
	)

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Build .o8c image packs",
		Long: `Build .o8c image packs for one or more sets.

Without --set or --all an interactive picker is shown when stdin is a terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && len(setIDs) > 0 {
				return services.Wrap(services.ErrValidation, "pack", "select", "--set and --all are mutually exclusive", nil)
			}
			if !skipPreflight {
				if err := runPackPreflight(cmd, ctx); err != nil {
					return err
				}
			}
			return ctx.withPipeline(cmd, noSync, func(runCtx context.Context, p *pipeline.Pipeline) error {
				listing, err := p.Sets(runCtx)
				if err != nil {
					return err
				}
				targets, err := selectTargets(cmd, listing, setIDs, all)
				if err != nil {
					return err
				}

				payload, err := packTargets(runCtx, ctx, p, targets)
				if jsonOutput {
					if encErr := writeJSON(cmd, payload); encErr != nil {
						return encErr
					}
				} else {
					printPackResults(cmd, payload)
				}
				return err
			})
		},
	}

	cmd.Flags().StringSliceVar(&setIDs, "set", nil, "Set id to pack (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Pack every set listed by `octpack sets`")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "Use the existing set checkout without fetching")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Do not run readiness checks first")
	return cmd
}

func runPackPreflight(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	failed := preflight.Failed(preflight.RunAll(ctx.runContext(cmd), cfg))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "pack", "preflight", strings.Join(parts, "; "), nil)
}

func selectTargets(cmd *cobra.Command, listing pipeline.Listing, setIDs []string, all bool) ([]pipeline.Target, error) {
	if len(listing.Targets) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "pack", "select", "no packable sets", nil)
	}
	if all {
		return listing.Targets, nil
	}
	if len(setIDs) > 0 {
		targets := make([]pipeline.Target, 0, len(setIDs))
		for _, id := range setIDs {
			target, ok := listing.Find(id)
			if !ok {
				return nil, services.Wrap(services.ErrNotFound, "pack", "select",
					fmt.Sprintf("set %q is not packable; run `octpack sets` to list ids", id), nil)
			}
			targets = append(targets, target)
		}
		return targets, nil
	}
	if !isTerminal(cmd.InOrStdin()) {
		return nil, services.Wrap(services.ErrValidation, "pack", "select", "no set selected; pass --set <id> or --all", nil)
	}
	target, err := pickTarget(cmd.InOrStdin(), cmd.OutOrStdout(), listing.Targets)
	if err != nil {
		return nil, err
	}
	return []pipeline.Target{target}, nil
}

func packTargets(runCtx context.Context, ctx *commandContext, p *pipeline.Pipeline, targets []pipeline.Target) (packPayload, error) {
	logger, err := ctx.ensureLogger()
	if err != nil {
		return packPayload{}, err
	}
	notifier := notifications.NewService(ctx.config)
	notify := func(kind string, err error) {
		if err != nil {
			logging.WarnWithContext(logger, "notification failed", "notification_failed",
				logging.String("notification", kind),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "pack results were not announced"))
		}
	}

	start := time.Now()
	payload := packPayload{Packed: make([]pipeline.Result, 0, len(targets))}
	var errs []error
	for _, target := range targets {
		result, err := p.Pack(runCtx, target)
		if err != nil {
			if runCtx.Err() != nil {
				return payload, runCtx.Err()
			}
			attrs := append(logging.SetAttrs(target.Set),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rerun with --log-level debug for request details"))
			logging.ErrorWithContext(logger, "pack failed", "pack_failed", attrs...)
			payload.Failed = append(payload.Failed, packFailure{SetID: target.Set.ID, SetName: target.Set.Name, Error: err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", target.Set.Name, err))
			notify("pack_failed", notifier.NotifyPackFailed(runCtx, target.Set.Name, err))
			continue
		}
		payload.Packed = append(payload.Packed, result)
		notify("pack_completed", notifier.NotifyPackCompleted(runCtx, notifications.PackSummary{
			SetName:       result.SetName,
			Archive:       result.Archive,
			Cards:         result.Cards,
			Substitutions: len(result.Substitutions),
		}))
	}
	if len(targets) > 1 {
		notify("run_completed", notifier.NotifyRunCompleted(runCtx, len(payload.Packed), len(payload.Failed), time.Since(start)))
	}
	return payload, errors.Join(errs...)
}

func printPackResults(cmd *cobra.Command, payload packPayload) {
	out := cmd.OutOrStdout()
	for _, result := range payload.Packed {
		fmt.Fprintf(out, "Packed %s -> %s (%d cards, %d backs, %d substitutions)\n",
			result.SetName, result.Archive, result.Cards, result.Backs, len(result.Substitutions))
	}
	for _, failure := range payload.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "Failed %s: %s\n", failure.SetName, failure.Error)
	}
}
