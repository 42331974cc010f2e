package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"octpack/internal/pipeline"
)

type setView struct {
	Position   int    `json:"position"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	RemoteName string `json:"remote_name"`
	Distance   int    `json:"distance"`
	Cards      int    `json:"cards"`
	Category   string `json:"category"`
}

type correlationView struct {
	Remote   string `json:"remote"`
	Closest  string `json:"closest_local"`
	Distance int    `json:"distance"`
	Outcome  string `json:"outcome"`
}

type setsPayload struct {
	Sets      []setView         `json:"sets"`
	Unmatched []setView         `json:"unmatched,omitempty"`
	Explain   []correlationView `json:"correlation,omitempty"`
}

func newSetsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput, explain, noSync bool

	cmd := &cobra.Command{
		Use:   "sets",
		Short: "List OCTGN sets that exist in Hall of Beorn, in release order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, noSync, func(runCtx context.Context, p *pipeline.Pipeline) error {
				listing, err := p.Sets(runCtx)
				if err != nil {
					return err
				}
				payload := buildSetsPayload(listing, explain)
				if jsonOutput {
					return writeJSON(cmd, payload)
				}
				printSets(cmd.OutOrStdout(), payload, explain)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&explain, "explain", false, "Show how every remote set was matched")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "Use the existing set checkout without fetching")
	return cmd
}

func buildSetsPayload(listing pipeline.Listing, explain bool) setsPayload {
	payload := setsPayload{Sets: make([]setView, 0, len(listing.Targets))}
	for i, target := range listing.Targets {
		payload.Sets = append(payload.Sets, setView{
			Position:   i + 1,
			ID:         target.Set.ID,
			Name:       target.Set.Name,
			RemoteName: target.RemoteName,
			Distance:   target.Distance,
			Cards:      len(target.Set.Cards),
			Category:   string(target.Set.Category),
		})
	}
	if !explain {
		return payload
	}
	for _, set := range listing.Correlation.Unmatched {
		payload.Unmatched = append(payload.Unmatched, setView{
			ID:       set.ID,
			Name:     set.Name,
			Cards:    len(set.Cards),
			Category: string(set.Category),
		})
	}
	for _, entry := range listing.Correlation.Entries {
		outcome := "rejected"
		switch {
		case entry.Duplicate:
			outcome = "duplicate"
		case entry.Accepted:
			outcome = "accepted"
		}
		payload.Explain = append(payload.Explain, correlationView{
			Remote:   entry.Remote.Name,
			Closest:  entry.LocalName,
			Distance: entry.Distance,
			Outcome:  outcome,
		})
	}
	return payload
}

func printSets(out io.Writer, payload setsPayload, explain bool) {
	if len(payload.Sets) == 0 {
		fmt.Fprintln(out, "No packable sets found")
	} else {
		rows := make([][]string, 0, len(payload.Sets))
		for _, set := range payload.Sets {
			rows = append(rows, []string{strconv.Itoa(set.Position), set.ID, set.Name, strconv.Itoa(set.Cards)})
		}
		fmt.Fprintln(out, renderTable([]column{{header: "#", right: true}, {header: "ID"}, {header: "Name"}, {header: "Cards", right: true}}, rows))
	}
	if !explain {
		return
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Correlation:")
	rows := make([][]string, 0, len(payload.Explain))
	for _, entry := range payload.Explain {
		rows = append(rows, []string{entry.Remote, entry.Closest, strconv.Itoa(entry.Distance), entry.Outcome})
	}
	fmt.Fprintln(out, renderTable([]column{{header: "Remote set"}, {header: "Closest local set"}, {header: "Distance", right: true}, {header: "Outcome"}}, rows))

	if len(payload.Unmatched) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Local sets without a remote match (%d):\n", len(payload.Unmatched))
	for _, set := range payload.Unmatched {
		fmt.Fprintf(out, "  %s  %s\n", set.ID, set.Name)
	}
}
