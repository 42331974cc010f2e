package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"octpack/internal/catalogcache"
	"octpack/internal/services"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the catalog response cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func openCatalogCache(cmd *cobra.Command, ctx *commandContext) (*catalogcache.Cache, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.CatalogCache.Enabled {
		return nil, services.Wrap(services.ErrConfiguration, "cache", "open", "catalog cache is disabled (catalog_cache.enabled = false)", nil)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, err
	}
	return catalogcache.Open(ctx.runContext(cmd), cfg.CatalogCache.Path, cfg.CatalogCacheTTL(), catalogcache.WithLogger(logger))
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached catalog responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCatalogCache(cmd, ctx)
			if err != nil {
				return err
			}
			defer cache.Close()

			entries, err := cache.List(ctx.runContext(cmd))
			if err != nil {
				return err
			}
			if jsonOutput {
				if entries == nil {
					entries = []catalogcache.Entry{}
				}
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Catalog cache is empty")
				return nil
			}
			const stampLayout = "2006-01-02 15:04"
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.Key,
					strconv.Itoa(entry.Size),
					entry.FetchedAt.Local().Format(stampLayout),
					yesNo(entry.Expired),
				})
			}
			fmt.Fprintln(out, renderTable([]column{{header: "Request"}, {header: "Bytes", right: true}, {header: "Fetched"}, {header: "Expired"}}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached catalog response",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCatalogCache(cmd, ctx)
			if err != nil {
				return err
			}
			defer cache.Close()

			removed, err := cache.Clear(ctx.runContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached responses from %s\n", removed, cache.Path())
			return nil
		},
	}
}
