package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"octpack/internal/catalogcache"
	"octpack/internal/config"
	"octpack/internal/gitcache"
)

// CheckRepository reports whether the OCTGN set repository has been cloned
// and how many set folders it holds. A missing checkout passes; the next
// pack run clones it.
func CheckRepository(cfg *config.Config) Result {
	const name = "Set repository"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	dir := cfg.RepositoryDir()
	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("not cloned yet (%s)", dir)}
	}
	entries, err := os.ReadDir(filepath.Join(dir, filepath.FromSlash(gitcache.SetsSubdir)))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("checkout has no %s folder", gitcache.SetsSubdir)}
	}
	sets := 0
	for _, entry := range entries {
		if entry.IsDir() {
			sets++
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d set folders in %s", sets, dir)}
}

// CheckCatalogCache reports the number of cached remote responses.
func CheckCatalogCache(ctx context.Context, cfg *config.Config) Result {
	const name = "Catalog cache"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.CatalogCache.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if _, err := os.Stat(cfg.CatalogCache.Path); os.IsNotExist(err) {
		return Result{Name: name, Passed: true, Detail: "empty (not created yet)"}
	}
	cache, err := catalogcache.Open(ctx, cfg.CatalogCache.Path, cfg.CatalogCacheTTL())
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer cache.Close()
	count, err := cache.Count(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d responses in %s", count, cache.Path())}
}
