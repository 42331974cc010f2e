package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"octpack/internal/catalog"
	"octpack/internal/catalogcache"
	"octpack/internal/config"
	"octpack/internal/fileutil"
	"octpack/internal/gitcache"
	"octpack/internal/hallofbeorn"
	"octpack/internal/imagefetch"
	"octpack/internal/logging"
	"octpack/internal/octgn"
	"octpack/internal/packager"
	"octpack/internal/reconcile"
	"octpack/internal/services"
)

// Repository is the local set source.
type Repository interface {
	Sync(ctx context.Context) error
	SetsDir() string
}

// Target is a local set paired with the remote set it correlated with.
type Target struct {
	Set        catalog.Set
	RemoteName string
	Distance   int
}

// Listing is the outcome of Sets.
type Listing struct {
	// Targets are the packable sets in remote order.
	Targets     []Target
	Correlation reconcile.Correlation
	// Skipped are local sets for a different game.
	Skipped []catalog.Set
}

// Find returns the target whose set id matches id, case-insensitively.
func (l Listing) Find(id string) (Target, bool) {
	id = strings.TrimSpace(id)
	for _, target := range l.Targets {
		if strings.EqualFold(target.Set.ID, id) {
			return target, true
		}
	}
	return Target{}, false
}

// Result summarizes one packed set.
type Result struct {
	SetID         string                   `json:"set_id"`
	SetName       string                   `json:"set_name"`
	Archive       string                   `json:"archive"`
	SHA256        string                   `json:"sha256"`
	Cards         int                      `json:"cards"`
	Backs         int                      `json:"backs"`
	Bytes         int64                    `json:"bytes"`
	Substitutions []reconcile.Substitution `json:"substitutions,omitempty"`
	Elapsed       time.Duration            `json:"elapsed"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRepository replaces the git-backed set repository.
func WithRepository(repo Repository) Option {
	return func(p *Pipeline) {
		if repo != nil {
			p.repo = repo
		}
	}
}

// WithCatalog replaces the Hall of Beorn client.
func WithCatalog(remote hallofbeorn.Catalog) Option {
	return func(p *Pipeline) {
		if remote != nil {
			p.remote = remote
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithoutSync skips the repository sync and reads whatever is checked out.
func WithoutSync() Option {
	return func(p *Pipeline) {
		p.skipSync = true
	}
}

// Pipeline runs listing and packing against one configuration.
type Pipeline struct {
	cfg        *config.Config
	repo       Repository
	remote     hallofbeorn.Catalog
	cache      *catalogcache.Cache
	correlator *reconcile.Correlator
	resolver   *reconcile.Resolver
	fetcher    *imagefetch.Fetcher
	logger     *slog.Logger
	skipSync   bool
}

// New builds a pipeline from cfg. Collaborators not supplied through options
// are constructed from the configuration. Close releases the catalog cache.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "config required", nil)
	}
	p := &Pipeline{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	base := p.logger
	p.logger = logging.NewComponentLogger(base, "pipeline")

	if p.repo == nil {
		repo, err := gitcache.New(cfg.OCTGN.GitURL, cfg.RepositoryDir(), cfg.OCTGN.Branch,
			gitcache.WithBinary(cfg.GitBinary()),
			gitcache.WithLogger(base))
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "set repository", err)
		}
		p.repo = repo
	}

	if p.remote == nil {
		clientOpts := []hallofbeorn.Option{
			hallofbeorn.WithHTTPClient(&http.Client{Timeout: cfg.RemoteTimeout()}),
			hallofbeorn.WithUserAgent(cfg.HallOfBeorn.UserAgent),
			hallofbeorn.WithLogger(base),
		}
		if cfg.CatalogCache.Enabled {
			cache, err := catalogcache.Open(ctx, cfg.CatalogCache.Path, cfg.CatalogCacheTTL(), catalogcache.WithLogger(base))
			if err != nil {
				logging.WarnWithContext(p.logger, "catalog cache unavailable; fetching without it", "catalog_cache_unavailable",
					logging.String("path", cfg.CatalogCache.Path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "run `octpack cache clear` or delete the cache file"),
					logging.String(logging.FieldImpact, "every catalog request goes to the network"))
			} else {
				p.cache = cache
				clientOpts = append(clientOpts, hallofbeorn.WithCache(cache))
			}
		}
		client, err := hallofbeorn.New(cfg.HallOfBeorn.BaseURL, clientOpts...)
		if err != nil {
			p.Close()
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "hall of beorn client", err)
		}
		p.remote = client
	}

	p.correlator = &reconcile.Correlator{
		Threshold: cfg.Matching.SetDistanceThreshold,
		Workers:   cfg.Matching.Workers,
	}
	p.resolver = reconcile.NewResolver(reconcile.WithWorkers(cfg.Matching.Workers))
	p.fetcher = imagefetch.New(
		imagefetch.WithHTTPClient(&http.Client{Timeout: cfg.DownloadTimeout()}),
		imagefetch.WithConcurrency(cfg.Downloads.Concurrency),
		imagefetch.WithAttempts(cfg.Downloads.Attempts),
		imagefetch.WithUserAgent(cfg.HallOfBeorn.UserAgent),
		imagefetch.WithLogger(base),
	)
	return p, nil
}

// Close releases resources held by the pipeline.
func (p *Pipeline) Close() error {
	if p.cache == nil {
		return nil
	}
	err := p.cache.Close()
	p.cache = nil
	return err
}

// Sets lists the local sets that have a Hall of Beorn counterpart, in the
// remote catalog's order.
func (p *Pipeline) Sets(ctx context.Context) (Listing, error) {
	if !p.skipSync {
		if err := p.repo.Sync(ctx); err != nil {
			return Listing{}, err
		}
	}

	all, err := octgn.LoadSets(p.repo.SetsDir())
	if err != nil {
		return Listing{}, services.Wrap(services.ErrValidation, "pipeline", "load sets", p.repo.SetsDir(), err)
	}
	var local, skipped []catalog.Set
	for _, set := range all {
		if strings.EqualFold(set.GameID, p.cfg.OCTGN.GameID) {
			local = append(local, set)
		} else {
			skipped = append(skipped, set)
		}
	}

	remote, err := p.remote.Sets(ctx)
	if err != nil {
		return Listing{}, err
	}

	report, err := p.correlator.CorrelateReport(ctx, local, remote)
	if err != nil {
		if errors.Is(err, reconcile.ErrEmptyCandidateSet) {
			return Listing{}, services.Wrap(services.ErrNotFound, "pipeline", "correlate",
				fmt.Sprintf("no sets for game %s in %s", p.cfg.OCTGN.GameID, p.repo.SetsDir()), err)
		}
		return Listing{}, err
	}

	listing := Listing{Correlation: report, Skipped: skipped, Targets: targets(report)}
	for _, set := range report.Unmatched {
		p.logger.Debug("local set has no remote counterpart", logging.Args(logging.SetAttrs(set)...)...)
	}
	p.logger.Info("correlated sets",
		logging.Int("local", len(local)),
		logging.Int("remote", len(remote)),
		logging.Int("in_scope", len(listing.Targets)),
		logging.Int("unmatched", len(report.Unmatched)),
		logging.Int("other_game", len(skipped)),
		logging.Bool("synced", !p.skipSync))
	return listing, nil
}

func targets(report reconcile.Correlation) []Target {
	claimed := make(map[string]reconcile.CorrelationEntry, len(report.Sets))
	for _, entry := range report.Entries {
		if entry.Accepted && !entry.Duplicate {
			claimed[entry.LocalName] = entry
		}
	}
	out := make([]Target, 0, len(report.Sets))
	for _, set := range report.Sets {
		entry := claimed[set.Name]
		out = append(out, Target{Set: set, RemoteName: entry.Remote.Name, Distance: entry.Distance})
	}
	return out
}

// Pack builds the image archive for one target and returns where it was
// written.
func (p *Pipeline) Pack(ctx context.Context, target Target) (Result, error) {
	start := time.Now()
	set := target.Set
	ctx = logging.WithSetID(ctx, set.ID)
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldSetName, set.Name))

	remoteName := target.RemoteName
	if remoteName == "" {
		remoteName = set.Name
	}
	remote, err := p.remote.Cards(ctx, remoteName)
	if err != nil {
		return Result{}, err
	}

	plan, err := p.resolver.Resolve(ctx, set.Cards, remote)
	if err != nil {
		if errors.Is(err, reconcile.ErrEmptyCandidateSet) {
			return Result{}, services.Wrap(services.ErrNotFound, "pipeline", "resolve",
				fmt.Sprintf("hall of beorn has no cards for %q", remoteName), err)
		}
		return Result{}, err
	}
	for _, sub := range plan.Substitutions {
		attrs := logging.SubstitutionAttrs(sub.CardID, string(sub.Face), sub.Query, sub.Title, sub.Distance)
		attrs = append(attrs,
			logging.String(logging.FieldErrorHint, "compare the packed image against the card in OCTGN"),
			logging.String(logging.FieldImpact, "the card may show another card's image"))
		logging.WarnWithContext(logger, "card could not be matched exactly; using closest remote title", "card_substituted", attrs...)
	}

	if err := os.MkdirAll(p.cfg.Paths.WorkDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "pipeline", "prepare", "create work directory", err)
	}
	scratch, err := os.MkdirTemp(p.cfg.Paths.WorkDir, "pack-")
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "pipeline", "prepare", "create scratch directory", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logger.Debug("remove scratch directory failed", logging.String("dir", scratch), logging.Error(err))
		}
	}()

	stats, err := p.fetcher.Fetch(ctx, scratch, set.GameID, set.ID, plan.Downloads)
	if err != nil {
		return Result{}, err
	}

	archive := filepath.Join(p.cfg.Paths.OutputDir, packager.ArchiveName(set.Name))
	if _, err := packager.Zip(ctx, scratch, archive); err != nil {
		return Result{}, err
	}
	sum, err := fileutil.SHA256(archive)
	if err != nil {
		return Result{}, fmt.Errorf("checksum %s: %w", archive, err)
	}

	result := Result{
		SetID:         set.ID,
		SetName:       set.Name,
		Archive:       archive,
		SHA256:        sum,
		Cards:         stats.Fronts,
		Backs:         stats.Backs,
		Bytes:         stats.Bytes,
		Substitutions: plan.Substitutions,
		Elapsed:       time.Since(start),
	}
	logger.Info("packed set",
		logging.String(logging.FieldEventType, "set_packed"),
		logging.String("archive", archive),
		logging.Int("cards", result.Cards),
		logging.Int("backs", result.Backs),
		logging.Int("substitutions", len(result.Substitutions)),
		logging.Duration("elapsed", result.Elapsed))
	return result, nil
}
