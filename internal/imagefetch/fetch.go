package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"octpack/internal/catalog"
	"octpack/internal/fileutil"
	"octpack/internal/logging"
	"octpack/internal/services"
)

const (
	frontSuffix = ".jpg"
	backSuffix  = ".B.jpg"
)

// Stats summarizes a Fetch call.
type Stats struct {
	Fronts int
	Backs  int
	Bytes  int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithConcurrency bounds parallel downloads.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithAttempts sets how many times a transient failure is tried.
func WithAttempts(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.attempts = n
		}
	}
}

// WithBackoff sets the initial retry delay; it doubles per attempt.
func WithBackoff(d time.Duration) Option {
	return func(f *Fetcher) {
		if d >= 0 {
			f.backoff = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua = strings.TrimSpace(ua); ua != "" {
			f.userAgent = ua
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Fetcher downloads card images.
type Fetcher struct {
	httpClient  *http.Client
	concurrency int
	attempts    int
	backoff     time.Duration
	userAgent   string
	logger      *slog.Logger
}

// New constructs a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		concurrency: 8,
		attempts:    3,
		backoff:     500 * time.Millisecond,
		userAgent:   "octpack",
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.NewComponentLogger(f.logger, "imagefetch")
	return f
}

// CardsDir returns the directory images for a set are written to.
func CardsDir(root, gameID, setID string) string {
	return filepath.Join(root, gameID, "Sets", setID, "Cards")
}

// Fetch downloads every front and back image in downloads. The first
// permanent failure cancels the remaining downloads.
func (f *Fetcher) Fetch(ctx context.Context, root, gameID, setID string, downloads []catalog.Download) (Stats, error) {
	for _, id := range []string{gameID, setID} {
		if err := checkSegment(id); err != nil {
			return Stats{}, services.Wrap(services.ErrValidation, "imagefetch", "layout", fmt.Sprintf("invalid id %q", id), err)
		}
	}
	for _, d := range downloads {
		if err := checkSegment(d.ID); err != nil {
			return Stats{}, services.Wrap(services.ErrValidation, "imagefetch", "layout", fmt.Sprintf("invalid card id %q", d.ID), err)
		}
	}
	dir := CardsDir(root, gameID, setID)

	var (
		fronts, backs atomic.Int64
		written       atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, d := range downloads {
		g.Go(func() error {
			n, err := f.download(gctx, d.FrontURL, filepath.Join(dir, d.ID+frontSuffix))
			if err != nil {
				return err
			}
			fronts.Add(1)
			written.Add(n)
			return nil
		})
		if d.HasBack() {
			g.Go(func() error {
				n, err := f.download(gctx, d.BackURL, filepath.Join(dir, d.ID+backSuffix))
				if err != nil {
					return err
				}
				backs.Add(1)
				written.Add(n)
				return nil
			})
		}
	}
	err := g.Wait()
	stats := Stats{Fronts: int(fronts.Load()), Backs: int(backs.Load()), Bytes: written.Load()}
	if err != nil {
		return stats, err
	}
	f.logger.Info("downloaded card images",
		logging.String(logging.FieldSetID, setID),
		logging.Int("fronts", stats.Fronts),
		logging.Int("backs", stats.Backs),
		logging.Int("bytes", int(stats.Bytes)))
	return stats, nil
}

// checkSegment accepts any id that names a single entry inside its parent
// directory.
func checkSegment(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return errors.New("empty path segment")
	case id == "." || id == "..":
		return errors.New("relative path segment")
	case strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0):
		return errors.New("path separator in segment")
	}
	return nil
}

// statusError carries a non-200 response status.
type statusError struct {
	url    string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s returned %d", e.url, e.status)
}

func (e *statusError) transient() bool {
	return e.status >= http.StatusInternalServerError || e.status == http.StatusTooManyRequests
}

func (f *Fetcher) download(ctx context.Context, url, dest string) (int64, error) {
	delay := f.backoff
	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		n, err := f.downloadOnce(ctx, url, dest)
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if errors.Is(err, services.ErrValidation) {
			return 0, err
		}
		lastErr = err
		var se *statusError
		if errors.As(err, &se) && !se.transient() {
			marker := services.ErrExternalTool
			if se.status == http.StatusNotFound {
				marker = services.ErrNotFound
			}
			return 0, services.Wrap(marker, "imagefetch", "download", filepath.Base(dest), err)
		}
		if attempt == f.attempts {
			break
		}
		f.logger.Debug("retrying image download",
			logging.String("url", url),
			logging.Int("attempt", attempt),
			logging.Error(err))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		delay *= 2
	}
	return 0, services.Wrap(services.ErrTransient, "imagefetch", "download",
		fmt.Sprintf("%s after %d attempts", filepath.Base(dest), f.attempts), lastErr)
}

func (f *Fetcher) downloadOnce(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "imagefetch", "build request", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, &statusError{url: url, status: resp.StatusCode}
	}

	var n int64
	err = fileutil.WriteAtomic(dest, 0o644, func(w io.Writer) error {
		var copyErr error
		n, copyErr = io.Copy(w, resp.Body)
		return copyErr
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
