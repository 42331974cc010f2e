package gitcache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"octpack/internal/logging"
	"octpack/internal/services"
)

// SetsSubdir is where OCTGN game repositories keep their set definitions.
const SetsSubdir = "o8g/Sets"

const lockRetryDelay = 250 * time.Millisecond

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures a Repo.
type Option func(*Repo)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Repo) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithBinary overrides the git binary.
func WithBinary(binary string) Option {
	return func(r *Repo) {
		if binary = strings.TrimSpace(binary); binary != "" {
			r.binary = binary
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repo) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Repo is a cached clone of a remote git repository.
type Repo struct {
	URL    string
	Dir    string
	Branch string

	binary string
	exec   Executor
	logger *slog.Logger
}

// New constructs a Repo.
func New(url, dir, branch string, opts ...Option) (*Repo, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("git url required")
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("checkout directory required")
	}
	branch = strings.TrimSpace(branch)
	if branch == "" {
		branch = "master"
	}
	if strings.HasPrefix(branch, "-") {
		return nil, fmt.Errorf("invalid branch %q", branch)
	}
	r := &Repo{
		URL:    url,
		Dir:    filepath.Clean(dir),
		Branch: branch,
		binary: "git",
		exec:   commandExecutor{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "gitcache")
	return r, nil
}

// SetsDir returns the directory holding set.xml folders.
func (r *Repo) SetsDir() string {
	return filepath.Join(r.Dir, filepath.FromSlash(SetsSubdir))
}

// LockPath returns the lock file guarding the checkout.
func (r *Repo) LockPath() string {
	return r.Dir + ".lock"
}

// Sync brings the checkout up to date with the remote branch.
func (r *Repo) Sync(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(r.Dir), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "gitcache", "prepare", "create cache directory", err)
	}

	lock := flock.New(r.LockPath())
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrTransient, "gitcache", "lock", r.LockPath(), err)
	}
	if !locked {
		return services.Wrap(services.ErrTransient, "gitcache", "lock", "checkout is locked by another process", nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Debug("release checkout lock failed", logging.Error(err))
		}
	}()

	start := time.Now()
	err = r.update(ctx)
	switch {
	case err == nil:
		r.logger.Info("updated set repository",
			logging.String("dir", r.Dir),
			logging.String("branch", r.Branch),
			logging.Duration("elapsed", time.Since(start)))
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case !errors.Is(err, errNoCheckout):
		logging.WarnWithContext(r.logger, "set repository update failed; recloning", "git_update_failed",
			logging.String("dir", r.Dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the checkout is removed and cloned again"),
			logging.String(logging.FieldImpact, "sync takes longer than usual"))
	}

	if err := os.RemoveAll(r.Dir); err != nil {
		return services.Wrap(services.ErrConfiguration, "gitcache", "clone", "remove stale checkout", err)
	}
	if err := r.run(ctx, nil, "clone", "--branch", r.Branch, "--depth", "1", "--", r.URL, r.Dir); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "gitcache", "clone", r.URL, err)
	}
	r.logger.Info("cloned set repository",
		logging.String("url", r.URL),
		logging.String("dir", r.Dir),
		logging.Duration("elapsed", time.Since(start)))
	return nil
}

var errNoCheckout = errors.New("no checkout")

func (r *Repo) update(ctx context.Context) error {
	if info, err := os.Stat(filepath.Join(r.Dir, ".git")); err != nil || !info.IsDir() {
		return errNoCheckout
	}

	var remote string
	if err := r.run(ctx, func(line string) {
		if remote == "" {
			remote = strings.TrimSpace(line)
		}
	}, "-C", r.Dir, "remote", "get-url", "origin"); err != nil {
		return fmt.Errorf("read origin: %w", err)
	}
	if remote != r.URL {
		return fmt.Errorf("origin is %q, want %q", remote, r.URL)
	}
	if err := r.run(ctx, nil, "-C", r.Dir, "fetch", "--depth", "1", "origin", r.Branch); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := r.run(ctx, nil, "-C", r.Dir, "reset", "--hard", "FETCH_HEAD"); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

func (r *Repo) run(ctx context.Context, onOutput func(string), args ...string) error {
	if onOutput == nil {
		onOutput = func(line string) {
			r.logger.Debug("git output", logging.String("line", line))
		}
	}
	return r.exec.Run(ctx, r.binary, args, onOutput)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		scanErr error
		once    sync.Once
	)
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			mu.Lock()
			onOutput(scanner.Text())
			mu.Unlock()
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() { scanErr = err })
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s %s: %w", binary, strings.Join(args, " "), err)
	}
	return nil
}
